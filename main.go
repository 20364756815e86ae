package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkquad/engine"
	"github.com/spaghettifunk/vkquad/engine/config"
	"github.com/spaghettifunk/vkquad/engine/core"
)

func main() {
	var validation bool
	flag.BoolVar(&validation, "validation", false, "enable the Vulkan validation layer and debug messages")
	flag.BoolVar(&validation, "v", false, "shorthand for -validation")
	flag.Parse()

	cfg, err := config.Default()
	if err != nil {
		core.LogFatal(err.Error())
	}
	cfg.Validation = validation

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		e.RequestQuit()
	}()

	if err := e.Run(); err != nil {
		_ = e.Shutdown()
		core.LogFatal(err.Error())
	}
	if err := e.Shutdown(); err != nil {
		core.LogFatal(err.Error())
	}
}
