package engine

import (
	"testing"

	"github.com/spaghettifunk/vkquad/engine/config"
	"github.com/spaghettifunk/vkquad/engine/core"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	core.EventSystemInitialize()
	t.Cleanup(func() { _ = core.EventSystemShutdown() })

	e := &Engine{
		config:    cfg,
		isRunning: true,
		width:     cfg.Window.Width,
		height:    cfg.Window.Height,
		clock:     core.NewClock(),
	}
	e.registerListeners()
	return e
}

func TestEscapeReleaseQuits(t *testing.T) {
	e := newTestEngine(t)

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
	if !e.isRunning {
		t.Fatal("escape press should not quit")
	}
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_RELEASED, Data: &core.KeyEvent{KeyCode: core.KEY_A}})
	if !e.isRunning {
		t.Fatal("releasing another key should not quit")
	}
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_RELEASED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
	if e.isRunning {
		t.Fatal("escape release should quit")
	}
}

func TestQueuedQuitEvent(t *testing.T) {
	e := newTestEngine(t)

	if err := core.EventPost(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT}); err != nil {
		t.Fatal(err)
	}
	if !e.isRunning {
		t.Fatal("posted events must wait for ProcessEvents")
	}
	core.ProcessEvents()
	if e.isRunning {
		t.Fatal("quit event not delivered")
	}
}

func TestResizeSuspendsAndResumes(t *testing.T) {
	e := newTestEngine(t)

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 0, WindowHeight: 0}})
	if !e.isSuspended {
		t.Fatal("0x0 should suspend")
	}

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 1024, WindowHeight: 768}})
	if e.isSuspended {
		t.Fatal("non-zero size should resume")
	}
	if w, h := e.GetFramebufferSize(); w != 1024 || h != 768 {
		t.Errorf("size = %dx%d, want 1024x768", w, h)
	}
}

func TestShaderChangeSchedulesReload(t *testing.T) {
	e := newTestEngine(t)

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_SHADER_CHANGED, Data: &core.AssetEvent{Path: "assets/shaders/frag.spv"}})
	if !e.reloadPending {
		t.Fatal("expected a pending shader reload")
	}
}

func TestStageString(t *testing.T) {
	if EngineStageRunning.String() != "running" {
		t.Errorf("got %q", EngineStageRunning.String())
	}
	if Stage(200).String() != "unknown" {
		t.Errorf("got %q", Stage(200).String())
	}
}
