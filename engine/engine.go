package engine

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/spaghettifunk/vkquad/engine/assets"
	"github.com/spaghettifunk/vkquad/engine/config"
	"github.com/spaghettifunk/vkquad/engine/core"
	"github.com/spaghettifunk/vkquad/engine/platform"
	"github.com/spaghettifunk/vkquad/engine/renderer"
	"github.com/spaghettifunk/vkquad/engine/renderer/metadata"
	"github.com/spaghettifunk/vkquad/engine/renderer/vulkan"
)

var _ renderer.RendererBackend = (*vulkan.VulkanBackend)(nil)

type Engine struct {
	currentStage  Stage
	config        *config.ApplicationConfig
	isRunning     bool
	isSuspended   bool
	reloadPending bool
	quitRequested atomic.Bool
	platform      *platform.Platform
	backend       *vulkan.VulkanBackend
	renderer      *renderer.Renderer
	assetManager  *assets.AssetManager
	width         uint32
	height        uint32
	clock         *core.Clock
	lastTime      float64
}

func New(cfg *config.ApplicationConfig) (*Engine, error) {
	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		clock:        core.NewClock(),
		platform:     p,
		isRunning:    true,
		isSuspended:  false,
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	core.SetLogLevel(core.ParseLogLevel(e.config.LogLevel))

	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	e.registerListeners()

	if err := e.platform.Startup(e.config.Name,
		e.config.Window.X,
		e.config.Window.Y,
		e.config.Window.Width,
		e.config.Window.Height); err != nil {
		return err
	}

	vert, frag, err := e.loadShaders()
	if err != nil {
		return err
	}

	backend := vulkan.New(e.platform, e.config.Validation)
	if err := backend.Initialize(e.config.Name); err != nil {
		return err
	}
	e.backend = backend

	e.renderer, err = renderer.New(e.backend, e.platform, renderer.RendererConfig{
		FramesInFlight: e.config.Renderer.FramesInFlight,
		ClearColor:     metadata.ClearColor(e.config.Renderer.ClearColor),
		VertexShader:   vert,
		FragmentShader: frag,
	})
	if err != nil {
		// The renderer already shut the backend down.
		e.backend = nil
		return err
	}

	if e.config.Shaders.HotReload {
		am, err := assets.NewAssetManager()
		if err != nil {
			return err
		}
		e.assetManager = am
		if err := am.Watch(e.config.Shaders.Dir); err != nil {
			// Hot reload is a convenience, rendering works without it.
			core.LogWarn("shader hot reload disabled: %s", err)
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) registerListeners() {
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_SHADER_CHANGED, e, e.onShaderChanged)
}

func (e *Engine) loadShaders() ([]byte, []byte, error) {
	vert, err := assets.LoadShader(filepath.Join(e.config.Shaders.Dir, e.config.Shaders.Vertex))
	if err != nil {
		return nil, nil, err
	}
	frag, err := assets.LoadShader(filepath.Join(e.config.Shaders.Dir, e.config.Shaders.Fragment))
	if err != nil {
		return nil, nil, err
	}
	return vert, frag, nil
}

// Run drives the frame loop until the window closes or escape is released.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		if e.quitRequested.Load() {
			core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		}
		e.drainShaderChanges()
		if !e.isRunning {
			break
		}

		if e.isSuspended {
			// Nothing to present to, block until the window changes.
			e.platform.WaitEvents()
			continue
		}

		if e.reloadPending {
			e.reloadPending = false
			if err := e.reloadShaders(); err != nil {
				core.LogError("shader reload failed: %s", err)
			}
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()

		if _, err := e.renderer.DrawFrame(currentTime); err != nil {
			return err
		}

		if core.MetricsUpdate(currentTime - e.lastTime) {
			core.LogDebug("FPS: %.0f (%.3f ms/frame)", core.MetricsFPS(), core.MetricsFrameTime())
		}

		if err := core.InputUpdate(currentTime - e.lastTime); err != nil {
			return err
		}
		e.lastTime = currentTime
	}
	return nil
}

// RequestQuit asks the loop to stop at the next iteration. Safe to call from any goroutine.
func (e *Engine) RequestQuit() {
	e.quitRequested.Store(true)
	platform.PostEmptyEvent()
}

func (e *Engine) drainShaderChanges() {
	if e.assetManager == nil {
		return
	}
	for {
		select {
		case path, ok := <-e.assetManager.Changes():
			if !ok {
				return
			}
			core.EventFire(core.EventContext{
				Type: core.EVENT_CODE_SHADER_CHANGED,
				Data: &core.AssetEvent{Path: path},
			})
		default:
			return
		}
	}
}

func (e *Engine) reloadShaders() error {
	vert, frag, err := e.loadShaders()
	if err != nil {
		return err
	}
	return e.renderer.ReloadShaders(vert, frag)
}

// Shutdown releases everything Initialize created, in reverse order.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	if e.assetManager != nil {
		if err := e.assetManager.Close(); err != nil {
			core.LogWarn("failed to close the shader watcher: %s", err)
		}
		e.assetManager = nil
	}
	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			return err
		}
		e.renderer = nil
		e.backend = nil
	}
	if e.platform.Window != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageShutdown
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	if context.Type == core.EVENT_CODE_KEY_RELEASED && ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height && !e.isSuspended {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.OnResize(width, height)
	}
	return false
}

func (e *Engine) onShaderChanged(context core.EventContext) bool {
	if ae, ok := context.Data.(*core.AssetEvent); ok {
		core.LogInfo("shader changed on disk: %s", ae.Path)
	}
	e.reloadPending = true
	return false
}
