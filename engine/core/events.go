package core

import (
	"sync"

	"github.com/spaghettifunk/vkquad/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed. Data is a *KeyEvent.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Keyboard key released. Data is a *KeyEvent.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03

	// Resized/resolution changed from the OS. Data is a *SystemEvent.
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A compiled shader on disk changed. Data is a *AssetEvent.
	EVENT_CODE_SHADER_CHANGED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Pending events are buffered up to this many between two pumps.
const MAX_QUEUED_EVENTS = 256

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	Path string
}

// Should return true if handled.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	registered [MAX_EVENT_CODE + 1][]*registeredEvent
	queue      *containers.RingQueue[EventContext]
}

var onceEvent sync.Once
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	initialized := false
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			queue: containers.NewRingQueue[EventContext](MAX_QUEUED_EVENTS),
		}
		initialized = true
	})
	return initialized
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	for i := range eventState.registered {
		eventState.registered[i] = nil
	}
	for !eventState.queue.IsEmpty() {
		_, _ = eventState.queue.Dequeue()
	}
	return nil
}

// EventRegister adds a listener for the code. A listener can be registered only once per code.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if eventState == nil || code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

func EventUnregister(code SystemEventCode, listener interface{}) bool {
	if eventState == nil || code < 0 || code > MAX_EVENT_CODE {
		return false
	}
	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire dispatches the event to its listeners right away. If a listener
// returns true the event is considered handled and is not passed on.
func EventFire(context EventContext) bool {
	if eventState == nil || context.Type < 0 || context.Type > MAX_EVENT_CODE {
		return false
	}
	for _, e := range eventState.registered[context.Type] {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// EventPost queues the event until the next ProcessEvents call. Window
// callbacks use this so that no renderer work happens inside them.
func EventPost(context EventContext) error {
	if eventState == nil {
		return ErrUnknown
	}
	return eventState.queue.Enqueue(context)
}

// ProcessEvents fires every queued event in order.
func ProcessEvents() {
	if eventState == nil {
		return
	}
	for !eventState.queue.IsEmpty() {
		ctx, err := eventState.queue.Dequeue()
		if err != nil {
			return
		}
		EventFire(ctx)
	}
}
