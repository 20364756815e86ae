package core

import (
	"errors"
	"fmt"
)

var (
	ErrSwapchainBooting     = errors.New("swapchain resized or recreated, booting")
	ErrNoSuitableMemoryType = errors.New("no memory type satisfies the requested properties")
	ErrNoSuitableDevice     = errors.New("no physical device supports graphics and presentation")
	ErrUsageNotAllowed      = errors.New("buffer usage does not allow the operation")
	ErrMapFailed            = errors.New("failed to map device memory")
	ErrUnknown              = errors.New("unknown")
)

// ErrorKind classifies fatal renderer failures.
type ErrorKind uint8

const (
	// A required instance/device capability, extension or layer is missing.
	KindCapabilityMissing ErrorKind = iota
	// A GPU object or memory allocation could not be created.
	KindAllocationFailed
	// The API returned a status outside the recognized success/stale/suboptimal set.
	KindStatusUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindCapabilityMissing:
		return "capability missing"
	case KindAllocationFailed:
		return "allocation failed"
	case KindStatusUnexpected:
		return "unexpected status"
	}
	return "unknown"
}

// RendererError is returned by every fallible renderer operation.
type RendererError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *RendererError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *RendererError) Unwrap() error {
	return e.Err
}

func NewCapabilityError(op string, err error) error {
	return &RendererError{Kind: KindCapabilityMissing, Op: op, Err: err}
}

func NewAllocationError(op string, err error) error {
	return &RendererError{Kind: KindAllocationFailed, Op: op, Err: err}
}

func NewStatusError(op string, err error) error {
	return &RendererError{Kind: KindStatusUnexpected, Op: op, Err: err}
}

// ErrorKindOf reports the kind of a wrapped RendererError, if any.
func ErrorKindOf(err error) (ErrorKind, bool) {
	var re *RendererError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}
