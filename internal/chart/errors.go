package chart

import (
	"errors"
	"fmt"
)

var (
	// ErrDataQuality marks a raw bar that cannot be placed on the time axis
	// or carries a non-numeric price field. Such bars are dropped.
	ErrDataQuality = errors.New("chart: data quality")
	// ErrSurfaceAllocation is fatal to the owning session only.
	ErrSurfaceAllocation = errors.New("chart: surface allocation failed")
	ErrSessionClosed     = errors.New("chart: session closed")
	// ErrSuperseded is returned for payloads that no longer match the view selection.
	ErrSuperseded = errors.New("chart: payload superseded")
	// ErrOverlayUnavailable is informational: the overlay has no matching backing data.
	ErrOverlayUnavailable = errors.New("chart: overlay unavailable")
	ErrOverlayIndex       = errors.New("chart: overlay index out of range")
	ErrDuplicateOverlay   = errors.New("chart: duplicate overlay")
	ErrInvalidOverlay     = errors.New("chart: invalid overlay")
	ErrInvalidInterval    = errors.New("chart: invalid interval")

	errContainerMissing = errors.New("container missing")
)

// SurfaceAllocationError reports which container could not host a surface.
type SurfaceAllocationError struct {
	ContainerID string
	Err         error
}

func (e *SurfaceAllocationError) Error() string {
	return fmt.Sprintf("chart: allocate surface for container %q: %v", e.ContainerID, e.Err)
}

func (e *SurfaceAllocationError) Unwrap() error { return e.Err }

// Is lets callers match any allocation failure with errors.Is(err, ErrSurfaceAllocation).
func (e *SurfaceAllocationError) Is(target error) bool {
	return target == ErrSurfaceAllocation
}
