// Package camera defines the polymorphic device contract every
// concrete backend must implement (frame-grabber DMA, PCIe event
// stream, UDP socket, vendor SDK), plus the shared geometry/timing/
// trigger vocabulary and the acquisition state machine that serializes
// access to it.
//
// Concrete backends are external collaborators (plugin-discovered, per
// SPEC_FULL.md §6); this package only defines the shape they fill in,
// the way the teacher's hardware/i2c package defines register access
// primitives that airsensor/expander/brightness each build a concrete
// device on top of.
package camera

import (
	"context"

	"camcore/camerr"
	"camcore/param"
)

// TriggerSource selects who produces frames during RECORDING.
type TriggerSource int

const (
	TriggerAuto TriggerSource = iota
	TriggerSoftware
	TriggerExternal
)

func (t TriggerSource) String() string {
	switch t {
	case TriggerSoftware:
		return "software"
	case TriggerExternal:
		return "external"
	default:
		return "auto"
	}
}

// AllowedTriggerSources lists the enumerated values of TriggerSource
// for publication through a Descriptor's Allowed set.
func AllowedTriggerSources() []TriggerSource {
	return []TriggerSource{TriggerAuto, TriggerSoftware, TriggerExternal}
}

// TriggerType selects EXTERNAL trigger signal semantics.
type TriggerType int

const (
	TriggerEdge TriggerType = iota
	TriggerLevel
)

func (t TriggerType) String() string {
	if t == TriggerLevel {
		return "level"
	}
	return "edge"
}

// Geometry describes the sensor and the currently configured ROI.
type Geometry struct {
	SensorWidth, SensorHeight   int
	ROIX, ROIY                  int
	ROIWidth, ROIHeight         int
	ROIWidthMultiplier          int
	ROIHeightMultiplier         int
	SensorBitDepth              int
}

// BytesPerSample follows spec.md §3: 1 if bit depth <= 8, else 2.
func (g Geometry) BytesPerSample() int {
	if g.SensorBitDepth <= 8 {
		return 1
	}
	return 2
}

// BlockSize is the exact byte size of one frame at this geometry.
func (g Geometry) BlockSize() int {
	return g.ROIWidth * g.ROIHeight * g.BytesPerSample()
}

// Validate checks the geometry invariants C1/C2 from spec.md §3.
func (g Geometry) Validate(horizontalBinning, verticalBinning int) error {
	if g.ROIWidthMultiplier <= 0 || g.ROIHeightMultiplier <= 0 {
		return camerr.OutOfRangef("roi multipliers must be positive")
	}
	if g.ROIWidth%g.ROIWidthMultiplier != 0 {
		return camerr.OutOfRangef("roi_width %d is not a multiple of %d", g.ROIWidth, g.ROIWidthMultiplier)
	}
	if g.ROIHeight%g.ROIHeightMultiplier != 0 {
		return camerr.OutOfRangef("roi_height %d is not a multiple of %d", g.ROIHeight, g.ROIHeightMultiplier)
	}
	if horizontalBinning <= 0 {
		horizontalBinning = 1
	}
	if verticalBinning <= 0 {
		verticalBinning = 1
	}
	if g.ROIX+g.ROIWidth > g.SensorWidth/horizontalBinning {
		return camerr.OutOfRangef("roi exceeds sensor width: x=%d width=%d sensor=%d binning=%d",
			g.ROIX, g.ROIWidth, g.SensorWidth, horizontalBinning)
	}
	if g.ROIY+g.ROIHeight > g.SensorHeight/verticalBinning {
		return camerr.OutOfRangef("roi exceeds sensor height: y=%d height=%d sensor=%d binning=%d",
			g.ROIY, g.ROIHeight, g.SensorHeight, verticalBinning)
	}
	return nil
}

// Timing holds the exposure/rate parameters. DelayTime is optional
// (zero means unset); whether FPS and ExposureTime are coupled is
// backend-defined per spec.md §9 Open Questions.
type Timing struct {
	ExposureTime    float64 // seconds
	FramesPerSecond float64
	DelayTime       float64 // seconds, 0 if unused
}

// Trigger holds the current trigger configuration.
type Trigger struct {
	Source TriggerSource
	Type   TriggerType
}

// Binning and transport-mode attributes (horizontal_binning,
// vertical_binning, transfer_asynchronously, buffered, num_buffers)
// have no dedicated struct: spec.md §3's design notes publish them as
// ordinary param.Descriptor entries ("binning and pixel-rate sets are
// published this way"), same as exposure_time or roi_width. A backend
// declares them through its registry (see camtest.New) rather than
// through a typed accessor here.

// Status is the read-only status block from spec.md §3.
type Status struct {
	IsRecording        bool
	IsReadout          bool
	HasStreaming       bool
	HasCamramRecording bool
	RecordedFrames     uint64
}

// Camera is the contract every concrete backend fulfills. All methods
// must be safe to call serially — the acquisition driver guarantees
// the backend is never entered concurrently for a single camera
// (spec.md §5) — but a backend implementation must not assume its own
// re-entrancy beyond that guarantee.
type Camera interface {
	// Name identifies the camera for logging and diagnostics.
	Name() string

	// Parameters returns the camera's parameter registry. The registry
	// is the only path through which geometry/timing/trigger/binning
	// are read or written (spec.md §4.1).
	Parameters() *param.Registry

	// StartRecording arms the sensor and begins producing frames at the
	// cadence dictated by the current trigger source.
	StartRecording(ctx context.Context) error
	// StopRecording halts production, flushes transport buffers, and
	// returns the device to IDLE.
	StopRecording(ctx context.Context) error
	// Trigger causes exactly one frame when trigger_source == SOFTWARE
	// and the camera is RECORDING.
	Trigger(ctx context.Context) error

	// Grab blocks until the next frame is available or a device
	// timeout elapses, copying one frame into dst. ok is false only to
	// signal end-of-stream, which is valid exclusively in READOUT.
	Grab(ctx context.Context, dst []byte) (ok bool, err error)
	// Readout retrieves a specific frame from on-camera memory. Valid
	// only in READOUT.
	Readout(ctx context.Context, dst []byte, index int) (ok bool, err error)

	StartReadout(ctx context.Context) error
	StopReadout(ctx context.Context) error

	// Write is a device-defined side channel for bulk configuration
	// (firmware, lookup tables); opaque to the core.
	Write(ctx context.Context, name string, blob []byte) error

	// Status returns the current read-only status block.
	Status() Status
}
