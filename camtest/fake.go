// Package camtest provides a scriptable fake backend implementing the
// camera.Camera contract, used to exercise the acquisition driver
// without real hardware — grounded on the teacher's pattern of small,
// self-contained hardware fakes per concern rather than a mocking
// framework (e.g. hardware/tpms tracks sensor state entirely in Go
// structs with no I/O dependency injected).
package camtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"camcore/camera"
	"camcore/camerr"
	"camcore/param"
)

// Fake is a software camera backend: it "produces" frames by filling
// each block with an incrementing byte sequence, so tests can verify
// frame identity and ordering through the ring buffer without any real
// transport. It supports every transport family's notable quirk
// through its exported fields (GrabDelay, NeverDeliver, FailEveryNth)
// and Config so a single fake can stand in for frame-grabber,
// PCIe, UDP, or vendor-SDK backends in driver tests.
type Fake struct {
	name string
	geom camera.Geometry

	registry *param.Registry
	sm       *camera.StateMachine

	mu            sync.Mutex
	frameCounter  uint64
	softTrigger   chan struct{}
	hasStreaming  bool
	hasCamram     bool
	camramFrames  int // total frames available for readout
	camramRead    int

	// GrabDelay simulates transport latency per Grab call.
	GrabDelay time.Duration
	// NeverDeliver makes Grab block until ctx is cancelled, simulating
	// a device that never produces a frame (Timeout scenario, §8.6).
	NeverDeliver bool
	// FailEveryNth, when > 0, makes every Nth Grab return a transient
	// Device error without aborting the producer (§7 propagation
	// policy: single-frame failures are not fatal).
	FailEveryNth int
	grabCount    atomic.Uint64
}

// Config seeds the fake's initial geometry/timing/trigger parameters.
type Config struct {
	Name               string
	Geometry           camera.Geometry
	TriggerSource      camera.TriggerSource
	HasStreaming       bool
	HasCamramRecording bool
}

// New builds a fake camera in IDLE with the given configuration.
func New(cfg Config) *Fake {
	f := &Fake{
		name:         cfg.Name,
		geom:         cfg.Geometry,
		sm:           camera.NewStateMachine(),
		softTrigger:  make(chan struct{}, 1),
		hasStreaming: cfg.HasStreaming,
		hasCamram:    cfg.HasCamramRecording,
	}
	f.registry = param.NewRegistry()
	f.registry.Recording = f.sm.IsRecording
	f.registry.CrossCheck = f.validateGeometry

	f.registry.Declare(param.Descriptor{
		Name: "exposure_time", Kind: param.KindFloat64,
		Default: param.Float64(0.010), Range: &param.Range{Min: 0.00001, Max: 60},
		Unit: param.UnitSecond, Access: param.AccessRW, LiveWritable: true,
	})
	f.registry.Declare(param.Descriptor{
		Name: "frames_per_second", Kind: param.KindFloat64,
		Default: param.Float64(100), Range: &param.Range{Min: 0.01, Max: 10000},
		Unit: param.UnitNA, Access: param.AccessRW, LiveWritable: true,
	})
	f.registry.Declare(param.Descriptor{
		Name: "roi_x", Kind: param.KindInt64,
		Default: param.Int64(int64(cfg.Geometry.ROIX)),
		Range:   &param.Range{Min: 0, Max: float64(cfg.Geometry.SensorWidth)},
		Unit: param.UnitPixel, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "roi_y", Kind: param.KindInt64,
		Default: param.Int64(int64(cfg.Geometry.ROIY)),
		Range:   &param.Range{Min: 0, Max: float64(cfg.Geometry.SensorHeight)},
		Unit: param.UnitPixel, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "roi_width", Kind: param.KindInt64,
		Default: param.Int64(int64(cfg.Geometry.ROIWidth)),
		Range:   &param.Range{Min: float64(cfg.Geometry.ROIWidthMultiplier), Max: float64(cfg.Geometry.SensorWidth), Step: float64(cfg.Geometry.ROIWidthMultiplier)},
		Unit: param.UnitPixel, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "roi_height", Kind: param.KindInt64,
		Default: param.Int64(int64(cfg.Geometry.ROIHeight)),
		Range:   &param.Range{Min: float64(cfg.Geometry.ROIHeightMultiplier), Max: float64(cfg.Geometry.SensorHeight), Step: float64(cfg.Geometry.ROIHeightMultiplier)},
		Unit: param.UnitPixel, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "trigger_source", Kind: param.KindEnum,
		Default: param.Enum(int(cfg.TriggerSource)),
		Allowed: []param.Value{param.Enum(int(camera.TriggerAuto)), param.Enum(int(camera.TriggerSoftware)), param.Enum(int(camera.TriggerExternal))},
		Unit: param.UnitNA, Access: param.AccessRW, LiveWritable: true,
	})
	f.registry.Declare(param.Descriptor{
		Name: "horizontal_binning", Kind: param.KindInt64,
		Default: param.Int64(1),
		Allowed: []param.Value{param.Int64(1), param.Int64(2), param.Int64(4)},
		Unit: param.UnitNA, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "vertical_binning", Kind: param.KindInt64,
		Default: param.Int64(1),
		Allowed: []param.Value{param.Int64(1), param.Int64(2), param.Int64(4)},
		Unit: param.UnitNA, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "transfer_asynchronously", Kind: param.KindBool,
		Default: param.Bool(false),
		Unit: param.UnitNA, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "buffered", Kind: param.KindBool,
		Default: param.Bool(true),
		Unit: param.UnitNA, Access: param.AccessRW, LiveWritable: false,
	})
	f.registry.Declare(param.Descriptor{
		Name: "num_buffers", Kind: param.KindInt64,
		Default: param.Int64(4),
		Range:   &param.Range{Min: 1, Max: 256},
		Unit: param.UnitCount, Access: param.AccessRW, LiveWritable: false,
	})

	return f
}

// validateGeometry is the registry's CrossCheck hook: it re-derives a
// full camera.Geometry from the prospective snapshot and runs
// camera.Geometry.Validate (C1/C2) against it, so a write to any one of
// roi_x/roi_y/roi_width/roi_height/horizontal_binning/vertical_binning
// is checked together with the others rather than in isolation.
func (f *Fake) validateGeometry(name string, snap map[string]param.Value) error {
	switch name {
	case "roi_x", "roi_y", "roi_width", "roi_height", "horizontal_binning", "vertical_binning":
	default:
		return nil
	}
	g := f.geom
	g.ROIX = int(snap["roi_x"].Int64)
	g.ROIY = int(snap["roi_y"].Int64)
	g.ROIWidth = int(snap["roi_width"].Int64)
	g.ROIHeight = int(snap["roi_height"].Int64)
	hBin := int(snap["horizontal_binning"].Int64)
	vBin := int(snap["vertical_binning"].Int64)
	return g.Validate(hBin, vBin)
}

func (f *Fake) Name() string                   { return f.name }
func (f *Fake) Parameters() *param.Registry     { return f.registry }

func (f *Fake) triggerSource() camera.TriggerSource {
	v, _ := f.registry.Get("trigger_source")
	return camera.TriggerSource(v.Enum)
}

func (f *Fake) StartRecording(ctx context.Context) error {
	if err := f.sm.BeginRecording(); err != nil {
		return err
	}
	f.mu.Lock()
	f.frameCounter = 0
	f.mu.Unlock()
	return nil
}

func (f *Fake) StopRecording(ctx context.Context) error {
	return f.sm.EndRecording()
}

// Trigger causes exactly one frame in SOFTWARE mode. In AUTO mode this
// fake treats it as a documented no-op (spec.md §9 Open Questions
// leaves the choice to backend documentation, as long as it is
// consistent — this backend is always a no-op in AUTO, never an
// error).
func (f *Fake) Trigger(ctx context.Context) error {
	if f.sm.State() != camera.StateRecording {
		return camerr.NotRecordingf("fake camera %q is not recording", f.name)
	}
	if f.triggerSource() != camera.TriggerSoftware {
		return nil
	}
	select {
	case f.softTrigger <- struct{}{}:
	default:
	}
	return nil
}

func (f *Fake) Grab(ctx context.Context, dst []byte) (bool, error) {
	n := f.grabCount.Add(1)
	if f.FailEveryNth > 0 && n%uint64(f.FailEveryNth) == 0 {
		return false, camerr.Devicef(42, "simulated transient transport error")
	}

	switch f.triggerSource() {
	case camera.TriggerSoftware:
		select {
		case <-f.softTrigger:
		case <-ctx.Done():
			return false, camerr.Timeoutf("grab cancelled waiting for software trigger")
		}
	default:
		if f.NeverDeliver {
			<-ctx.Done()
			return false, camerr.Timeoutf("grab timed out: device never delivered a frame")
		}
		if f.GrabDelay > 0 {
			t := time.NewTimer(f.GrabDelay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return false, camerr.Timeoutf("grab timed out")
			}
		}
	}

	f.mu.Lock()
	idx := f.frameCounter
	f.frameCounter++
	f.mu.Unlock()
	fillFrame(dst, idx)
	return true, nil
}

func (f *Fake) Readout(ctx context.Context, dst []byte, index int) (bool, error) {
	if f.sm.State() != camera.StateReadout {
		return false, camerr.NotRecordingf("fake camera %q is not in readout", f.name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if index >= f.camramFrames {
		return false, nil // end-of-stream, not an error
	}
	fillFrame(dst, uint64(index))
	return true, nil
}

func (f *Fake) StartReadout(ctx context.Context) error {
	if !f.hasCamram {
		return camerr.Unsupportedf("fake camera %q has no camRAM", f.name)
	}
	return f.sm.BeginReadout()
}

func (f *Fake) StopReadout(ctx context.Context) error {
	return f.sm.EndReadout()
}

func (f *Fake) Write(ctx context.Context, name string, blob []byte) error {
	return nil
}

func (f *Fake) Status() camera.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return camera.Status{
		IsRecording:        f.sm.State() == camera.StateRecording,
		IsReadout:          f.sm.State() == camera.StateReadout,
		HasStreaming:       f.hasStreaming,
		HasCamramRecording: f.hasCamram,
		RecordedFrames:     f.frameCounter,
	}
}

// SeedCamram populates n frames of on-board memory available for a
// subsequent StartReadout/Readout drain (simulating a prior recording
// into camRAM, §8 scenario 3).
func (f *Fake) SeedCamram(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.camramFrames = n
}

// OnRecordingChange exposes the underlying state machine's observer
// hook so driver tests can assert notification semantics end-to-end.
func (f *Fake) OnRecordingChange(fn func(bool)) func() {
	return f.sm.OnRecordingChange(fn)
}

func fillFrame(dst []byte, idx uint64) {
	for i := range dst {
		dst[i] = byte(idx) + byte(i)
	}
}
