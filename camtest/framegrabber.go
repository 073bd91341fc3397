package camtest

import (
	"context"
	"sync"

	"camcore/backend/frametransport"
	"camcore/camera"
	"camcore/camerr"
	"camcore/param"
)

// FrameGrabberFake models the frame-grabber transport family from
// spec.md §1: frames live in a DMA-mapped region the backend owns, and
// Grab/Readout must copy out of it rather than hand back a reference
// — exercising backend/frametransport.DMARegion and the "no zero-copy
// escape of device-owned memory" rule from §5 concretely, instead of
// only through the plain in-Go Fake.
type FrameGrabberFake struct {
	name string
	geom camera.Geometry

	registry *param.Registry
	sm       *camera.StateMachine

	region *frametransport.DMARegion
	slots  int

	mu           sync.Mutex
	writeCursor  int
	frameCounter uint64
}

// NewFrameGrabber builds a frame-grabber-family fake whose on-board
// memory is an anonymous DMA mapping sized for slots frames at geom's
// block size.
func NewFrameGrabber(name string, geom camera.Geometry, slots int) (*FrameGrabberFake, error) {
	region, err := frametransport.MapAnonymous(geom.BlockSize() * slots)
	if err != nil {
		return nil, err
	}
	f := &FrameGrabberFake{
		name:   name,
		geom:   geom,
		sm:     camera.NewStateMachine(),
		region: region,
		slots:  slots,
	}
	f.registry = param.NewRegistry()
	f.registry.Recording = f.sm.IsRecording
	f.registry.Declare(param.Descriptor{
		Name: "exposure_time", Kind: param.KindFloat64,
		Default: param.Float64(0.010), Range: &param.Range{Min: 0.00001, Max: 60},
		Unit: param.UnitSecond, Access: param.AccessRW, LiveWritable: true,
	})
	return f, nil
}

func (f *FrameGrabberFake) Name() string               { return f.name }
func (f *FrameGrabberFake) Parameters() *param.Registry { return f.registry }

func (f *FrameGrabberFake) StartRecording(ctx context.Context) error {
	if err := f.sm.BeginRecording(); err != nil {
		return err
	}
	f.mu.Lock()
	f.writeCursor = 0
	f.frameCounter = 0
	f.mu.Unlock()
	return nil
}

func (f *FrameGrabberFake) StopRecording(ctx context.Context) error {
	return f.sm.EndRecording()
}

func (f *FrameGrabberFake) Trigger(ctx context.Context) error { return nil }

// Grab simulates the DMA engine landing the next frame in its mapped
// ring slot, then copies it into dst — the driver must never receive
// a slice that aliases f.region directly.
func (f *FrameGrabberFake) Grab(ctx context.Context, dst []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, err := f.region.Slice(f.geom.BlockSize(), f.writeCursor%f.slots)
	if err != nil {
		return false, camerr.Internalf("frame grabber DMA region: %v", err)
	}
	fillFrame(slot, f.frameCounter)

	copy(dst, slot)

	f.writeCursor++
	f.frameCounter++
	return true, nil
}

func (f *FrameGrabberFake) Readout(ctx context.Context, dst []byte, index int) (bool, error) {
	return false, camerr.Unsupportedf("frame grabber fake has no camRAM readout")
}

func (f *FrameGrabberFake) StartReadout(ctx context.Context) error {
	return camerr.Unsupportedf("frame grabber fake has no camRAM")
}

func (f *FrameGrabberFake) StopReadout(ctx context.Context) error {
	return camerr.Unsupportedf("frame grabber fake has no camRAM")
}

func (f *FrameGrabberFake) Write(ctx context.Context, name string, blob []byte) error {
	return nil
}

func (f *FrameGrabberFake) Status() camera.Status {
	return camera.Status{IsRecording: f.sm.State() == camera.StateRecording}
}

// Close releases the fake's DMA mapping. Tests that construct a
// FrameGrabberFake should defer this.
func (f *FrameGrabberFake) Close() error {
	return f.region.Close()
}
