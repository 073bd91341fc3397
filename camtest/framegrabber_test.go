package camtest

import (
	"context"
	"testing"

	"camcore/camera"
)

func TestFrameGrabberFakeGrabCopiesOutOfDMARegion(t *testing.T) {
	geom := camera.Geometry{
		SensorWidth: 16, SensorHeight: 16,
		ROIWidth: 16, ROIHeight: 16,
		ROIWidthMultiplier: 1, ROIHeightMultiplier: 1,
		SensorBitDepth: 8,
	}
	fg, err := NewFrameGrabber("fg0", geom, 4)
	if err != nil {
		t.Fatalf("NewFrameGrabber: %v", err)
	}
	defer fg.Close()

	ctx := context.Background()
	if err := fg.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	buf := make([]byte, geom.BlockSize())
	ok, err := fg.Grab(ctx, buf)
	if err != nil || !ok {
		t.Fatalf("Grab: ok=%v err=%v", ok, err)
	}
	if buf[0] != 0 {
		t.Fatalf("first grabbed frame's marker byte = %d, want 0", buf[0])
	}

	// Mutating the caller's buffer must not corrupt the backing DMA
	// region: a second grab into a fresh buffer reads the same frame
	// content sequence, unaffected by the first buffer's mutation.
	buf[0] = 0xFF

	buf2 := make([]byte, geom.BlockSize())
	ok, err = fg.Grab(ctx, buf2)
	if err != nil || !ok {
		t.Fatalf("second Grab: ok=%v err=%v", ok, err)
	}
	if buf2[0] != 1 {
		t.Fatalf("second grabbed frame's marker byte = %d, want 1", buf2[0])
	}
}

func TestFrameGrabberFakeHasNoCamram(t *testing.T) {
	geom := camera.Geometry{
		SensorWidth: 8, SensorHeight: 8, ROIWidth: 8, ROIHeight: 8,
		ROIWidthMultiplier: 1, ROIHeightMultiplier: 1, SensorBitDepth: 8,
	}
	fg, err := NewFrameGrabber("fg0", geom, 2)
	if err != nil {
		t.Fatalf("NewFrameGrabber: %v", err)
	}
	defer fg.Close()

	if err := fg.StartReadout(context.Background()); err == nil {
		t.Fatal("expected Unsupported starting readout on a frame grabber fake")
	}
}
