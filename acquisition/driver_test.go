package acquisition

import (
	"context"
	"testing"
	"time"

	"camcore/camera"
	"camcore/camerr"
	"camcore/camtest"
	"camcore/param"
	"camcore/ringbuffer"
)

func testGeometry() camera.Geometry {
	return camera.Geometry{
		SensorWidth: 64, SensorHeight: 64,
		ROIWidth: 64, ROIHeight: 64,
		ROIWidthMultiplier: 1, ROIHeightMultiplier: 1,
		SensorBitDepth: 8,
	}
}

func newFake(cfg camtest.Config) *camtest.Fake {
	if cfg.Geometry == (camera.Geometry{}) {
		cfg.Geometry = testGeometry()
	}
	if cfg.Name == "" {
		cfg.Name = "fake0"
	}
	return camtest.New(cfg)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.GrabTimeout = 200 * time.Millisecond
	cfg.SoftwareTriggerPeriod = time.Millisecond
	return cfg
}

// §8 scenario: synchronous grab mode delivers frames in order while
// RECORDING and rejects grabs outside RECORDING/READOUT.
func TestGrabSynchronous(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	d := New(cam, nil, fastConfig())
	ctx := context.Background()

	buf := make([]byte, testGeometry().BlockSize())
	if _, err := d.Grab(ctx, buf); !camerr.Is(err, camerr.NotRecording) {
		t.Fatalf("grab before recording: want NotRecording, got %v", err)
	}

	if err := d.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	defer d.StopRecording(ctx)

	for i := 0; i < 5; i++ {
		ok, err := d.Grab(ctx, buf)
		if err != nil || !ok {
			t.Fatalf("grab %d: ok=%v err=%v", i, ok, err)
		}
		if buf[0] != byte(i) {
			t.Fatalf("grab %d: want first byte %d, got %d", i, i, buf[0])
		}
	}
}

// §8 scenario 6: a backend that never delivers surfaces Timeout, not a
// hang.
func TestGrabTimeout(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	cam.NeverDeliver = true
	cfg := fastConfig()
	cfg.GrabTimeout = 20 * time.Millisecond
	d := New(cam, nil, cfg)
	ctx := context.Background()

	if err := d.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	defer d.StopRecording(ctx)

	buf := make([]byte, testGeometry().BlockSize())
	_, err := d.Grab(ctx, buf)
	if !camerr.Is(err, camerr.Timeout) {
		t.Fatalf("want Timeout, got %v", err)
	}
}

// §8 scenario 2: async push mode delivers roughly one callback per
// backend frame, with the callback running off the caller's goroutine.
func TestStartAsyncPushCallbackCadence(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	d := New(cam, nil, fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := 0
	var lastLen int
	d.SetGrabCallback(func(frame []byte) {
		n++
		lastLen = len(frame)
	})

	if err := d.StartAsyncPush(ctx, testGeometry().BlockSize()); err != nil {
		t.Fatalf("StartAsyncPush: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if err := d.StopRecording(context.Background()); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	if n == 0 {
		t.Fatalf("expected at least one callback invocation, got 0")
	}
	if lastLen != testGeometry().BlockSize() {
		t.Fatalf("callback frame length = %d, want %d", lastLen, testGeometry().BlockSize())
	}
}

func TestStartAsyncPushRequiresCallback(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	d := New(cam, nil, fastConfig())
	err := d.StartAsyncPush(context.Background(), testGeometry().BlockSize())
	if !camerr.Is(err, camerr.Internal) {
		t.Fatalf("want Internal, got %v", err)
	}
}

// §8 scenario 1: preview -> record -> save, exercised through the
// driver's record-to-ring mode.
func TestStartRecordToRing(t *testing.T) {
	geom := testGeometry()
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	ring, err := ringbuffer.New(geom.BlockSize(), 8)
	if err != nil {
		t.Fatalf("ringbuffer.New: %v", err)
	}
	d := New(cam, ring, fastConfig())
	ctx := context.Background()

	if err := d.StartRecord(ctx, 10); err != nil {
		t.Fatalf("StartRecord: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if ring.NumBlocks() == 8 && cam.Status().RecordedFrames == 10 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for record-to-ring to finish: blocks=%d frames=%d",
				ring.NumBlocks(), cam.Status().RecordedFrames)
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := d.StopRecording(ctx); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}

	// 10 frames written into an 8-capacity ring: get_ptr(0) is the 3rd
	// write (index 2), get_ptr(7) is the 10th (index 9).
	first, err := ring.GetPtr(0)
	if err != nil {
		t.Fatalf("GetPtr(0): %v", err)
	}
	if first[0] != 2 {
		t.Fatalf("GetPtr(0)[0] = %d, want 2", first[0])
	}
	last, err := ring.GetPtr(7)
	if err != nil {
		t.Fatalf("GetPtr(7): %v", err)
	}
	if last[0] != 9 {
		t.Fatalf("GetPtr(7)[0] = %d, want 9", last[0])
	}
}

func TestStartRecordRequiresRing(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	d := New(cam, nil, fastConfig())
	err := d.StartRecord(context.Background(), 1)
	if !camerr.Is(err, camerr.Internal) {
		t.Fatalf("want Internal, got %v", err)
	}
}

func TestStartRecordBusy(t *testing.T) {
	geom := testGeometry()
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	ring, _ := ringbuffer.New(geom.BlockSize(), 4)
	d := New(cam, ring, fastConfig())
	ctx := context.Background()

	if err := d.StartRecord(ctx, 0); err != nil {
		t.Fatalf("StartRecord: %v", err)
	}
	defer d.StopRecording(ctx)

	err := d.StartRecord(ctx, 0)
	if !camerr.Is(err, camerr.AlreadyRecording) {
		t.Fatalf("want AlreadyRecording, got %v", err)
	}
}

// §8 scenario 3: readout-drain pulls camRAM frames into the ring until
// end-of-stream, then calls onComplete without changing camera state.
func TestStartReadoutDrain(t *testing.T) {
	geom := testGeometry()
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto, HasCamramRecording: true})
	cam.SeedCamram(100)
	ring, err := ringbuffer.New(geom.BlockSize(), 128)
	if err != nil {
		t.Fatalf("ringbuffer.New: %v", err)
	}
	d := New(cam, ring, fastConfig())
	ctx := context.Background()

	done := make(chan struct{})
	if err := d.StartReadoutDrain(ctx, func() { close(done) }); err != nil {
		t.Fatalf("StartReadoutDrain: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("readout drain did not complete: blocks=%d", ring.NumBlocks())
	}

	if ring.NumBlocks() != 100 {
		t.Fatalf("ring.NumBlocks() = %d, want 100", ring.NumBlocks())
	}
	if !cam.Status().IsReadout {
		t.Fatalf("camera left READOUT on drain completion, spec requires StopReadout to do that")
	}

	if err := d.StopReadout(ctx); err != nil {
		t.Fatalf("StopReadout: %v", err)
	}
	if cam.Status().IsReadout {
		t.Fatalf("camera still in READOUT after StopReadout")
	}
}

func TestStartReadoutRequiresRing(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto, HasCamramRecording: true})
	d := New(cam, nil, fastConfig())
	err := d.StartReadoutDrain(context.Background(), nil)
	if !camerr.Is(err, camerr.Internal) {
		t.Fatalf("want Internal, got %v", err)
	}
}

// §8 scenario 5: parameters remain writable mid-acquisition for
// live-writable parameters (frames_per_second here), and busy for
// non-live-writable ones.
func TestParametersWritableMidAcquisition(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	d := New(cam, nil, fastConfig())
	ctx := context.Background()

	if err := d.StartRecording(ctx); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	defer d.StopRecording(ctx)

	if err := cam.Parameters().Set("frames_per_second", param.Float64(200)); err != nil {
		t.Fatalf("set frames_per_second while recording: %v", err)
	}
	err := cam.Parameters().Set("roi_width", param.Int64(32))
	if !camerr.Is(err, camerr.BusyRecording) {
		t.Fatalf("set roi_width while recording: want BusyRecording, got %v", err)
	}
}

// §8: a transient per-frame Device error does not kill the producer;
// it keeps running and later frames still succeed.
func TestTransientDeviceErrorDoesNotAbortProducer(t *testing.T) {
	geom := testGeometry()
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	cam.FailEveryNth = 3
	ring, err := ringbuffer.New(geom.BlockSize(), 8)
	if err != nil {
		t.Fatalf("ringbuffer.New: %v", err)
	}
	d := New(cam, ring, fastConfig())
	ctx := context.Background()

	if err := d.StartRecord(ctx, 0); err != nil {
		t.Fatalf("StartRecord: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for ring.NumBlocks() < 8 {
		select {
		case <-deadline:
			t.Fatalf("producer appears stuck after transient errors: blocks=%d", ring.NumBlocks())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := d.ErrCount(); got == 0 {
		t.Fatalf("expected transient errors to be counted, got 0")
	}

	// The captured transient error surfaces at the next stop_* call.
	if err := d.StopRecording(ctx); !camerr.Is(err, camerr.Device) {
		t.Fatalf("StopRecording: want the captured Device error, got %v", err)
	}
}

func TestStopRecordingWithoutActiveProducerIsNoop(t *testing.T) {
	cam := newFake(camtest.Config{TriggerSource: camera.TriggerAuto})
	d := New(cam, nil, fastConfig())
	if err := d.StartRecording(context.Background()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := d.StopRecording(context.Background()); err != nil {
		t.Fatalf("StopRecording with nothing active: %v", err)
	}
}
