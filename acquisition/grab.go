package acquisition

import (
	"context"

	"camcore/camerr"
)

// Grab implements synchronous grab mode (spec.md §4.4 mode 1): the
// caller's own goroutine asks the backend for the next frame. There is
// no buffering and no ordering concern beyond the caller's own
// sequencing. The camera must already be RECORDING or in READOUT.
func (d *Driver) Grab(ctx context.Context, dst []byte) (bool, error) {
	if err := d.takeProducerErr(); err != nil {
		return false, err
	}

	st := d.cam.Status()
	if !st.IsRecording && !st.IsReadout {
		return false, camerr.NotRecordingf("camera %q is neither recording nor in readout", d.cam.Name())
	}

	gctx, cancel := d.grabTimeoutCtx(ctx)
	defer cancel()

	ok, err := d.cam.Grab(gctx, dst)
	if err != nil {
		if gctx.Err() != nil && ctx.Err() == nil {
			return false, camerr.Timeoutf("grab on %q timed out", d.cam.Name())
		}
		return false, err
	}
	return ok, nil
}

// Trigger forwards to the backend's Trigger, only meaningful while
// RECORDING with trigger_source == SOFTWARE per spec.md §4.3.
func (d *Driver) Trigger(ctx context.Context) error {
	return d.cam.Trigger(ctx)
}

// StartRecording begins RECORDING on the backend. It does not itself
// start any background producer — that only happens for async push,
// record-to-ring, via StartAsyncPush/StartRecord.
func (d *Driver) StartRecording(ctx context.Context) error {
	return d.cam.StartRecording(ctx)
}

// StopRecording halts RECORDING, following the cancellation sequence
// from spec.md §5: signal the producer's stop flag, call the backend's
// StopRecording (which may unblock a producer currently blocked in
// Grab), then join the producer goroutine before returning.
func (d *Driver) StopRecording(ctx context.Context) error {
	d.mu.Lock()
	p := d.active
	d.active = nil
	d.mu.Unlock()

	if p != nil {
		p.cancel()
	}

	err := d.cam.StopRecording(ctx)

	if p != nil {
		<-p.done
		if err == nil {
			err = p.takeErr()
		}
	}
	return err
}
