package acquisition

import (
	"context"

	"camcore/camerr"
)

// StartAsyncPush implements asynchronous push mode (spec.md §4.4 mode
// 2): the driver arms the camera, then spawns one producer goroutine
// that loops calling the backend's Grab and invoking the registered
// callback with each frame's bytes, until the camera leaves RECORDING.
// blockSize must match the camera's configured frame size; the driver
// allocates one reusable buffer and reuses it across iterations, so a
// callback that retains the slice past its own return must copy it —
// the same "no zero-copy escape of device-owned memory" discipline
// spec.md §5 requires of the ring-buffer path.
//
// The callback runs on the producer goroutine; the driver guarantees
// at most one in-flight invocation per camera by construction (a single
// goroutine calling it in a loop).
func (d *Driver) StartAsyncPush(ctx context.Context, blockSize int) error {
	if d.producerRunning() {
		return busyErr("async push")
	}
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb == nil {
		return camerr.Internalf("async push requires SetGrabCallback to be called first")
	}

	if err := d.cam.StartRecording(ctx); err != nil {
		return err
	}

	pctx, cancel := context.WithCancel(context.Background())
	p := &producer{cancel: cancel, done: make(chan struct{})}
	d.mu.Lock()
	d.active = p
	d.mu.Unlock()

	go d.runAsyncPush(pctx, p, blockSize, cb)
	return nil
}

func (d *Driver) runAsyncPush(ctx context.Context, p *producer, blockSize int, cb func([]byte)) {
	defer close(p.done)

	stopTriggers := d.maybeIssueSoftwareTriggers(ctx)
	defer stopTriggers()

	buf := make([]byte, blockSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if d.cam.Status().IsRecording == false {
			return
		}

		gctx, gcancel := d.grabTimeoutCtx(ctx)
		ok, err := d.cam.Grab(gctx, buf)
		gcancel()
		if err != nil {
			if camerr.Is(err, camerr.Timeout) {
				continue
			}
			d.reportTransientErr(p, err)
			continue
		}
		if !ok {
			continue
		}
		cb(buf)
	}
}
