package acquisition

import (
	"context"

	"camcore/camerr"
)

// StartRecord implements record-to-ring mode (spec.md §4.4 mode 3): the
// driver arms the camera, then spawns a producer that writes successive
// frames into the ring buffer until maxFrames is reached (0 means
// unbounded — the client stops it with StopRecording) or the camera
// leaves RECORDING. On a full ring, overwrite-on-full semantics apply
// exactly as ringbuffer.RingBuffer.WriteAdvance implements them.
func (d *Driver) StartRecord(ctx context.Context, maxFrames uint64) error {
	if d.ring == nil {
		return camerr.Internalf("record-to-ring mode requires a ring buffer")
	}

	if d.producerRunning() {
		return busyErr("record")
	}

	if err := d.cam.StartRecording(ctx); err != nil {
		return err
	}

	pctx, cancel := context.WithCancel(context.Background())
	p := &producer{cancel: cancel, done: make(chan struct{})}
	d.mu.Lock()
	d.active = p
	d.mu.Unlock()

	go d.runRecord(pctx, p, maxFrames)
	return nil
}

func (d *Driver) runRecord(ctx context.Context, p *producer, maxFrames uint64) {
	defer close(p.done)

	stopTriggers := d.maybeIssueSoftwareTriggers(ctx)
	defer stopTriggers()

	var written uint64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !d.cam.Status().IsRecording {
			return
		}
		if maxFrames > 0 && written >= maxFrames {
			return
		}

		dst := d.ring.WritePtr()
		gctx, gcancel := d.grabTimeoutCtx(ctx)
		ok, err := d.cam.Grab(gctx, dst)
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
		d.ring.WriteAdvance()
		written++
	}
}
