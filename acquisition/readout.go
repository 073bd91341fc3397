package acquisition

import (
	"context"

	"camcore/camerr"
)

// StartReadoutDrain implements readout-drain mode (spec.md §4.4 mode
// 4): after the camera enters READOUT, the driver spawns a task that
// pulls frames from on-camera memory into the ring buffer until the
// backend signals end-of-stream. At that point onComplete (if set) is
// invoked and the camera is left in READOUT until the client calls
// StopReadout — the driver does not transition state on completion.
func (d *Driver) StartReadoutDrain(ctx context.Context, onComplete func()) error {
	if d.ring == nil {
		return camerr.Internalf("readout-drain mode requires a ring buffer")
	}

	if d.producerRunning() {
		return busyErr("readout")
	}

	if err := d.cam.StartReadout(ctx); err != nil {
		return err
	}

	pctx, cancel := context.WithCancel(context.Background())
	p := &producer{cancel: cancel, done: make(chan struct{})}
	d.mu.Lock()
	d.active = p
	d.mu.Unlock()

	go d.runReadout(pctx, p, onComplete)
	return nil
}

func (d *Driver) runReadout(ctx context.Context, p *producer, onComplete func()) {
	defer close(p.done)

	var index int
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if d.cam.Status().IsReadout == false {
			return
		}

		dst := d.ring.WritePtr()
		gctx, gcancel := d.grabTimeoutCtx(ctx)
		ok, err := d.cam.Readout(gctx, dst, index)
		gcancel()
		if err != nil {
			if camerr.Is(err, camerr.Timeout) {
				continue
			}
			d.reportTransientErr(p, err)
			continue
		}
		if !ok {
			// EndOfStream: normal completion, not an error (spec.md §7).
			if onComplete != nil {
				onComplete()
			}
			return
		}
		d.ring.WriteAdvance()
		index++
	}
}

// StopReadout halts READOUT, stopping and joining any active drain
// producer first.
func (d *Driver) StopReadout(ctx context.Context) error {
	d.mu.Lock()
	p := d.active
	d.active = nil
	d.mu.Unlock()

	if p != nil {
		p.cancel()
	}

	err := d.cam.StopReadout(ctx)

	if p != nil {
		<-p.done
		if err == nil {
			err = p.takeErr()
		}
	}
	return err
}
