// Package acquisition implements the control loops that bind a
// camera.Camera to a ringbuffer.RingBuffer: synchronous grab, the
// asynchronous push loop with a client callback, the record-to-ring
// loop, and the camRAM readout-drain loop (spec.md §4.4).
//
// The driver owns one goroutine per active acquisition plus a per-
// camera mutex serializing every state transition, mirroring the
// teacher's server/dvr.Manager: one goroutine per camera
// (Manager.runCamera), a single mutex guarding shared state
// (Manager.mu), and a stop-then-join discipline on every exit path.
package acquisition

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"camcore/camera"
	"camcore/camerr"
	"camcore/ringbuffer"
)

// Config holds driver-level timing knobs, normally sourced from the
// config package's acquisition defaults.
type Config struct {
	// GrabTimeout bounds how long a single backend Grab/Readout call
	// may block before the driver treats it as expired. Zero means no
	// driver-side timeout is added on top of the backend's own.
	GrabTimeout time.Duration
	// StopJoinTimeout is carried for configuration only: the driver
	// does not read it. Stop* waits for the producer goroutine to exit
	// without a bound (spec.md §5: stop operations are synchronous and
	// block until the producer has joined) and logs nothing while it
	// waits.
	StopJoinTimeout time.Duration
	// SoftwareTriggerPeriod is the cadence at which the driver issues
	// Trigger() calls on the camera's behalf while recording with
	// trigger_source == SOFTWARE, per spec.md §4.3 "Trigger model".
	SoftwareTriggerPeriod time.Duration
}

// DefaultConfig returns reasonable defaults for interactive use.
func DefaultConfig() Config {
	return Config{
		GrabTimeout:           5 * time.Second,
		StopJoinTimeout:       2 * time.Second,
		SoftwareTriggerPeriod: 10 * time.Millisecond,
	}
}

// producer tracks one background acquisition task (async push, record,
// or readout — never more than one of these concurrently per Driver,
// enforced by mu).
type producer struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error // first captured error, kept until takeErr clears it
	mu     sync.Mutex

	// errCount tallies every transient (non-timeout) Grab/Readout error
	// observed by this producer, per spec.md §4.4/§7: "transient device
	// errors are logged and counted."
	errCount atomic.Uint64
}

// ErrCount returns the number of transient device errors this producer
// has logged so far.
func (p *producer) ErrCount() uint64 {
	return p.errCount.Load()
}

func (p *producer) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *producer) getErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// takeErr returns and clears the captured error, so a surfaced error
// is reported exactly once (spec.md §7: surfaced at the next stop_* or
// grab call, not repeated on every subsequent call).
func (p *producer) takeErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.err
	p.err = nil
	return err
}

// Driver orchestrates one camera's acquisition modes. A Driver must not
// be used for more than one camera, and only one background producer
// (async/record/readout) may be active at a time — starting a second
// while one runs fails the same way the backend's own state machine
// would (AlreadyRecording/Unsupported).
type Driver struct {
	cam  camera.Camera
	ring *ringbuffer.RingBuffer
	cfg  Config

	mu       sync.Mutex
	active   *producer
	callback func([]byte)
}

// New builds a driver over cam. ring may be nil if the caller only ever
// uses synchronous Grab.
func New(cam camera.Camera, ring *ringbuffer.RingBuffer, cfg Config) *Driver {
	return &Driver{cam: cam, ring: ring, cfg: cfg}
}

// SetGrabCallback registers the callback invoked with each frame's
// bytes during asynchronous push mode. Must be set before
// StartAsyncPush. Only one callback is active at a time; setting a new
// one replaces the previous.
func (d *Driver) SetGrabCallback(fn func(frame []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

// grabTimeoutCtx wraps ctx with the driver's configured grab timeout,
// unless the caller's context already carries an earlier deadline.
func (d *Driver) grabTimeoutCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.GrabTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.cfg.GrabTimeout)
}

// maybeIssueSoftwareTriggers starts a background trigger-issuing loop
// when the camera's trigger_source is SOFTWARE, per spec.md §4.3: "the
// acquisition driver is responsible for issuing trigger() calls"
// during a SOFTWARE-triggered recording. The returned stop func must be
// called before the caller's own producer loop returns.
func (d *Driver) maybeIssueSoftwareTriggers(ctx context.Context) (stop func()) {
	v, err := d.cam.Parameters().Get("trigger_source")
	if err != nil || camera.TriggerSource(v.Enum) != camera.TriggerSoftware {
		return func() {}
	}
	period := d.cfg.SoftwareTriggerPeriod
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				_ = d.cam.Trigger(loopCtx)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Err returns the error captured by the current background producer
// (including one that has finished on its own), if any, without
// clearing it. Stop* drop the producer, so after StopRecording or
// StopReadout Err returns nil.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	return d.active.getErr()
}

// takeProducerErr consumes and clears a pending producer error, called
// from Grab so an error surfaces exactly once; Stop* take the error
// directly from the producer they join.
func (d *Driver) takeProducerErr() error {
	d.mu.Lock()
	p := d.active
	d.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.takeErr()
}

// activeProducer returns the current producer, which may already have
// finished. A naturally-completed producer (end-of-stream, max frames
// reached, camera left RECORDING on its own) is not cleared from inside
// its goroutine, so its captured error remains reachable via
// Err()/takeProducerErr until Stop* drops it or the next Start* call
// replaces it.
func (d *Driver) activeProducer() *producer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Driver) producerRunning() bool {
	d.mu.Lock()
	p := d.active
	d.mu.Unlock()
	if p == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func busyErr(mode string) error {
	return camerr.AlreadyRecordingf("driver already running %s", mode)
}

// reportTransientErr logs and counts a non-fatal, non-timeout Grab/
// Readout error, mirroring the teacher's "dvr[%s]: ..." prefixed
// diagnostics (server/dvr/dvr.go), then captures it on p so it still
// surfaces once via Err()/takeProducerErr.
func (d *Driver) reportTransientErr(p *producer, err error) {
	p.errCount.Add(1)
	log.Printf("acquisition[%s]: transient device error (count=%d): %v", d.cam.Name(), p.errCount.Load(), err)
	p.setErr(err)
}

// ErrCount returns the number of transient device errors logged by the
// current background producer, if any; it returns 0 once Stop* has
// dropped the producer.
func (d *Driver) ErrCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == nil {
		return 0
	}
	return d.active.ErrCount()
}
