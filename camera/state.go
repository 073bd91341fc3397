package camera

import (
	"sync"

	"camcore/camerr"
)

// LifecycleState is one of the three mutually exclusive states from
// spec.md §4.3.
type LifecycleState int

const (
	StateIdle LifecycleState = iota
	StateRecording
	StateReadout
)

func (s LifecycleState) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateReadout:
		return "readout"
	default:
		return "idle"
	}
}

// StateMachine serializes the IDLE/RECORDING/READOUT transitions for a
// single camera behind one mutex, the way the teacher's dvr.Manager
// guards its recording map with a single sync.RWMutex rather than one
// lock per camera field. Observers registered via OnRecordingChange
// fire synchronously after the transition completes and are guaranteed
// to fire exactly once per genuine true<->false edge (spec.md §4.4,
// §7, §8).
type StateMachine struct {
	mu    sync.Mutex
	state LifecycleState

	recordingObservers []func(bool)
}

// NewStateMachine returns a machine starting in IDLE.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// State returns the current lifecycle state.
func (sm *StateMachine) State() LifecycleState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// IsRecording reports whether the machine is in RECORDING. Meant to be
// wired into param.Registry.Recording for BusyRecording enforcement.
func (sm *StateMachine) IsRecording() bool {
	return sm.State() == StateRecording
}

// OnRecordingChange registers fn to be called, with the new boolean
// is_recording value, whenever the machine transitions into or out of
// RECORDING. Returns an unsubscribe func mirroring param.Unsubscribe.
func (sm *StateMachine) OnRecordingChange(fn func(bool)) func() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.recordingObservers = append(sm.recordingObservers, fn)
	idx := len(sm.recordingObservers) - 1
	var once sync.Once
	return func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			sm.recordingObservers[idx] = nil
		})
	}
}

func (sm *StateMachine) fireRecording(v bool) {
	sm.mu.Lock()
	fns := append([]func(bool){}, sm.recordingObservers...)
	sm.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn(v)
		}
	}
}

// BeginRecording transitions IDLE -> RECORDING. Returns AlreadyRecording
// if not currently IDLE (including from READOUT, per C4: exactly one of
// is_recording/is_readout/neither).
func (sm *StateMachine) BeginRecording() error {
	sm.mu.Lock()
	if sm.state != StateIdle {
		sm.mu.Unlock()
		return camerr.AlreadyRecordingf("camera is %s", sm.state)
	}
	sm.state = StateRecording
	sm.mu.Unlock()
	sm.fireRecording(true)
	return nil
}

// EndRecording transitions RECORDING -> IDLE. Returns NotRecording if
// not currently RECORDING.
func (sm *StateMachine) EndRecording() error {
	sm.mu.Lock()
	if sm.state != StateRecording {
		sm.mu.Unlock()
		return camerr.NotRecordingf("camera is %s", sm.state)
	}
	sm.state = StateIdle
	sm.mu.Unlock()
	sm.fireRecording(false)
	return nil
}

// BeginReadout transitions IDLE -> READOUT. READOUT is only reachable
// from IDLE (spec.md §4.3 diagram).
func (sm *StateMachine) BeginReadout() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state != StateIdle {
		return camerr.AlreadyRecordingf("camera is %s, cannot start readout", sm.state)
	}
	sm.state = StateReadout
	return nil
}

// EndReadout transitions READOUT -> IDLE.
func (sm *StateMachine) EndReadout() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state != StateReadout {
		return camerr.NotRecordingf("camera is %s, not in readout", sm.state)
	}
	sm.state = StateIdle
	return nil
}
