package camera

import (
	"testing"

	"camcore/camerr"
)

func TestStartRecordingOnRecordingFailsAlreadyRecording(t *testing.T) {
	sm := NewStateMachine()
	if err := sm.BeginRecording(); err != nil {
		t.Fatal(err)
	}
	if err := sm.BeginRecording(); !camerr.Is(err, camerr.AlreadyRecording) {
		t.Fatalf("expected AlreadyRecording, got %v", err)
	}
}

func TestStopRecordingOnIdleFailsNotRecording(t *testing.T) {
	sm := NewStateMachine()
	if err := sm.EndRecording(); !camerr.Is(err, camerr.NotRecording) {
		t.Fatalf("expected NotRecording, got %v", err)
	}
}

func TestReadoutOnlyReachableFromIdle(t *testing.T) {
	sm := NewStateMachine()
	if err := sm.BeginRecording(); err != nil {
		t.Fatal(err)
	}
	if err := sm.BeginReadout(); err == nil {
		t.Fatal("expected readout to be rejected while recording")
	}
	if err := sm.EndRecording(); err != nil {
		t.Fatal(err)
	}
	if err := sm.BeginReadout(); err != nil {
		t.Fatalf("expected readout to start from idle: %v", err)
	}
	if sm.State() != StateReadout {
		t.Fatalf("expected StateReadout, got %v", sm.State())
	}
}

func TestRecordingObserverFiresExactlyOncePerTransition(t *testing.T) {
	sm := NewStateMachine()
	var events []bool
	sm.OnRecordingChange(func(v bool) { events = append(events, v) })

	if err := sm.BeginRecording(); err != nil {
		t.Fatal(err)
	}
	if err := sm.EndRecording(); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0] != true || events[1] != false {
		t.Fatalf("expected [true false], got %v", events)
	}

	// A failed transition must not fire the observer again.
	_ = sm.EndRecording()
	if len(events) != 2 {
		t.Fatalf("failed transition must not notify observers, got %v", events)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	sm := NewStateMachine()
	calls := 0
	unsub := sm.OnRecordingChange(func(v bool) { calls++ })
	unsub()
	_ = sm.BeginRecording()
	if calls != 0 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
}

func TestExactlyOneOfRecordingReadoutOrNeither(t *testing.T) {
	sm := NewStateMachine()
	if sm.State() != StateIdle {
		t.Fatal("expected initial state idle")
	}
	if err := sm.BeginRecording(); err != nil {
		t.Fatal(err)
	}
	if sm.IsRecording() == false {
		t.Fatal("expected IsRecording true")
	}
	if err := sm.BeginReadout(); err == nil {
		t.Fatal("recording and readout must be mutually exclusive")
	}
}
