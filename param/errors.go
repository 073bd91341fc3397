package param

import "camcore/camerr"

func typeMismatch(name string, want, got Kind) error {
	return camerr.TypeMismatchf("parameter %q expects %s, got %s", name, want, got)
}

func outOfRange(name string, v float64, r *Range) error {
	return camerr.OutOfRangef("parameter %q value %g outside [%g,%g] step %g", name, v, r.Min, r.Max, r.Step)
}

func outOfRangeEnum(name string, v Value) error {
	return camerr.OutOfRangef("parameter %q value not in allowed set", name)
}

func notFound(name string) error {
	return camerr.NotFoundf("parameter %q not found", name)
}

func accessDenied(name string, msg string) error {
	return camerr.AccessDeniedf("parameter %q: %s", name, msg)
}

func busyRecording(name string) error {
	return camerr.BusyRecordingf("parameter %q is not writable while recording", name)
}
