package monitoring

import "testing"

func TestDefaultSingleton(t *testing.T) {
	m1 := Default()
	m2 := Default()
	if m1 != m2 {
		t.Error("Default must return the same registry")
	}
	if m1.ItemsIntegrated == nil || m1.ConflictWalkLength == nil {
		t.Error("metrics must be initialized")
	}

	// Exercise the counters; duplicate registration would have panicked in
	// Default already.
	m1.ItemsIntegrated.Inc()
	m1.ConflictWalkLength.Observe(3)
	m1.PendingDepth.Set(2)
}
