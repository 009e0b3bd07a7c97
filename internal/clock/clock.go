package clock

import "time"

// Clock abstracts time so end-time cutoffs can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current UTC time.
func (Real) Now() time.Time { return time.Now().UTC() }

// Mock is a Clock that returns a fixed, settable time.
type Mock struct {
	T time.Time
}

// Now returns the fixed time.
func (m *Mock) Now() time.Time { return m.T }

// Advance moves the mock clock forward.
func (m *Mock) Advance(d time.Duration) { m.T = m.T.Add(d) }
