package scheduler

// State names the two scheduling states derived from the wall clock.
type State int

// Scheduling states.
const (
	// Active means pipeline cycles run.
	Active State = iota
	// Quiet means the loop sleeps until the active window opens.
	Quiet
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == Quiet {
		return "quiet"
	}
	return "active"
}

// ClassifyHour maps a local wall-clock hour onto a scheduling state. The
// quiet window is exactly startHour > h >= endHour; everything else is
// active. Note the inversion: with the defaults start=8, end=1, the system is
// quiet between 01:00 and 08:00 and active the rest of the day, including
// past midnight.
func ClassifyHour(hour, startHour, endHour int) State {
	if hour < startHour && hour >= endHour {
		return Quiet
	}
	return Active
}
