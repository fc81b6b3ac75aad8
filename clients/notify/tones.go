package notify

import (
	"time"
)

// Tone is a single synthesized beep.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Volume    float64
	Delay     time.Duration // offset from the start of the sequence
}

// toneSequences maps severity to its alert sound. Frequencies and timings
// follow the dashboard's audio cues: critical is an ascending three-pulse,
// error a descending pair, success an ascending triple.
var toneSequences = map[Severity][]Tone{
	SeverityCritical: {
		{Frequency: 800, Duration: 300 * time.Millisecond, Volume: 0.1},
		{Frequency: 1000, Duration: 300 * time.Millisecond, Volume: 0.1, Delay: 200 * time.Millisecond},
		{Frequency: 1200, Duration: 300 * time.Millisecond, Volume: 0.1, Delay: 400 * time.Millisecond},
	},
	SeverityHigh: {
		{Frequency: 600, Duration: 200 * time.Millisecond, Volume: 0.1},
		{Frequency: 800, Duration: 200 * time.Millisecond, Volume: 0.1, Delay: 150 * time.Millisecond},
	},
	SeverityMedium: {
		{Frequency: 500, Duration: 150 * time.Millisecond, Volume: 0.1},
	},
	SeverityLow: {
		{Frequency: 400, Duration: 100 * time.Millisecond, Volume: 0.1},
	},
	SeveritySuccess: {
		{Frequency: 600, Duration: 100 * time.Millisecond, Volume: 0.1},
		{Frequency: 800, Duration: 100 * time.Millisecond, Volume: 0.1, Delay: 100 * time.Millisecond},
		{Frequency: 1000, Duration: 100 * time.Millisecond, Volume: 0.1, Delay: 200 * time.Millisecond},
	},
	SeverityError: {
		{Frequency: 300, Duration: 200 * time.Millisecond, Volume: 0.1},
		{Frequency: 200, Duration: 200 * time.Millisecond, Volume: 0.1, Delay: 200 * time.Millisecond},
	},
}

// vibrationPatterns maps severity to alternating pulse/pause durations in
// milliseconds, starting with a pulse.
var vibrationPatterns = map[Severity][]time.Duration{
	SeverityCritical: durations(200, 100, 200, 100, 200),
	SeverityHigh:     durations(200, 100, 200),
	SeverityMedium:   durations(200),
	SeverityLow:      durations(100),
	SeveritySuccess:  durations(100, 50, 100),
	SeverityError:    durations(300, 100, 300),
}

func durations(ms ...int) []time.Duration {
	out := make([]time.Duration, len(ms))
	for i, m := range ms {
		out[i] = time.Duration(m) * time.Millisecond
	}
	return out
}

// ToneSequence returns the sound for a severity. Unknown severities fall
// back to the medium entry.
func ToneSequence(s Severity) []Tone {
	if seq, ok := toneSequences[s]; ok {
		return seq
	}
	return toneSequences[SeverityMedium]
}

// VibrationPattern returns the vibration pattern for a severity, falling
// back to medium for unknown values.
func VibrationPattern(s Severity) []time.Duration {
	if p, ok := vibrationPatterns[s]; ok {
		return p
	}
	return vibrationPatterns[SeverityMedium]
}

const (
	// criticalDismissAfter and defaultDismissAfter bound how long an
	// in-app banner stays up before auto-dismissal.
	criticalDismissAfter = 15 * time.Second
	defaultDismissAfter  = 8 * time.Second
)

// DismissAfter returns the banner auto-dismiss timeout for an alert.
func DismissAfter(a Alert) time.Duration {
	if a.Critical() {
		return criticalDismissAfter
	}
	return defaultDismissAfter
}
