package srs

import "fmt"

// FrequencyMode selects how aggressively a learner wants cards repeated.
type FrequencyMode int

const (
	FrequencyNormal FrequencyMode = iota
	FrequencyIntensive
	FrequencyRelaxed
)

// FrequencyProfile holds the interval constants for one FrequencyMode.
type FrequencyProfile struct {
	// FirstInterval is used after the first successful review and after every failure.
	FirstInterval int
	// SecondInterval is used after the second consecutive successful review.
	SecondInterval int
	// Multiplier scales the ease-based growth of later intervals.
	Multiplier float64
}

var frequencyProfiles = [...]FrequencyProfile{
	FrequencyNormal:    {FirstInterval: 1, SecondInterval: 4, Multiplier: 1.0},
	FrequencyIntensive: {FirstInterval: 1, SecondInterval: 3, Multiplier: 0.8},
	FrequencyRelaxed:   {FirstInterval: 2, SecondInterval: 7, Multiplier: 1.2},
}

var frequencyNames = [...]string{
	FrequencyNormal:    "normal",
	FrequencyIntensive: "intensive",
	FrequencyRelaxed:   "relaxed",
}

// FrequencyModes lists every supported mode.
func FrequencyModes() []FrequencyMode {
	return []FrequencyMode{FrequencyIntensive, FrequencyNormal, FrequencyRelaxed}
}

// IsValid reports whether m is one of the declared modes.
func (m FrequencyMode) IsValid() bool {
	return m >= FrequencyNormal && m <= FrequencyRelaxed
}

// Profile returns the interval constants for m.
// It panics on an undeclared mode; values should come from ParseFrequencyMode.
func (m FrequencyMode) Profile() FrequencyProfile {
	if !m.IsValid() {
		panic(fmt.Sprintf("srs: unknown frequency mode %d", int(m)))
	}
	return frequencyProfiles[m]
}

func (m FrequencyMode) String() string {
	if m.IsValid() {
		return frequencyNames[m]
	}
	return fmt.Sprintf("FrequencyMode(%d)", int(m))
}

// ParseFrequencyMode parses the stored string form of a mode.
func ParseFrequencyMode(s string) (FrequencyMode, error) {
	for i, name := range frequencyNames {
		if name == s {
			return FrequencyMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown frequency mode %q", s)
}
