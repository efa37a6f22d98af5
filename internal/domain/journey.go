package domain

import "fmt"

// JourneyMode selects the route topology the solver must honor.
type JourneyMode int

const (
	// JourneyContinue leaves both endpoints free (open tour).
	JourneyContinue JourneyMode = iota
	// JourneyFixedStart pins the start to the depot and leaves the end free.
	JourneyFixedStart
	// JourneyClosed pins start and end to the depot (round trip).
	JourneyClosed
)

// NeedsDepot reports whether the mode requires a base location.
func (m JourneyMode) NeedsDepot() bool { return m != JourneyContinue }

func (m JourneyMode) String() string {
	switch m {
	case JourneyContinue:
		return "continue"
	case JourneyFixedStart:
		return "same_start"
	case JourneyClosed:
		return "round_trip"
	}
	return fmt.Sprintf("JourneyMode(%d)", int(m))
}

// ParseJourneyMode maps the wire names used by the API and CLI.
func ParseJourneyMode(s string) (JourneyMode, error) {
	switch s {
	case "", "continue":
		return JourneyContinue, nil
	case "same_start":
		return JourneyFixedStart, nil
	case "round_trip":
		return JourneyClosed, nil
	}
	return JourneyContinue, fmt.Errorf("invalid journey_mode: %q", s)
}
