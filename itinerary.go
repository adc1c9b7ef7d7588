package transit

import (
	"github.com/lodzlive/transit/model"
)

// ExtractLineNumbers collects the distinct lines used by the transit
// legs of an itinerary, in first-seen order.
func ExtractLineNumbers(legs []model.ItineraryLeg) []string {
	seen := map[string]bool{}
	lines := []string{}
	for _, leg := range legs {
		if leg.Mode != model.LegModeTransit || leg.Line == "" {
			continue
		}
		if !seen[leg.Line] {
			seen[leg.Line] = true
			lines = append(lines, leg.Line)
		}
	}
	return lines
}

// UsesDisabledLine reports whether any transit leg rides a currently
// suspended line.
func UsesDisabledLine(legs []model.ItineraryLeg, disabled map[string]bool) bool {
	for _, line := range ExtractLineNumbers(legs) {
		if disabled[line] {
			return true
		}
	}
	return false
}

// FilterItineraries drops every itinerary that uses a suspended line.
// With nothing suspended the input comes back unchanged.
func FilterItineraries(itineraries [][]model.ItineraryLeg, disabled map[string]bool) [][]model.ItineraryLeg {
	if len(disabled) == 0 {
		return itineraries
	}
	kept := make([][]model.ItineraryLeg, 0, len(itineraries))
	for _, legs := range itineraries {
		if !UsesDisabledLine(legs, disabled) {
			kept = append(kept, legs)
		}
	}
	return kept
}

// AnnotatedLeg is an itinerary leg plus the live-vehicle lookup result.
// LiveChecked distinguishes "looked and found nothing" from "not a
// transit leg, never looked".
type AnnotatedLeg struct {
	model.ItineraryLeg

	Live        *model.LiveMatch `json:"live"`
	LiveChecked bool             `json:"live_checked"`
}

// AnnotateLegs runs the live matcher over every transit leg of an
// itinerary. Walking legs pass through unannotated.
func AnnotateLegs(records []model.JoinedRecord, legs []model.ItineraryLeg) []AnnotatedLeg {
	out := make([]AnnotatedLeg, 0, len(legs))
	for _, leg := range legs {
		a := AnnotatedLeg{ItineraryLeg: leg}
		if leg.Mode == model.LegModeTransit {
			a.LiveChecked = true
			a.Live = Match(records, leg)
		}
		out = append(out, a)
	}
	return out
}
