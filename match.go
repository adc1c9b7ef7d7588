package transit

import (
	"regexp"

	"github.com/lodzlive/transit/model"
)

// Matches a trailing parenthesized numeric stop code, e.g.
// "Broniewskiego - Kraszewskiego (0052)" -> "0052".
var stopCodeRe = regexp.MustCompile(`\((\d+)\)\s*$`)

// ExtractStopCode pulls the stop code out of a departure-stop label.
func ExtractStopCode(label string) (string, bool) {
	m := stopCodeRe.FindStringSubmatch(label)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ClassifyDelay buckets a delay-in-minutes value. Nil delay has no
// status.
func ClassifyDelay(min *int) model.DelayStatus {
	if min == nil {
		return ""
	}
	switch {
	case *min <= -1:
		return model.DelayEarly
	case *min <= 1:
		return model.DelayOnTime
	}
	return model.DelayLate
}

// Match finds the live vehicle most relevant to an itinerary leg.
//
// Candidates are the vehicles on the leg's line; within those, a stop
// code parsed from the departure-stop label narrows the set when the
// narrowing leaves at least one vehicle (otherwise the line-only set
// is kept — the vehicle may be between stops). The most recently
// reporting candidate wins. A nil return means "checked, nothing on
// that line right now".
func Match(records []model.JoinedRecord, leg model.ItineraryLeg) *model.LiveMatch {
	if leg.Line == "" {
		return nil
	}

	onLine := []*model.JoinedRecord{}
	for i := range records {
		r := &records[i]
		if r.RouteID != nil && *r.RouteID == leg.Line {
			onLine = append(onLine, r)
		}
	}
	if len(onLine) == 0 {
		return nil
	}

	candidates := onLine
	if code, ok := ExtractStopCode(leg.DepartureStop); ok {
		atStop := []*model.JoinedRecord{}
		for _, r := range onLine {
			if r.CurrentStopID != nil && *r.CurrentStopID == code {
				atStop = append(atStop, r)
			}
		}
		if len(atStop) > 0 {
			candidates = atStop
		}
	}

	best := candidates[0]
	for _, r := range candidates[1:] {
		if tsOf(r) > tsOf(best) {
			best = r
		}
	}

	return &model.LiveMatch{
		VehicleID:       best.VehicleID,
		RouteID:         best.RouteID,
		CurrentStopID:   best.CurrentStopID,
		CurrentStopName: best.CurrentStopName,
		ArrivalDelayMin: best.ArrivalDelayMin,
		DelayStatus:     ClassifyDelay(best.ArrivalDelayMin),
		Timestamp:       best.Timestamp,
	}
}

// A vehicle that never reported a timestamp sorts below every one
// that did.
func tsOf(r *model.JoinedRecord) int64 {
	if r.Timestamp == nil {
		return -1
	}
	return int64(*r.Timestamp)
}
