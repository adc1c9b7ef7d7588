// Package transit builds a live per-vehicle dataset from the MPK
// GTFS-Realtime feeds and matches it against itinerary legs.
package transit

import (
	"github.com/lodzlive/transit/model"
	"github.com/lodzlive/transit/static"
)

// Enrich attaches static stop metadata and a route classification to
// freshly mapped records. The slices are owned by the current poll
// cycle and modified in place; they must not have been published yet.
func Enrich(
	vehicles []model.VehicleRecord,
	updates []model.StopTimeUpdateRecord,
	stops map[string]model.Stop,
	class *static.Classification,
) {
	for i := range vehicles {
		v := &vehicles[i]
		v.RouteType = class.Classify(v.RouteID)

		if v.CurrentStopID == nil {
			continue
		}
		stop, ok := stops[*v.CurrentStopID]
		if !ok {
			// Unknown stop id: name and coordinates stay nil.
			continue
		}
		name, lat, lon := stop.Name, stop.Lat, stop.Lon
		v.CurrentStopName = &name
		v.CurrentStopLat = &lat
		v.CurrentStopLon = &lon
	}

	for i := range updates {
		updates[i].RouteType = class.Classify(updates[i].RouteID)
	}
}

type joinKey struct {
	tripID string
	seq    uint32
}

// JoinDelays left-joins vehicles to stop-time updates on
// (trip_id, current_stop_sequence). Every vehicle yields exactly one
// output row; a vehicle without a matching update keeps nil delay
// fields. When several updates share a key the first one in feed
// order wins — a deliberate simplification, not deduplication.
func JoinDelays(vehicles []model.VehicleRecord, updates []model.StopTimeUpdateRecord) []model.JoinedRecord {
	byKey := make(map[joinKey]*model.StopTimeUpdateRecord, len(updates))
	for i := range updates {
		u := &updates[i]
		if u.TripID == nil || u.StopSequence == nil {
			continue
		}
		key := joinKey{tripID: *u.TripID, seq: *u.StopSequence}
		if _, taken := byKey[key]; !taken {
			byKey[key] = u
		}
	}

	joined := make([]model.JoinedRecord, 0, len(vehicles))
	for _, v := range vehicles {
		row := model.JoinedRecord{VehicleRecord: v}

		if v.TripID != nil && v.CurrentStopSequence != nil {
			if u, ok := byKey[joinKey{tripID: *v.TripID, seq: *v.CurrentStopSequence}]; ok {
				row.UpdateStopID = u.StopID
				row.UpdateStopSequence = u.StopSequence
				row.DirectionID = u.DirectionID
				row.ArrivalDelaySec = u.ArrivalDelaySec
				row.ScheduleRelationship = u.ScheduleRelationship
				row.ArrivalDelayMin = DelayMinutes(u.ArrivalDelaySec)
			}
		}

		joined = append(joined, row)
	}
	return joined
}

// DelayMinutes converts a signed delay in seconds to whole minutes:
// floor to the whole-minute boundary below, then a remainder of at
// least half a minute rounds up toward the next. -70s is -1min (not
// -2), -40s is -1min, 29s is 0, 30s is 1. Nil stays nil.
func DelayMinutes(sec *int32) *int {
	if sec == nil {
		return nil
	}

	minutes := int(*sec) / 60
	remainder := int(*sec) % 60
	if remainder < 0 {
		minutes--
		remainder += 60
	}

	if remainder >= 30 {
		minutes++
	}
	return &minutes
}
