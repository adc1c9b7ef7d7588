// Package feed extracts vehicle position, trip update and alert
// records from GTFS-Realtime feed buffers.
//
// The extraction is a hand-written traversal of the known gtfs-realtime
// schema on top of protowire primitives. No generated message types are
// involved: the field numbers below are the schema knowledge, which
// keeps the module free of a protobuf compile step and lets absent
// fields map to nil instead of proto defaults.
package feed

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lodzlive/transit/model"
)

// gtfs-realtime.proto field numbers.
const (
	fmHeader = 1
	fmEntity = 2

	fhTimestamp = 3

	feTripUpdate = 3
	feVehicle    = 4
	feAlert      = 5

	tuTrip           = 1
	tuStopTimeUpdate = 2

	stuStopSequence = 1
	stuArrival      = 2
	stuStopID       = 4
	stuSchedRel     = 5

	steDelay = 1

	vpTrip         = 1
	vpPosition     = 2
	vpStopSequence = 3
	vpStatus       = 4
	vpTimestamp    = 5
	vpStopID       = 7
	vpVehicle      = 8

	tdTripID      = 1
	tdStartTime   = 2
	tdRouteID     = 5
	tdDirectionID = 6

	vdID = 1

	posLatitude  = 1
	posLongitude = 2

	alInformedEntity = 5
	alCause          = 6
	alEffect         = 7
	alHeaderText     = 10

	esRouteID = 2

	tsTranslation = 1
	trText        = 1
)

// Result holds everything extracted from one feed buffer. The counters
// exist to simplify debugging down the road.
type Result struct {
	FeedTimestamp uint64

	Vehicles []model.VehicleRecord
	Updates  []model.StopTimeUpdateRecord
	Alerts   []model.AlertRecord

	NumEntities           int
	NumVehicleEntities    int
	NumTripUpdateEntities int
	NumAlertEntities      int
	NumSkippedEntities    int
}

// Map parses buf as a gtfs-realtime FeedMessage. A buffer whose
// top-level framing can't be parsed returns an error so the caller can
// treat the whole cycle as a decode failure. Entities that are
// individually malformed are skipped and counted, not fatal.
func Map(buf []byte) (*Result, error) {
	res := &Result{
		Vehicles: []model.VehicleRecord{},
		Updates:  []model.StopTimeUpdateRecord{},
		Alerts:   []model.AlertRecord{},
	}

	err := eachField(buf, func(num protowire.Number, typ protowire.Type, f value) error {
		switch {
		case num == fmHeader && typ == protowire.BytesType:
			parseHeader(f.bytes, res)
		case num == fmEntity && typ == protowire.BytesType:
			res.NumEntities++
			if err := parseEntity(f.bytes, res); err != nil {
				res.NumSkippedEntities++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing feed message: %w", err)
	}

	return res, nil
}

func parseHeader(buf []byte, res *Result) {
	_ = eachField(buf, func(num protowire.Number, typ protowire.Type, f value) error {
		if num == fhTimestamp && typ == protowire.VarintType {
			res.FeedTimestamp = f.varint
		}
		return nil
	})
}

func parseEntity(buf []byte, res *Result) error {
	return eachField(buf, func(num protowire.Number, typ protowire.Type, f value) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case feVehicle:
			v, err := parseVehiclePosition(f.bytes)
			if err != nil {
				return err
			}
			res.NumVehicleEntities++
			v.EntityID = res.NumVehicleEntities
			res.Vehicles = append(res.Vehicles, v)

		case feTripUpdate:
			rows, err := parseTripUpdate(f.bytes)
			if err != nil {
				return err
			}
			// An entity with no stop-time updates still consumes an
			// entity_id, same as the count the dataset consumers see.
			res.NumTripUpdateEntities++
			for i := range rows {
				rows[i].EntityID = res.NumTripUpdateEntities
			}
			res.Updates = append(res.Updates, rows...)

		case feAlert:
			a, err := parseAlert(f.bytes)
			if err != nil {
				return err
			}
			res.NumAlertEntities++
			a.EntityID = res.NumAlertEntities
			res.Alerts = append(res.Alerts, a)
		}
		return nil
	})
}

func parseVehiclePosition(buf []byte) (model.VehicleRecord, error) {
	v := model.VehicleRecord{RouteType: model.RouteTypeUnknown}

	err := eachField(buf, func(num protowire.Number, typ protowire.Type, f value) error {
		switch {
		case num == vpTrip && typ == protowire.BytesType:
			return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
				switch {
				case num == tdTripID && typ == protowire.BytesType:
					v.TripID = strptr(f.bytes)
				case num == tdRouteID && typ == protowire.BytesType:
					v.RouteID = strptr(f.bytes)
				}
				return nil
			})

		case num == vpVehicle && typ == protowire.BytesType:
			return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
				if num == vdID && typ == protowire.BytesType {
					v.VehicleID = strptr(f.bytes)
				}
				return nil
			})

		case num == vpPosition && typ == protowire.BytesType:
			return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
				switch {
				case num == posLatitude && typ == protowire.Fixed32Type:
					v.Latitude = f64ptr(float64(math.Float32frombits(f.fixed32)))
				case num == posLongitude && typ == protowire.Fixed32Type:
					v.Longitude = f64ptr(float64(math.Float32frombits(f.fixed32)))
				}
				return nil
			})

		case num == vpStopSequence && typ == protowire.VarintType:
			v.CurrentStopSequence = u32ptr(uint32(f.varint))
		case num == vpStatus && typ == protowire.VarintType:
			status := model.VehicleStatus(f.varint)
			v.CurrentStatus = &status
		case num == vpTimestamp && typ == protowire.VarintType:
			v.Timestamp = u64ptr(f.varint)
		case num == vpStopID && typ == protowire.BytesType:
			v.CurrentStopID = strptr(f.bytes)
		}
		return nil
	})

	return v, err
}

func parseTripUpdate(buf []byte) ([]model.StopTimeUpdateRecord, error) {
	// Trip-level fields, copied onto every child row.
	base := model.StopTimeUpdateRecord{RouteType: model.RouteTypeUnknown}
	rows := []model.StopTimeUpdateRecord{}

	err := eachField(buf, func(num protowire.Number, typ protowire.Type, f value) error {
		switch {
		case num == tuTrip && typ == protowire.BytesType:
			return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
				switch {
				case num == tdTripID && typ == protowire.BytesType:
					base.TripID = strptr(f.bytes)
				case num == tdRouteID && typ == protowire.BytesType:
					base.RouteID = strptr(f.bytes)
				case num == tdStartTime && typ == protowire.BytesType:
					base.StartTime = strptr(f.bytes)
				case num == tdDirectionID && typ == protowire.VarintType:
					base.DirectionID = u32ptr(uint32(f.varint))
				}
				return nil
			})

		case num == tuStopTimeUpdate && typ == protowire.BytesType:
			row := model.StopTimeUpdateRecord{}
			err := eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
				switch {
				case num == stuStopSequence && typ == protowire.VarintType:
					row.StopSequence = u32ptr(uint32(f.varint))
				case num == stuStopID && typ == protowire.BytesType:
					row.StopID = strptr(f.bytes)
				case num == stuSchedRel && typ == protowire.VarintType:
					rel := int32(f.varint)
					row.ScheduleRelationship = &rel
				case num == stuArrival && typ == protowire.BytesType:
					return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
						if num == steDelay && typ == protowire.VarintType {
							// Negative delays arrive as sign-extended
							// 64-bit varints; truncation recovers them.
							d := int32(f.varint)
							row.ArrivalDelaySec = &d
						}
						return nil
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].TripID = base.TripID
		rows[i].RouteID = base.RouteID
		rows[i].StartTime = base.StartTime
		rows[i].DirectionID = base.DirectionID
		rows[i].RouteType = base.RouteType
	}
	return rows, nil
}

func parseAlert(buf []byte) (model.AlertRecord, error) {
	a := model.AlertRecord{}

	err := eachField(buf, func(num protowire.Number, typ protowire.Type, f value) error {
		switch {
		case num == alInformedEntity && typ == protowire.BytesType:
			return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
				if num == esRouteID && typ == protowire.BytesType {
					a.RouteIDs = append(a.RouteIDs, string(f.bytes))
				}
				return nil
			})
		case num == alCause && typ == protowire.VarintType:
			c := int32(f.varint)
			a.Cause = &c
		case num == alEffect && typ == protowire.VarintType:
			e := int32(f.varint)
			a.Effect = &e
		case num == alHeaderText && typ == protowire.BytesType:
			return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
				if num == tsTranslation && typ == protowire.BytesType && a.HeaderText == nil {
					return eachField(f.bytes, func(num protowire.Number, typ protowire.Type, f value) error {
						if num == trText && typ == protowire.BytesType {
							a.HeaderText = strptr(f.bytes)
						}
						return nil
					})
				}
				return nil
			})
		}
		return nil
	})

	return a, err
}

// value carries the decoded payload of one field; which member is
// meaningful depends on the wire type passed alongside.
type value struct {
	varint  uint64
	fixed32 uint32
	fixed64 uint64
	bytes   []byte
}

// eachField walks every field of one encoded message, invoking fn with
// the decoded value. Any framing error aborts the walk.
func eachField(buf []byte, fn func(num protowire.Number, typ protowire.Type, f value) error) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return protowire.ParseError(n)
		}
		buf = buf[n:]

		var f value
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(buf)
		case protowire.Fixed32Type:
			f.fixed32, n = protowire.ConsumeFixed32(buf)
		case protowire.Fixed64Type:
			f.fixed64, n = protowire.ConsumeFixed64(buf)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(buf)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		buf = buf[n:]

		if err := fn(num, typ, f); err != nil {
			return err
		}
	}
	return nil
}

func strptr(b []byte) *string {
	s := string(b)
	return &s
}

func f64ptr(f float64) *float64 { return &f }
func u32ptr(u uint32) *uint32   { return &u }
func u64ptr(u uint64) *uint64   { return &u }
