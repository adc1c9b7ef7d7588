package model

import "strconv"

// Holds all external facing types and constants.

// RouteType classifies a line into its transport mode, based on the
// static MPK line sets. It is not the GTFS route_type integer.
type RouteType string

const (
	RouteTypeTram     RouteType = "tram"
	RouteTypeBus      RouteType = "bus"
	RouteTypeNightBus RouteType = "night_bus"
	RouteTypeUnknown  RouteType = "unknown"
)

// VehicleStatus mirrors the GTFS-RT VehicleStopStatus enum.
type VehicleStatus int32

const (
	VehicleIncomingAt  VehicleStatus = 0
	VehicleStoppedAt   VehicleStatus = 1
	VehicleInTransitTo VehicleStatus = 2
)

// DelayStatus buckets a delay-in-minutes value for display.
type DelayStatus string

const (
	DelayEarly  DelayStatus = "early"
	DelayOnTime DelayStatus = "on_time"
	DelayLate   DelayStatus = "late"
)

// Stop is one row of the static stop reference table. IDs are
// compared as text throughout.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// VehicleRecord is one row per vehicle entity in a feed snapshot.
// Optional wire fields are pointers: nil means the field was absent,
// never a zero that happened to be on the wire.
type VehicleRecord struct {
	EntityID            int            `json:"entity_id"`
	VehicleID           *string        `json:"vehicle_id"`
	TripID              *string        `json:"trip_id"`
	RouteID             *string        `json:"route_id"`
	Latitude            *float64       `json:"latitude"`
	Longitude           *float64       `json:"longitude"`
	CurrentStopID       *string        `json:"current_stop_id"`
	CurrentStopSequence *uint32        `json:"current_stop_sequence"`
	CurrentStatus       *VehicleStatus `json:"current_status"`
	Timestamp           *uint64        `json:"timestamp"`
	RouteType           RouteType      `json:"route_type"`

	// Filled in by static reference enrichment.
	CurrentStopName *string  `json:"current_stop_name"`
	CurrentStopLat  *float64 `json:"current_stop_lat"`
	CurrentStopLon  *float64 `json:"current_stop_lon"`
}

// StopTimeUpdateRecord is one row per stop-time update nested inside
// a trip-update entity. Trip-level fields are repeated on every row of
// the same entity.
type StopTimeUpdateRecord struct {
	EntityID             int       `json:"entity_id"`
	TripID               *string   `json:"trip_id"`
	RouteID              *string   `json:"route_id"`
	DirectionID          *uint32   `json:"direction_id"`
	StartTime            *string   `json:"start_time"`
	StopID               *string   `json:"stop_id"`
	StopSequence         *uint32   `json:"stop_sequence"`
	ArrivalDelaySec      *int32    `json:"arrival_delay"`
	ScheduleRelationship *int32    `json:"schedule_relationship"`
	RouteType            RouteType `json:"route_type"`
}

// AlertRecord is one row per alert entity.
type AlertRecord struct {
	EntityID   int      `json:"entity_id"`
	RouteIDs   []string `json:"route_ids"`
	Cause      *int32   `json:"cause"`
	Effect     *int32   `json:"effect"`
	HeaderText *string  `json:"header_text"`
}

// JoinedRecord is a VehicleRecord left-joined with the
// StopTimeUpdateRecord sharing (trip_id, current_stop_sequence).
// Unmatched vehicles keep nil update fields.
type JoinedRecord struct {
	VehicleRecord

	UpdateStopID         *string `json:"stop_id"`
	UpdateStopSequence   *uint32 `json:"stop_sequence"`
	DirectionID          *uint32 `json:"direction_id"`
	ArrivalDelaySec      *int32  `json:"arrival_delay"`
	ScheduleRelationship *int32  `json:"schedule_relationship"`
	ArrivalDelayMin      *int    `json:"arrival_delay_minutes"`
}

// ItineraryLeg is one segment of an externally computed itinerary.
// Line and DepartureStop are only meaningful for transit legs.
type ItineraryLeg struct {
	Mode          string `json:"mode"`
	Line          string `json:"line"`
	DepartureStop string `json:"departure_stop"`
}

const (
	LegModeWalking = "WALKING"
	LegModeTransit = "TRANSIT"
)

// LiveMatch is the most relevant currently-reporting vehicle found
// for an itinerary leg.
type LiveMatch struct {
	VehicleID       *string     `json:"vehicle_id"`
	RouteID         *string     `json:"route_id"`
	CurrentStopID   *string     `json:"current_stop_id"`
	CurrentStopName *string     `json:"current_stop_name"`
	ArrivalDelayMin *int        `json:"arrival_delay_minutes"`
	DelayStatus     DelayStatus `json:"delay_status,omitempty"`
	Timestamp       *uint64     `json:"timestamp"`
}

func (s VehicleStatus) String() string {
	switch s {
	case VehicleIncomingAt:
		return "incoming_at"
	case VehicleStoppedAt:
		return "stopped_at"
	case VehicleInTransitTo:
		return "in_transit_to"
	}
	return strconv.Itoa(int(s))
}
