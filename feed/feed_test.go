package feed_test

import (
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/lodzlive/transit/feed"
	"github.com/lodzlive/transit/model"
)

// Builds feed buffers with the reference bindings; the mapper under
// test must extract the same data from the raw bytes.

func marshalFeed(t *testing.T, entities []*gtfsrt.FeedEntity) []byte {
	t.Helper()

	msg := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1700000000),
		},
		Entity: entities,
	}

	buf, err := proto.Marshal(msg)
	require.NoError(t, err)
	return buf
}

func vehicleEntity(id, tripID, routeID, vehicleID, stopID string, lat, lon float32, seq uint32, status gtfsrt.VehiclePosition_VehicleStopStatus, ts uint64) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfsrt.VehiclePosition{
			Trip: &gtfsrt.TripDescriptor{
				TripId:  proto.String(tripID),
				RouteId: proto.String(routeID),
			},
			Vehicle:             &gtfsrt.VehicleDescriptor{Id: proto.String(vehicleID)},
			Position:            &gtfsrt.Position{Latitude: proto.Float32(lat), Longitude: proto.Float32(lon)},
			CurrentStopSequence: proto.Uint32(seq),
			StopId:              proto.String(stopID),
			CurrentStatus:       &status,
			Timestamp:           proto.Uint64(ts),
		},
	}
}

func TestMapVehiclePositions(t *testing.T) {
	buf := marshalFeed(t, []*gtfsrt.FeedEntity{
		vehicleEntity("1", "trip-1", "F1", "veh-100", "0052", 51.7592, 19.4560, 12,
			gtfsrt.VehiclePosition_STOPPED_AT, 1700000100),
		vehicleEntity("2", "trip-2", "10A", "veh-200", "1234", 51.7601, 19.4433, 3,
			gtfsrt.VehiclePosition_IN_TRANSIT_TO, 1700000200),
	})

	res, err := feed.Map(buf)
	require.NoError(t, err)
	require.Len(t, res.Vehicles, 2)
	assert.Empty(t, res.Updates)
	assert.Equal(t, uint64(1700000000), res.FeedTimestamp)

	v := res.Vehicles[0]
	assert.Equal(t, 1, v.EntityID)
	require.NotNil(t, v.VehicleID)
	assert.Equal(t, "veh-100", *v.VehicleID)
	require.NotNil(t, v.TripID)
	assert.Equal(t, "trip-1", *v.TripID)
	require.NotNil(t, v.RouteID)
	assert.Equal(t, "F1", *v.RouteID)
	require.NotNil(t, v.Latitude)
	assert.InDelta(t, 51.7592, *v.Latitude, 1e-4)
	require.NotNil(t, v.Longitude)
	assert.InDelta(t, 19.4560, *v.Longitude, 1e-4)
	require.NotNil(t, v.CurrentStopID)
	assert.Equal(t, "0052", *v.CurrentStopID)
	require.NotNil(t, v.CurrentStopSequence)
	assert.Equal(t, uint32(12), *v.CurrentStopSequence)
	require.NotNil(t, v.CurrentStatus)
	assert.Equal(t, model.VehicleStoppedAt, *v.CurrentStatus)
	require.NotNil(t, v.Timestamp)
	assert.Equal(t, uint64(1700000100), *v.Timestamp)

	assert.Equal(t, 2, res.Vehicles[1].EntityID)
}

func TestMapAbsentFieldsAreNil(t *testing.T) {
	// A vehicle entity carrying only a position. Nothing else may be
	// conjured up from proto defaults.
	buf := marshalFeed(t, []*gtfsrt.FeedEntity{
		{
			Id: proto.String("1"),
			Vehicle: &gtfsrt.VehiclePosition{
				Position: &gtfsrt.Position{
					Latitude:  proto.Float32(51.75),
					Longitude: proto.Float32(19.45),
				},
			},
		},
	})

	res, err := feed.Map(buf)
	require.NoError(t, err)
	require.Len(t, res.Vehicles, 1)

	v := res.Vehicles[0]
	assert.Nil(t, v.VehicleID)
	assert.Nil(t, v.TripID)
	assert.Nil(t, v.RouteID)
	assert.Nil(t, v.CurrentStopID)
	assert.Nil(t, v.CurrentStopSequence)
	assert.Nil(t, v.CurrentStatus)
	assert.Nil(t, v.Timestamp)
	require.NotNil(t, v.Latitude)
	require.NotNil(t, v.Longitude)
}

func TestMapTripUpdates(t *testing.T) {
	sched := gtfsrt.TripUpdate_StopTimeUpdate_SCHEDULED
	buf := marshalFeed(t, []*gtfsrt.FeedEntity{
		{
			Id: proto.String("1"),
			TripUpdate: &gtfsrt.TripUpdate{
				Trip: &gtfsrt.TripDescriptor{
					TripId:      proto.String("trip-1"),
					RouteId:     proto.String("F1"),
					DirectionId: proto.Uint32(1),
					StartTime:   proto.String("08:15:00"),
				},
				StopTimeUpdate: []*gtfsrt.TripUpdate_StopTimeUpdate{
					{
						StopSequence: proto.Uint32(11),
						StopId:       proto.String("0051"),
						Arrival:      &gtfsrt.TripUpdate_StopTimeEvent{Delay: proto.Int32(-70)},
					},
					{
						StopSequence:         proto.Uint32(12),
						StopId:               proto.String("0052"),
						ScheduleRelationship: &sched,
					},
				},
			},
		},
		{
			Id: proto.String("2"),
			TripUpdate: &gtfsrt.TripUpdate{
				Trip: &gtfsrt.TripDescriptor{TripId: proto.String("trip-2")},
				StopTimeUpdate: []*gtfsrt.TripUpdate_StopTimeUpdate{
					{
						StopSequence: proto.Uint32(1),
						Arrival:      &gtfsrt.TripUpdate_StopTimeEvent{Delay: proto.Int32(95)},
					},
				},
			},
		},
	})

	res, err := feed.Map(buf)
	require.NoError(t, err)
	assert.Empty(t, res.Vehicles)
	require.Len(t, res.Updates, 3)

	u := res.Updates[0]
	assert.Equal(t, 1, u.EntityID)
	require.NotNil(t, u.TripID)
	assert.Equal(t, "trip-1", *u.TripID)
	require.NotNil(t, u.RouteID)
	assert.Equal(t, "F1", *u.RouteID)
	require.NotNil(t, u.DirectionID)
	assert.Equal(t, uint32(1), *u.DirectionID)
	require.NotNil(t, u.StartTime)
	assert.Equal(t, "08:15:00", *u.StartTime)
	require.NotNil(t, u.StopSequence)
	assert.Equal(t, uint32(11), *u.StopSequence)
	require.NotNil(t, u.ArrivalDelaySec)
	assert.Equal(t, int32(-70), *u.ArrivalDelaySec)

	// Second child shares the parent's trip fields but has no delay.
	u = res.Updates[1]
	assert.Equal(t, 1, u.EntityID)
	require.NotNil(t, u.TripID)
	assert.Equal(t, "trip-1", *u.TripID)
	assert.Nil(t, u.ArrivalDelaySec)
	require.NotNil(t, u.ScheduleRelationship)
	assert.Equal(t, int32(0), *u.ScheduleRelationship)

	u = res.Updates[2]
	assert.Equal(t, 2, u.EntityID)
	require.NotNil(t, u.ArrivalDelaySec)
	assert.Equal(t, int32(95), *u.ArrivalDelaySec)
	assert.Nil(t, u.RouteID)
}

func TestMapEntityNumberingSkipsIrrelevantEntities(t *testing.T) {
	sched := gtfsrt.VehiclePosition_STOPPED_AT
	buf := marshalFeed(t, []*gtfsrt.FeedEntity{
		{Id: proto.String("just-an-id")}, // neither vehicle nor trip update
		vehicleEntity("2", "trip-1", "F1", "veh-100", "0052", 51.75, 19.45, 1, sched, 1),
	})

	res, err := feed.Map(buf)
	require.NoError(t, err)
	require.Len(t, res.Vehicles, 1)
	assert.Equal(t, 1, res.Vehicles[0].EntityID)
	assert.Equal(t, 2, res.NumEntities)
}

func TestMapAlerts(t *testing.T) {
	cause := gtfsrt.Alert_CONSTRUCTION
	effect := gtfsrt.Alert_DETOUR
	buf := marshalFeed(t, []*gtfsrt.FeedEntity{
		{
			Id: proto.String("1"),
			Alert: &gtfsrt.Alert{
				Cause:  &cause,
				Effect: &effect,
				InformedEntity: []*gtfsrt.EntitySelector{
					{RouteId: proto.String("2")},
					{RouteId: proto.String("69A")},
				},
				HeaderText: &gtfsrt.TranslatedString{
					Translation: []*gtfsrt.TranslatedString_Translation{
						{Text: proto.String("Objazd na Piotrkowskiej"), Language: proto.String("pl")},
					},
				},
			},
		},
	})

	res, err := feed.Map(buf)
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)

	a := res.Alerts[0]
	assert.Equal(t, []string{"2", "69A"}, a.RouteIDs)
	require.NotNil(t, a.Cause)
	assert.Equal(t, int32(gtfsrt.Alert_CONSTRUCTION), *a.Cause)
	require.NotNil(t, a.Effect)
	assert.Equal(t, int32(gtfsrt.Alert_DETOUR), *a.Effect)
	require.NotNil(t, a.HeaderText)
	assert.Equal(t, "Objazd na Piotrkowskiej", *a.HeaderText)
}

func TestMapMalformedBuffer(t *testing.T) {
	_, err := feed.Map([]byte{0xff, 0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestMapEmptyBuffer(t *testing.T) {
	res, err := feed.Map(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Vehicles)
	assert.Empty(t, res.Updates)
}
