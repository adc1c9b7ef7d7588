package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transit "github.com/lodzlive/transit"
	"github.com/lodzlive/transit/api"
	"github.com/lodzlive/transit/model"
)

func strptr(s string) *string { return &s }
func u64ptr(u uint64) *uint64 { return &u }

func seededStore() *transit.Store {
	store := transit.NewStore()
	store.Publish(&transit.Snapshot{
		Records: []model.JoinedRecord{
			{
				VehicleRecord: model.VehicleRecord{
					EntityID:      1,
					VehicleID:     strptr("veh-100"),
					RouteID:       strptr("F1"),
					CurrentStopID: strptr("0052"),
					Timestamp:     u64ptr(1700000100),
					RouteType:     model.RouteTypeBus,
				},
			},
		},
		FeedTimestamp: 1700000000,
		FetchedAt:     time.Now(),
	})
	return store
}

func TestDataBeforeFirstSnapshot(t *testing.T) {
	srv := api.NewServer(transit.NewStore(), nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestData(t *testing.T) {
	srv := api.NewServer(seededStore(), nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		FeedTimestamp uint64               `json:"feed_timestamp"`
		Records       []model.JoinedRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(1700000000), body.FeedTimestamp)
	require.Len(t, body.Records, 1)
	require.NotNil(t, body.Records[0].VehicleID)
	assert.Equal(t, "veh-100", *body.Records[0].VehicleID)
}

func TestHealth(t *testing.T) {
	srv := api.NewServer(seededStore(), nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["vehicles"])
}

func TestItineraryAnnotatesAndFilters(t *testing.T) {
	disabled := func() map[string]bool { return map[string]bool{"99": true} }
	srv := api.NewServer(seededStore(), disabled, nil)

	reqBody := `{
		"itineraries": [
			[
				{"mode": "WALKING"},
				{"mode": "TRANSIT", "line": "F1", "departure_stop": "Broniewskiego - Kraszewskiego (0052)"}
			],
			[
				{"mode": "TRANSIT", "line": "99", "departure_stop": "anywhere"}
			]
		]
	}`

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/itinerary", strings.NewReader(reqBody)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Itineraries [][]struct {
			Mode        string           `json:"mode"`
			Live        *model.LiveMatch `json:"live"`
			LiveChecked bool             `json:"live_checked"`
		} `json:"itineraries"`
		Dropped int `json:"dropped"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 1, body.Dropped)
	require.Len(t, body.Itineraries, 1)
	legs := body.Itineraries[0]
	require.Len(t, legs, 2)

	assert.False(t, legs[0].LiveChecked)
	assert.True(t, legs[1].LiveChecked)
	require.NotNil(t, legs[1].Live)
	require.NotNil(t, legs[1].Live.VehicleID)
	assert.Equal(t, "veh-100", *legs[1].Live.VehicleID)
}

func TestItineraryMalformedBody(t *testing.T) {
	srv := api.NewServer(seededStore(), nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/itinerary", strings.NewReader("{nope")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := api.NewServer(seededStore(), nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/data", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
