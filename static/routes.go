package static

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/lodzlive/transit/model"
)

// MPK line numbers by transport mode. The three sets are disjoint by
// construction; NewClassification enforces it.

var tramRoutes = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9",
	"10A", "10B",
	"11", "12", "14", "15",
	"16", "17", "18", "19",
	"41", "43", "45",
}

var busRoutes = []string{
	"Z", "Z3", "Z13",
	"50A", "50B",
	"51A", "51B",
	"52",
	"53A", "53B",
	"54A", "54B",
	"55A", "55B",
	"56",
	"57",
	"58A", "58B",
	"59",
	"60A", "60B", "60C", "60D",
	"61", "62", "63",
	"64A", "64B",
	"65A", "65B",
	"66",
	"68",
	"69A", "69B",
	"70",
	"71A", "71B",
	"72A", "72B",
	"73",
	"75A", "75B",
	"76",
	"77",
	"78",
	"80A", "80B",
	"81A", "81B",
	"82A", "82B",
	"83",
	"84A", "84B",
	"85A", "85B",
	"86",
	"87A", "87B",
	"88A", "88B", "88C", "88D",
	"89", "90",
	"91A", "91B", "91C",
	"92A", "92B",
	"93",
	"94",
	"96",
	"97A", "97B",
	"99",
	"201", "202",
	"F1", "G1", "G2", "H", "W",
}

var nightBusRoutes = []string{
	"N1A", "N1B",
	"N2",
	"N3A", "N3B",
	"N4A", "N4B",
	"N5A", "N5B",
	"N6",
	"N7A", "N7B",
	"N8",
	"N9",
}

// Classification maps a route identifier to its transport mode.
type Classification struct {
	byRoute map[string]model.RouteType
}

// NewClassification builds the classification from the built-in MPK
// line sets.
func NewClassification() (*Classification, error) {
	return NewClassificationFromSets(tramRoutes, busRoutes, nightBusRoutes)
}

// NewClassificationFromSets builds a classification from explicit
// sets. An identifier appearing in more than one set is a
// configuration defect and fails the load.
func NewClassificationFromSets(tram, bus, night []string) (*Classification, error) {
	c := &Classification{byRoute: map[string]model.RouteType{}}

	add := func(ids []string, rt model.RouteType) error {
		for _, id := range ids {
			if prev, ok := c.byRoute[id]; ok {
				return errors.Errorf("route '%s' classified as both %s and %s", id, prev, rt)
			}
			c.byRoute[id] = rt
		}
		return nil
	}

	if err := add(tram, model.RouteTypeTram); err != nil {
		return nil, err
	}
	if err := add(bus, model.RouteTypeBus); err != nil {
		return nil, err
	}
	if err := add(night, model.RouteTypeNightBus); err != nil {
		return nil, err
	}

	return c, nil
}

// Classify returns the transport mode for a route id. Absent or
// unlisted ids classify as unknown; that is data, not an error.
func (c *Classification) Classify(routeID *string) model.RouteType {
	if routeID == nil {
		return model.RouteTypeUnknown
	}
	if rt, ok := c.byRoute[strings.TrimSpace(*routeID)]; ok {
		return rt
	}
	return model.RouteTypeUnknown
}
