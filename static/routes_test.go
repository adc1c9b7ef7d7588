package static_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodzlive/transit/model"
	"github.com/lodzlive/transit/static"
)

func strptr(s string) *string { return &s }

func TestBuiltinSetsAreDisjoint(t *testing.T) {
	_, err := static.NewClassification()
	assert.NoError(t, err)
}

func TestClassify(t *testing.T) {
	c, err := static.NewClassification()
	require.NoError(t, err)

	assert.Equal(t, model.RouteTypeTram, c.Classify(strptr("10A")))
	assert.Equal(t, model.RouteTypeBus, c.Classify(strptr("F1")))
	assert.Equal(t, model.RouteTypeBus, c.Classify(strptr("Z13")))
	assert.Equal(t, model.RouteTypeNightBus, c.Classify(strptr("N7B")))
	assert.Equal(t, model.RouteTypeUnknown, c.Classify(strptr("does-not-exist")))
	assert.Equal(t, model.RouteTypeUnknown, c.Classify(nil))

	// Identifiers are compared trimmed, matching the feed's habit of
	// padding them.
	assert.Equal(t, model.RouteTypeTram, c.Classify(strptr(" 2 ")))
}

func TestOverlappingSetsRejected(t *testing.T) {
	_, err := static.NewClassificationFromSets(
		[]string{"1", "2"},
		[]string{"2", "3"},
		[]string{"N1"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'2'")
}
