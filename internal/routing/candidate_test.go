package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/pkg/polyline"
)

func TestFromRaw_AppendsArriveStep(t *testing.T) {
	c, err := FromRaw(rawRoute(testOrigin, testDestination, 1800, 1200, "via MG Road"))
	require.NoError(t, err)

	require.Equal(t, 2, c.NumSteps())
	assert.Equal(t, ManeuverStraight, c.Step(0).Maneuver)
	last := c.Step(1)
	assert.Equal(t, ManeuverArrive, last.Maneuver)
	assert.Equal(t, c.Destination(), last.End)
	assert.Zero(t, last.DistanceMeters)
}

func TestFromRaw_StitchesStepGeometry(t *testing.T) {
	mid := Coordinate{Lat: 12.9750, Lon: 77.5970}
	first := polyline.Interpolate(testOrigin, mid, 100)
	second := polyline.Interpolate(mid, testDestination, 100)

	c, err := FromRaw(RawRoute{
		DistanceMeters:  1800,
		DurationSeconds: 1200,
		Steps: []RawStep{
			{Instruction: "Head north", Maneuver: "", Polyline: polyline.Encode(first), Start: Coordinate{Lat: 999}, End: Coordinate{Lat: 999}},
			{Instruction: "Turn right", Maneuver: "turn-right", Polyline: polyline.Encode(second), Start: mid, End: testDestination},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, len(first)+len(second)-1, c.NumPoints(), "shared joint is not duplicated")
	steps := c.Steps()
	require.Len(t, steps, 3)
	assert.True(t, steps[0].Start.Valid(), "invalid step endpoints are recovered from step geometry")
	assert.InDelta(t, testOrigin.Lat, steps[0].Start.Lat, 1e-5)
	assert.Equal(t, ManeuverTurnRight, steps[1].Maneuver)
	assert.Equal(t, ManeuverArrive, steps[2].Maneuver)
}

func TestFromRaw_EmptyGeometry(t *testing.T) {
	c, err := FromRaw(RawRoute{DistanceMeters: 100})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrEmptyGeometry)

	c, err = FromRaw(RawRoute{Polyline: "!!!"})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrEmptyGeometry)
	assert.ErrorIs(t, err, polyline.ErrMalformedGeometry)
}

func TestNewCandidate_DerivesMissingTotals(t *testing.T) {
	pts := polyline.Interpolate(testOrigin, testDestination, 50)
	c := NewCandidate(pts, nil, 0, 0, "")

	assert.InDelta(t, polyline.Length(pts), c.DistanceMeters(), 1e-6)
	assert.InDelta(t, c.DistanceMeters()/WalkingSpeedMetersPerSecond, c.DurationSeconds(), 1e-6)
	require.Equal(t, 2, c.NumSteps())
	assert.Equal(t, ManeuverStraight, c.Step(0).Maneuver)
}

func TestRouteCandidate_AccessorsReturnCopies(t *testing.T) {
	c, err := FromRaw(rawRoute(testOrigin, testDestination, 1800, 1200, "x"))
	require.NoError(t, err)

	pts := c.Points()
	pts[0] = Coordinate{Lat: 0, Lon: 0}
	assert.Equal(t, testOrigin.Lat, c.Origin().Lat)

	steps := c.Steps()
	steps[0].Instruction = "mutated"
	assert.Equal(t, "Head north", c.Step(0).Instruction)
}

func TestSynthesize(t *testing.T) {
	c := Synthesize(testOrigin, testDestination)

	assert.True(t, c.Synthetic())
	assert.Equal(t, SyntheticSummary, c.Summary())
	require.Greater(t, c.NumPoints(), 2)
	assert.Equal(t, testOrigin, c.Origin())
	assert.Equal(t, testDestination, c.Destination())

	pts := c.Points()
	for i := 1; i < len(pts); i++ {
		assert.LessOrEqual(t, polyline.Haversine(pts[i-1], pts[i]), 50.5)
	}

	expected := polyline.Haversine(testOrigin, testDestination)
	assert.InDelta(t, expected, c.DistanceMeters(), 1e-6)
	assert.InDelta(t, expected/WalkingSpeedMetersPerSecond, c.DurationSeconds(), 1e-6)

	require.Equal(t, 2, c.NumSteps())
	assert.Equal(t, ManeuverStraight, c.Step(0).Maneuver)
	assert.Equal(t, ManeuverArrive, c.Step(1).Maneuver)
}

func TestParseManeuver(t *testing.T) {
	tests := []struct {
		tag      string
		expected Maneuver
	}{
		{"", ManeuverStraight},
		{"straight", ManeuverStraight},
		{"turn-left", ManeuverTurnLeft},
		{"TURN-RIGHT", ManeuverTurnRight},
		{"turn-slight-left", ManeuverSlightLeft},
		{"keep-right", ManeuverSlightRight},
		{"turn-sharp-left", ManeuverSharpLeft},
		{"turn-sharp-right", ManeuverSharpRight},
		{"uturn-left", ManeuverUTurn},
		{"merge", ManeuverMerge},
		{"roundabout-right", ManeuverRoundabout},
		{"ramp-left", ManeuverRamp},
		{"fork-right", ManeuverRamp},
		{"ferry", ManeuverStraight},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseManeuver(tt.tag))
		})
	}
}
