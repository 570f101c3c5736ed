package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferoute/saferoute/internal/api/models"
	"github.com/saferoute/saferoute/pkg/polyline"
)

func TestLineString_LongitudeFirst(t *testing.T) {
	geom := models.LineString([]polyline.Coordinate{
		{Lat: 12.9716, Lon: 77.5946},
		{Lat: 12.9800, Lon: 77.6000},
	})

	data, err := json.Marshal(geom)
	require.NoError(t, err)

	var decoded struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "LineString", decoded.Type)
	require.Len(t, decoded.Coordinates, 2)
	assert.Equal(t, []float64{77.5946, 12.9716}, decoded.Coordinates[0])
}

func TestPoint_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		point  *models.Point
		fields []string
	}{
		{"missing", nil, []string{"origin"}},
		{"valid", &models.Point{Lat: 12.97, Lon: 77.59}, nil},
		{"lat out of range", &models.Point{Lat: 91, Lon: 0}, []string{"origin.lat"}},
		{"both out of range", &models.Point{Lat: -91, Lon: 181}, []string{"origin.lat", "origin.lon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []string
			for _, fe := range tt.point.FieldErrors("origin") {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestTimestamp_UTCSeconds(t *testing.T) {
	amsterdam := time.FixedZone("CEST", 2*60*60)
	ts := models.Timestamp(time.Date(2024, 6, 1, 23, 30, 15, 999_000_000, amsterdam))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-06-01T21:30:15Z"`, string(data))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Time().Equal(time.Date(2024, 6, 1, 21, 30, 15, 0, time.UTC)))

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &back))
	assert.Error(t, json.Unmarshal([]byte(`12`), &back))
	assert.NoError(t, json.Unmarshal([]byte(`null`), &back))
}
