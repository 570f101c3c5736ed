// Package imagery inspects street-level imagery for lighting conditions.
package imagery

import (
	"context"
	"errors"
	"math"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// ErrInspectorUnavailable indicates the lighting inspector failed or is not configured.
var ErrInspectorUnavailable = errors.New("lighting inspector unavailable")

// Inspection is the lighting evidence found at a point.
type Inspection struct {
	// Brightness is the normalized scene brightness in [0, 1].
	Brightness float64
	// DetectedLightSources is the number of street lights and lit frontages found.
	DetectedLightSources int
}

// Normalize clamps the inspection into its documented ranges.
func (i Inspection) Normalize() Inspection {
	switch {
	case i.Brightness < 0 || math.IsNaN(i.Brightness):
		i.Brightness = 0
	case i.Brightness > 1:
		i.Brightness = 1
	}
	if i.DetectedLightSources < 0 {
		i.DetectedLightSources = 0
	}
	return i
}

// Inspector inspects imagery at a point.
type Inspector interface {
	Inspect(ctx context.Context, point polyline.Coordinate) (Inspection, error)
}
