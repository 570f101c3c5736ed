package routing

import "strings"

// Maneuver is the normalized action a step asks the traveller to take.
type Maneuver string

const (
	ManeuverStraight    Maneuver = "straight"
	ManeuverTurnLeft    Maneuver = "turn-left"
	ManeuverTurnRight   Maneuver = "turn-right"
	ManeuverSlightLeft  Maneuver = "slight-left"
	ManeuverSlightRight Maneuver = "slight-right"
	ManeuverSharpLeft   Maneuver = "sharp-left"
	ManeuverSharpRight  Maneuver = "sharp-right"
	ManeuverUTurn       Maneuver = "u-turn"
	ManeuverMerge       Maneuver = "merge"
	ManeuverRoundabout  Maneuver = "roundabout"
	ManeuverRamp        Maneuver = "ramp"
	ManeuverArrive      Maneuver = "arrive"
)

// ParseManeuver maps a provider maneuver tag onto a Maneuver.
// Unknown and empty tags are treated as straight.
func ParseManeuver(tag string) Maneuver {
	tag = strings.ToLower(strings.TrimSpace(tag))

	switch tag {
	case "straight", "continue", "depart", "head", "":
		return ManeuverStraight
	case "turn-left":
		return ManeuverTurnLeft
	case "turn-right":
		return ManeuverTurnRight
	case "turn-slight-left", "slight-left", "keep-left":
		return ManeuverSlightLeft
	case "turn-slight-right", "slight-right", "keep-right":
		return ManeuverSlightRight
	case "turn-sharp-left", "sharp-left":
		return ManeuverSharpLeft
	case "turn-sharp-right", "sharp-right":
		return ManeuverSharpRight
	case "uturn-left", "uturn-right", "u-turn", "uturn":
		return ManeuverUTurn
	case "merge":
		return ManeuverMerge
	case "arrive", "destination":
		return ManeuverArrive
	}

	switch {
	case strings.HasPrefix(tag, "roundabout"):
		return ManeuverRoundabout
	case strings.HasPrefix(tag, "ramp"), strings.HasPrefix(tag, "fork"):
		return ManeuverRamp
	case strings.HasPrefix(tag, "keep-left"):
		return ManeuverSlightLeft
	case strings.HasPrefix(tag, "keep-right"):
		return ManeuverSlightRight
	}
	return ManeuverStraight
}
