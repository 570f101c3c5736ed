package safety

// Daylight is 06:00 to 18:00 local time.
func isDaytime(hour int) bool {
	return hour >= 6 && hour < 18
}

// nightDegradation is how much darker the night has become: 0 in the evening
// (18-21), 1 late (21-24), 2 in the small hours (0-6).
func nightDegradation(hour int) float64 {
	switch {
	case hour >= 18 && hour < 21:
		return 0
	case hour >= 21:
		return 1
	default:
		return 2
	}
}

func isPeakHour(hour int) bool {
	return (hour >= 7 && hour < 10) || (hour >= 17 && hour < 20)
}

func isLateNight(hour int) bool {
	return hour >= 23 || hour < 5
}
