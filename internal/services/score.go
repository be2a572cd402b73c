package services

// ReverseScore maps a raw Likert value to its reverse-scored value on a
// 0..maxValue scale (maxValue 3 for the four-option PID-5 and DASS-21 forms).
// Out-of-range values are clamped first, so the mapping is an involution.
func ReverseScore(raw, maxValue int) int {
	if maxValue < 1 {
		return raw
	}
	if raw < 0 {
		raw = 0
	}
	if raw > maxValue {
		raw = maxValue
	}
	return maxValue - raw
}
