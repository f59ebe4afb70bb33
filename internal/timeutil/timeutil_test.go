package timeutil

import "testing"

// TestFormatSeconds tests conversion to FFmpeg HH:MM:SS.MS format
func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		expected string
	}{
		{"zero", 0, "00:00:00.00"},
		{"ninety seconds", 90, "00:01:30.00"},
		{"over an hour", 3661, "01:01:01.00"},
		{"fractional", 30.53, "00:00:30.53"},
		{"chunk boundary", 2.0, "00:00:02.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatSeconds(tt.seconds)
			if result != tt.expected {
				t.Errorf("FormatSeconds(%v) = %s, expected %s", tt.seconds, result, tt.expected)
			}
		})
	}
}

// TestFixed3 tests fixed-precision formatting used in content hashes
func TestFixed3(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "0.000"},
		{1.5, "1.500"},
		{2.0000004, "2.000"},
		{1.9995, "2.000"},
	}

	for _, tt := range tests {
		if got := Fixed3(tt.value); got != tt.expected {
			t.Errorf("Fixed3(%v) = %s, expected %s", tt.value, got, tt.expected)
		}
	}
}

// TestRoundMillis tests millisecond rounding for frame cache keys
func TestRoundMillis(t *testing.T) {
	if got := RoundMillis(1.0004); got != 1000 {
		t.Errorf("RoundMillis(1.0004) = %d, expected 1000", got)
	}
	if got := RoundMillis(1.0006); got != 1001 {
		t.Errorf("RoundMillis(1.0006) = %d, expected 1001", got)
	}
	if got := RoundMillis(0); got != 0 {
		t.Errorf("RoundMillis(0) = %d, expected 0", got)
	}
}
