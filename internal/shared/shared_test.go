package shared

import (
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tc := []struct {
		name     string
		input    string
		fallback string
		want     string
	}{
		{
			name:     "plain name passes through",
			input:    "IMG_2041.jpg",
			fallback: "media",
			want:     "IMG_2041.jpg",
		},
		{
			name:     "path separators replaced",
			input:    "holiday/day1\\beach.jpg",
			fallback: "media",
			want:     "holiday_day1_beach.jpg",
		},
		{
			name:     "colons replaced",
			input:    "2020:06:01.jpg",
			fallback: "media",
			want:     "2020_06_01.jpg",
		},
		{
			name:     "control characters dropped",
			input:    "movie\x00\x1f.mp4",
			fallback: "media",
			want:     "movie.mp4",
		},
		{
			name:     "empty result falls back",
			input:    " ..",
			fallback: "media-123",
			want:     "media-123",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.input, tt.fallback)
			if got != tt.want {
				t.Errorf("SanitizeFilename() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"sub-minute", 6*time.Second + 40*time.Millisecond, "6.0s"},
		{"minutes", 4*time.Minute + 5*time.Second, "4m05s"},
		{"hours", time.Hour + 2*time.Minute, "1h02m"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatDuration(tt.d)
			if got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || b == "" {
		t.Fatal("GenerateID() returned an empty ID")
	}
	if a == b {
		t.Errorf("GenerateID() returned duplicate IDs: %s", a)
	}
}
