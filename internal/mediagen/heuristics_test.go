package mediagen

import "testing"

func TestIsEditRequest(t *testing.T) {
	cases := []struct {
		prompt string
		want   bool
	}{
		// Strong indicators.
		{"make this image brighter", true},
		{"edit it to look vintage", true},
		{"same but with a red car", true},
		{"the video should loop", true},
		{"change it to night time", true},

		// Moderate phrases and comparative vocabulary.
		{"make it darker", true},
		{"remove the mountain", true},
		{"replace the sky with stars", true},
		{"slightly bigger text", true},
		{"improve the lighting", true},

		// Plain creations.
		{"a lion on a mountain at sunset", false},
		{"sunset over the ocean, oil painting", false},
		{"a red bicycle", false},

		// Explicit creation overrides moderate vocabulary.
		{"create a bigger lion", false},
		{"generate an image of a darker forest", false},
		{"draw a brighter sunset", false},

		// Word-boundary matching: no hit inside longer words.
		{"a sorcerer polishing armor", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsEditRequest(tc.prompt); got != tc.want {
			t.Fatalf("IsEditRequest(%q) = %v, want %v", tc.prompt, got, tc.want)
		}
	}
}
