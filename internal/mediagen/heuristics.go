package mediagen

import (
	"regexp"
	"strings"
)

// Edit detection is a fixed-vocabulary substring match, not a classifier.
// A false positive costs little: the attached reference degrades gracefully
// if the provider cannot use it, while a false negative loses the user's
// conversational context entirely.

// Strong indicators: any hit means the prompt refers to existing media.
var strongEditKeywords = []string{
	"this image", "that image", "the image", "this video", "that video", "the video",
	"previous", "last one", "last image", "last video", "above image", "above video",

	"edit this", "edit it", "change this", "change it", "modify this", "modify it",
	"update this", "update it", "alter this", "alter it", "fix this", "fix it",

	"same but", "similar but", "like the last", "like before", "keep it but",
	"keep the", "keep this", "instead of", "insted of",
}

// Moderate indicators: edit verbs and transformation phrases acting on an
// implied subject.
var moderateEditKeywords = []string{
	"make it", "make the", "turn it", "turn the", "convert it", "convert the",
	"add to", "add more", "remove from", "remove the", "replace the",
	"put in", "take out",
}

// Explicit new-creation phrasing overrides every moderate signal.
var newCreationKeywords = []string{
	"generate a", "generate an", "generate image",
	"create a", "create an", "create new",
	"make a", "make an", "make new",
	"show me a", "show me an",
	"draw a", "draw an",
	"design a", "design an",
}

// Single-word edit verbs and comparative adjectives, matched on word
// boundaries so they never fire inside longer words.
var editWordPattern = regexp.MustCompile(`(?i)\b(improve|enhance|upgrade|optimize|refine|polish|redo|remake|recreate|regenerate|rework|better|bigger|smaller|brighter|darker|lighter|sharper|softer|clearer|smoother|faster|slower|longer|shorter|louder|quieter|wider|taller|thicker)\b`)

// IsEditRequest decides whether a prompt asks to modify prior media rather
// than create from scratch. Matching is case-insensitive and purely lexical.
func IsEditRequest(prompt string) bool {
	lower := strings.ToLower(strings.TrimSpace(prompt))
	if lower == "" {
		return false
	}

	for _, kw := range strongEditKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	for _, kw := range newCreationKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	for _, kw := range moderateEditKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return editWordPattern.MatchString(lower)
}
