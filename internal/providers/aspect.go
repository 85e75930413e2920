package providers

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"
)

// AspectDimensions maps an aspect ratio string onto concrete pixel dimensions
// for the image pipeline.
func AspectDimensions(aspect string) (int, int) {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "16:9":
		return 1792, 1024
	case "9:16":
		return 1024, 1792
	case "4:3":
		return 1280, 960
	case "3:4":
		return 960, 1280
	case "1:1", "square", "":
		return 1024, 1024
	default:
		parts := strings.Split(aspect, ":")
		if len(parts) == 2 {
			if a, errA := strconv.Atoi(strings.TrimSpace(parts[0])); errA == nil {
				if b, errB := strconv.Atoi(strings.TrimSpace(parts[1])); errB == nil && a > 0 && b > 0 {
					width := 1024
					height := int(float64(width) * float64(b) / float64(a))
					return width, height
				}
			}
		}
		return 1024, 1024
	}
}

// VideoDimensions maps an aspect ratio onto the dimensions video providers
// render at.
func VideoDimensions(aspect string) (int, int) {
	switch strings.TrimSpace(strings.ToLower(aspect)) {
	case "9:16":
		return 720, 1280
	case "1:1":
		return 720, 720
	default:
		return 1280, 720
	}
}

// DecodeImageDimensions reads the intrinsic size from encoded image bytes,
// returning zeros when the format is unknown.
func DecodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
