// Package media wraps the external ffprobe and ffmpeg tools used to classify
// and remux uploaded videos.
package media

import "math"

// AspectClass is the coarse orientation bucket folded into object keys.
type AspectClass string

const (
	Landscape AspectClass = "landscape"
	Portrait  AspectClass = "portrait"
	Other     AspectClass = "other"
)

const aspectTolerance = 0.02

// Geometry is the pixel size of the first video stream.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Classify buckets a width/height pair. Zero or negative sizes are Other.
func Classify(width, height int) AspectClass {
	if width <= 0 || height <= 0 {
		return Other
	}
	ratio := float64(width) / float64(height)
	switch {
	case math.Abs(ratio-16.0/9.0) < aspectTolerance:
		return Landscape
	case math.Abs(ratio-9.0/16.0) < aspectTolerance:
		return Portrait
	default:
		return Other
	}
}

func (g Geometry) Aspect() AspectClass {
	return Classify(g.Width, g.Height)
}
