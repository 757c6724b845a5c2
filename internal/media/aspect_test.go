package media

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          AspectClass
	}{
		{"full hd landscape", 1920, 1080, Landscape},
		{"720p landscape", 1280, 720, Landscape},
		{"rounded landscape", 854, 480, Landscape},
		{"full hd portrait", 1080, 1920, Portrait},
		{"rounded portrait", 480, 854, Portrait},
		{"square", 500, 500, Other},
		{"4:3", 640, 480, Other},
		{"zero width", 0, 1080, Other},
		{"zero height", 1920, 0, Other},
		{"both zero", 0, 0, Other},
		{"negative", -1920, 1080, Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.width, tt.height); got != tt.want {
				t.Errorf("Classify(%d, %d) = %s, want %s", tt.width, tt.height, got, tt.want)
			}
		})
	}
}
