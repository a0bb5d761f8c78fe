package geom

// geom maps between the detector's normalized box space and image pixel space.
//
// Detection backends report boxes in a fixed 0-1000 space, with each axis
// scaled independently to the source image's width and height. That keeps the
// detector output portable across differently sized blueprints. Pixel space
// is the image's natural resolution, in float pixels.

import "math"

// NormalizedRange is the extent of the detector's output space on both axes.
const NormalizedRange = 1000

// Box is a bounding box in normalized space: [x_min, y_min, x_max, y_max].
// Producers are supposed to keep min < max on both axes, but we don't enforce
// that anywhere. Degenerate boxes pass through the transforms untouched.
type Box [4]int

func (b Box) XMin() int { return b[0] }
func (b Box) YMin() int { return b[1] }
func (b Box) XMax() int { return b[2] }
func (b Box) YMax() int { return b[3] }

// Rect is an axis-aligned rectangle in image pixel space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Area() float64 {
	return r.Width * r.Height
}

func (r *Rect) Offset(dx, dy float64) {
	r.X += dx
	r.Y += dy
}

// ToPixel converts a normalized box to a pixel rect at the given image size.
// Total for any finite input, including zero or negative image dimensions.
func (b Box) ToPixel(imageWidth, imageHeight int) Rect {
	w := float64(imageWidth)
	h := float64(imageHeight)
	return Rect{
		X:      float64(b[0]) / NormalizedRange * w,
		Y:      float64(b[1]) / NormalizedRange * h,
		Width:  float64(b[2]-b[0]) / NormalizedRange * w,
		Height: float64(b[3]-b[1]) / NormalizedRange * h,
	}
}

// ToNormalized is the algebraic inverse of ToPixel, rounded to the nearest
// integer per component (normalized space is integral). Rounding makes the
// round-trip lossy by up to 1 unit per component.
func ToNormalized(r Rect, imageWidth, imageHeight int) Box {
	w := float64(imageWidth)
	h := float64(imageHeight)
	return Box{
		int(math.Round(r.X / w * NormalizedRange)),
		int(math.Round(r.Y / h * NormalizedRange)),
		int(math.Round((r.X + r.Width) / w * NormalizedRange)),
		int(math.Round((r.Y + r.Height) / h * NormalizedRange)),
	}
}
