package valueobjects

import (
	"math"

	pkgerrors "inkboard-backend/pkg/errors"
)

// Position is a value object for node coordinates in canvas space
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position with validation
func NewPosition(x, y float64) (Position, error) {
	if !isFinite(x) || !isFinite(y) {
		return Position{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Position{X: x, Y: y}, nil
}

// Offset returns a position translated by dx, dy
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.X-other.X) < epsilon && math.Abs(p.Y-other.Y) < epsilon
}

// Size is a value object for node dimensions. The zero value means
// "auto-size by content".
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a size with validation
func NewSize(width, height float64) (Size, error) {
	if !isFinite(width) || !isFinite(height) || width < 0 || height < 0 {
		return Size{}, pkgerrors.NewValidationError("invalid size: dimensions must be finite and non-negative")
	}
	return Size{Width: width, Height: height}, nil
}

// IsZero reports whether the size is unset (auto-size)
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// OrDefault returns the size, substituting a default when unset
func (s Size) OrDefault(width, height float64) Size {
	if s.IsZero() {
		return Size{Width: width, Height: height}
	}
	return s
}

// Rect is an axis-aligned rectangle in canvas space
type Rect struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// NewRect builds a rectangle from two corners, normalizing order
func NewRect(x1, y1, x2, y2 float64) Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Expand grows the rectangle by margin on all sides
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X1: r.X1 - margin,
		Y1: r.Y1 - margin,
		X2: r.X2 + margin,
		Y2: r.Y2 + margin,
	}
}

// Contains reports whether a point lies inside the rectangle
func (r Rect) Contains(p Position) bool {
	return p.X >= r.X1 && p.X <= r.X2 && p.Y >= r.Y1 && p.Y <= r.Y2
}

// Intersects reports whether two rectangles overlap
func (r Rect) Intersects(other Rect) bool {
	return r.X1 <= other.X2 && r.X2 >= other.X1 &&
		r.Y1 <= other.Y2 && r.Y2 >= other.Y1
}

// Viewport is the current pan/zoom transform of the canvas
type Viewport struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// NewViewport creates a viewport with validation
func NewViewport(panX, panY, zoom float64) (Viewport, error) {
	if !isFinite(panX) || !isFinite(panY) || !isFinite(zoom) {
		return Viewport{}, pkgerrors.NewValidationError("invalid viewport: values must be finite")
	}
	if zoom <= 0 {
		return Viewport{}, pkgerrors.NewValidationError("invalid viewport: zoom must be positive")
	}
	return Viewport{PanX: panX, PanY: panY, Zoom: zoom}, nil
}

// DefaultViewport returns the identity transform
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// VisibleRect computes the world-space rectangle covered by a screen of the
// given pixel size under this transform.
func (v Viewport) VisibleRect(screenWidth, screenHeight float64) Rect {
	return Rect{
		X1: -v.PanX / v.Zoom,
		Y1: -v.PanY / v.Zoom,
		X2: (-v.PanX + screenWidth) / v.Zoom,
		Y2: (-v.PanY + screenHeight) / v.Zoom,
	}
}

// ToCanvas converts a screen-space point to canvas space
func (v Viewport) ToCanvas(screenX, screenY float64) Position {
	return Position{
		X: (screenX - v.PanX) / v.Zoom,
		Y: (screenY - v.PanY) / v.Zoom,
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
