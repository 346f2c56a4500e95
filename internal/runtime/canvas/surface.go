package canvas

import (
	"bytes"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
)

const (
	minDimension = 1
	maxDimension = 2048

	defaultWidth  = 400
	defaultHeight = 400
)

// rgba is a normalized color, channels in [0, 1].
type rgba struct {
	r, g, b, a float64
}

// Surface is the drawing target shared by both canvas modes. It tracks the
// current fill/stroke state the way a 2D canvas context does and rasterizes
// into an off-screen image.
type Surface struct {
	mu sync.Mutex
	dc *gg.Context
	w  int
	h  int

	fill      rgba
	hasFill   bool
	stroke    rgba
	hasStroke bool
	weight    float64
}

// NewSurface creates a surface with clamped dimensions.
func NewSurface(w, h int) *Surface {
	w, h = clampDimensions(w, h)
	return &Surface{
		dc:      gg.NewContext(w, h),
		w:       w,
		h:       h,
		fill:    rgba{0, 0, 0, 1},
		hasFill: true,
		weight:  1,
	}
}

func clampDimensions(w, h int) (int, int) {
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	if w < minDimension {
		w = minDimension
	}
	if h < minDimension {
		h = minDimension
	}
	if w > maxDimension {
		w = maxDimension
	}
	if h > maxDimension {
		h = maxDimension
	}
	return w, h
}

// Resize replaces the backing image, discarding prior content.
func (s *Surface) Resize(w, h int) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.h = clampDimensions(w, h)
	s.dc = gg.NewContext(s.w, s.h)
	return s.w, s.h
}

// Size returns the current dimensions.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

// Clear floods the surface with a color.
func (s *Surface) Clear(c rgba) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.SetRGBA(c.r, c.g, c.b, c.a)
	s.dc.Clear()
}

// SetFill enables filling with the given color.
func (s *Surface) SetFill(c rgba) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fill = c
	s.hasFill = true
}

// NoFill disables filling.
func (s *Surface) NoFill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasFill = false
}

// SetStroke enables stroking with the given color.
func (s *Surface) SetStroke(c rgba) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stroke = c
	s.hasStroke = true
}

// NoStroke disables stroking.
func (s *Surface) NoStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasStroke = false
}

// SetWeight sets the stroke line width.
func (s *Surface) SetWeight(w float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w > 0 {
		s.weight = w
	}
}

// Rect draws a rectangle with the current fill and stroke.
func (s *Surface) Rect(x, y, w, h float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.DrawRectangle(x, y, w, h)
	s.paint()
}

// Circle draws a circle centered at (x, y).
func (s *Surface) Circle(x, y, r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.DrawCircle(x, y, r)
	s.paint()
}

// Ellipse draws an ellipse centered at (x, y) with radii rx, ry.
func (s *Surface) Ellipse(x, y, rx, ry float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.DrawEllipse(x, y, rx, ry)
	s.paint()
}

// Line draws a stroked segment. Lines always stroke, falling back to the
// fill color when stroking is disabled so the call is never invisible.
func (s *Surface) Line(x1, y1, x2, y2 float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.stroke
	if !s.hasStroke {
		c = s.fill
	}
	s.dc.SetRGBA(c.r, c.g, c.b, c.a)
	s.dc.SetLineWidth(s.weight)
	s.dc.DrawLine(x1, y1, x2, y2)
	s.dc.Stroke()
}

// Triangle draws a closed triangle with the current fill and stroke.
func (s *Surface) Triangle(x1, y1, x2, y2, x3, y3 float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.MoveTo(x1, y1)
	s.dc.LineTo(x2, y2)
	s.dc.LineTo(x3, y3)
	s.dc.ClosePath()
	s.paint()
}

// Point draws a single dot at stroke weight.
func (s *Surface) Point(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.stroke
	if !s.hasStroke {
		c = s.fill
	}
	s.dc.SetRGBA(c.r, c.g, c.b, c.a)
	s.dc.DrawCircle(x, y, s.weight/2)
	s.dc.Fill()
}

// paint applies the current fill then stroke to the pending path.
// Callers hold s.mu.
func (s *Surface) paint() {
	if s.hasFill {
		s.dc.SetRGBA(s.fill.r, s.fill.g, s.fill.b, s.fill.a)
		s.dc.FillPreserve()
	}
	if s.hasStroke {
		s.dc.SetRGBA(s.stroke.r, s.stroke.g, s.stroke.b, s.stroke.a)
		s.dc.SetLineWidth(s.weight)
		s.dc.StrokePreserve()
	}
	s.dc.ClearPath()
}

// EncodePNG exports the surface as a PNG.
func (s *Surface) EncodePNG() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := s.dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// namedColors covers the common CSS color keywords sketches reach for.
var namedColors = map[string]rgba{
	"black":   {0, 0, 0, 1},
	"white":   {1, 1, 1, 1},
	"red":     {1, 0, 0, 1},
	"green":   {0, 0.5, 0, 1},
	"lime":    {0, 1, 0, 1},
	"blue":    {0, 0, 1, 1},
	"yellow":  {1, 1, 0, 1},
	"orange":  {1, 0.647, 0, 1},
	"purple":  {0.5, 0, 0.5, 1},
	"pink":    {1, 0.753, 0.796, 1},
	"cyan":    {0, 1, 1, 1},
	"magenta": {1, 0, 1, 1},
	"gray":    {0.5, 0.5, 0.5, 1},
	"grey":    {0.5, 0.5, 0.5, 1},
	"brown":   {0.647, 0.165, 0.165, 1},
	"navy":    {0, 0, 0.5, 1},
	"teal":    {0, 0.5, 0.5, 1},
}

// parseColor interprets p5-style color arguments: one gray value, gray plus
// alpha, RGB, RGBA (0-255 channels), a hex string, or a CSS color name.
func parseColor(args []any) (rgba, bool) {
	if len(args) == 0 {
		return rgba{}, false
	}

	if s, ok := args[0].(string); ok {
		return parseColorString(s)
	}

	nums := make([]float64, 0, len(args))
	for _, a := range args {
		f, ok := toFloat(a)
		if !ok {
			return rgba{}, false
		}
		nums = append(nums, f/255)
	}

	switch len(nums) {
	case 1:
		return rgba{nums[0], nums[0], nums[0], 1}, true
	case 2:
		return rgba{nums[0], nums[0], nums[0], nums[1]}, true
	case 3:
		return rgba{nums[0], nums[1], nums[2], 1}, true
	default:
		return rgba{nums[0], nums[1], nums[2], nums[3]}, true
	}
}

func parseColorString(s string) (rgba, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		return rgba{}, false
	}

	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return rgba{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rgba{}, false
	}
	return rgba{
		r: float64(v>>16&0xff) / 255,
		g: float64(v>>8&0xff) / 255,
		b: float64(v&0xff) / 255,
		a: 1,
	}, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
