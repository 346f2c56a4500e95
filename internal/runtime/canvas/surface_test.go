package canvas

import (
	"testing"
)

func TestClampDimensions(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{name: "defaults", w: 0, h: 0, wantW: 400, wantH: 400},
		{name: "negative", w: -5, h: -5, wantW: 400, wantH: 400},
		{name: "passthrough", w: 300, h: 150, wantW: 300, wantH: 150},
		{name: "oversized", w: 9000, h: 9000, wantW: 2048, wantH: 2048},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSurface(tt.w, tt.h)
			w, h := s.Size()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Size() = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResizeDiscardsContent(t *testing.T) {
	s := NewSurface(100, 100)
	s.Clear(rgba{1, 0, 0, 1})

	w, h := s.Resize(60, 40)
	if w != 60 || h != 40 {
		t.Fatalf("Resize() = %dx%d, want 60x40", w, h)
	}

	data, err := s.EncodePNG()
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("EncodePNG() returned empty image")
	}
}

func TestClearFloodsSurface(t *testing.T) {
	s := NewSurface(10, 10)
	s.Clear(rgba{1, 0, 0, 1})

	img := s.dc.Image()
	r, g, b, _ := img.At(5, 5).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("pixel = (%d, %d, %d), want red", r>>8, g>>8, b>>8)
	}
}

func TestRectFillsPixels(t *testing.T) {
	s := NewSurface(20, 20)
	s.Clear(rgba{1, 1, 1, 1})
	s.SetFill(rgba{0, 0, 1, 1})
	s.NoStroke()
	s.Rect(5, 5, 10, 10)

	img := s.dc.Image()
	_, _, b, _ := img.At(10, 10).RGBA()
	if b>>8 != 255 {
		t.Errorf("inside pixel blue = %d, want 255", b>>8)
	}
	r, g, bb, _ := img.At(1, 1).RGBA()
	if r>>8 != 255 || g>>8 != 255 || bb>>8 != 255 {
		t.Errorf("outside pixel = (%d, %d, %d), want white", r>>8, g>>8, bb>>8)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want rgba
		ok   bool
	}{
		{name: "gray", args: []any{int64(255)}, want: rgba{1, 1, 1, 1}, ok: true},
		{name: "gray with alpha", args: []any{int64(0), int64(255)}, want: rgba{0, 0, 0, 1}, ok: true},
		{name: "rgb", args: []any{int64(255), int64(0), int64(0)}, want: rgba{1, 0, 0, 1}, ok: true},
		{name: "rgba", args: []any{int64(0), int64(255), int64(0), int64(0)}, want: rgba{0, 1, 0, 0}, ok: true},
		{name: "float channels", args: []any{float64(127.5)}, want: rgba{0.5, 0.5, 0.5, 1}, ok: true},
		{name: "named", args: []any{"red"}, want: rgba{1, 0, 0, 1}, ok: true},
		{name: "named case insensitive", args: []any{" White "}, want: rgba{1, 1, 1, 1}, ok: true},
		{name: "hex long", args: []any{"#ff0000"}, want: rgba{1, 0, 0, 1}, ok: true},
		{name: "hex short", args: []any{"#0f0"}, want: rgba{0, 1, 0, 1}, ok: true},
		{name: "unknown name", args: []any{"vermilion"}, ok: false},
		{name: "bad hex", args: []any{"#zzzzzz"}, ok: false},
		{name: "empty", args: nil, ok: false},
		{name: "non-numeric", args: []any{true}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseColor(tt.args)
			if ok != tt.ok {
				t.Fatalf("parseColor() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("parseColor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
