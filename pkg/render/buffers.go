// Package render is the demo workload over shared typed arrays: a normal
// map and an RGB framebuffer shared across worker processes, shaded in
// parallel by disjoint row ranges and drawn to a terminal. It is an
// ordinary consumer of the view contract and adds no lifecycle rules of
// its own.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/procmem/shmarr/pkg/segment"
	"github.com/procmem/shmarr/pkg/view"
)

// normalFormat packs one surface normal as three little-endian float64s.
const normalFormat = "ddd"

// bytesPerPixel is the framebuffer stride: R, G, B.
const bytesPerPixel = 3

// Grid maps 2D coordinates onto a flat view, row-major: index = y*Width+x.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Index returns the flat element index for (x, y).
func (g Grid) Index(x, y int) int { return y*g.Width + x }

// GridHandle is a view handle extended with the grid shape, the only
// extension the demo needs from the core. Its JSON form is the spawn
// argument handed to worker processes.
type GridHandle struct {
	view.Handle
	Grid
}

// Encode renders the grid handle as JSON.
func (h GridHandle) Encode() (string, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("render: encode grid handle: %w", err)
	}
	return string(b), nil
}

// ParseGridHandle decodes the JSON form produced by Encode.
func ParseGridHandle(s string) (GridHandle, error) {
	var h GridHandle
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return GridHandle{}, fmt.Errorf("render: parse grid handle: %w", err)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return GridHandle{}, fmt.Errorf("render: parse grid handle: bad shape %dx%d", h.Width, h.Height)
	}
	return h, nil
}

// NormalBuffer is a width*height grid of unit-ish surface normals stored
// as packed float64 triples in shared memory.
type NormalBuffer struct {
	*view.RecordView
	Grid
}

// NewNormalBuffer creates the backing segment in c and binds the buffer.
func NewNormalBuffer(ctx context.Context, c *segment.Context, width, height int) (*NormalBuffer, error) {
	v, err := view.NewRecord(ctx, c, width*height, normalFormat)
	if err != nil {
		return nil, err
	}
	return &NormalBuffer{RecordView: v, Grid: Grid{Width: width, Height: height}}, nil
}

// AttachNormalBuffer rebinds a normal buffer in another process from its
// grid handle. The payload is never copied.
func AttachNormalBuffer(ctx context.Context, c *segment.Context, h GridHandle) (*NormalBuffer, error) {
	v, err := view.AttachRecord(ctx, c, h.Handle)
	if err != nil {
		return nil, err
	}
	return &NormalBuffer{RecordView: v, Grid: h.Grid}, nil
}

// GridHandle captures the buffer identity plus shape for transmission.
func (b *NormalBuffer) GridHandle() GridHandle {
	return GridHandle{Handle: b.Handle(), Grid: b.Grid}
}

// FillDefault writes the demo's corrugated wave pattern.
func (b *NormalBuffer) FillDefault() error {
	for y := 0; y < b.Height; y++ {
		yf := math.Pi/2 + (math.Abs(float64(y%30*2-30))-30*0.5)*0.1
		cosY, sinY := math.Cos(yf), math.Sin(yf)
		for x := 0; x < b.Width; x++ {
			xf := float64(x) * math.Pi / 20
			err := b.Set(b.Index(x, y),
				math.Cos(xf)*cosY,
				math.Sin(xf)*cosY,
				-math.Abs(sinY))
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// FrameBuffer is a width*height RGB image, one raw byte per channel, in
// shared memory.
type FrameBuffer struct {
	*view.RawView
	Grid
}

// NewFrameBuffer creates the backing segment in c and binds the buffer.
func NewFrameBuffer(ctx context.Context, c *segment.Context, width, height int) (*FrameBuffer, error) {
	v, err := view.NewRaw(ctx, c, width*height*bytesPerPixel)
	if err != nil {
		return nil, err
	}
	return &FrameBuffer{RawView: v, Grid: Grid{Width: width, Height: height}}, nil
}

// AttachFrameBuffer rebinds a framebuffer in another process from its grid
// handle.
func AttachFrameBuffer(ctx context.Context, c *segment.Context, h GridHandle) (*FrameBuffer, error) {
	v, err := view.AttachRaw(ctx, c, h.Handle)
	if err != nil {
		return nil, err
	}
	return &FrameBuffer{RawView: v, Grid: h.Grid}, nil
}

// GridHandle captures the buffer identity plus shape for transmission.
func (b *FrameBuffer) GridHandle() GridHandle {
	return GridHandle{Handle: b.Handle(), Grid: b.Grid}
}

// Pixel returns the RGB triple at (x, y).
func (b *FrameBuffer) Pixel(x, y int) (r, g, bl byte, err error) {
	base := b.Index(x, y) * bytesPerPixel
	if r, err = b.Get(base); err != nil {
		return
	}
	if g, err = b.Get(base + 1); err != nil {
		return
	}
	bl, err = b.Get(base + 2)
	return
}

// SetPixel writes the RGB triple at (x, y).
func (b *FrameBuffer) SetPixel(x, y int, r, g, bl byte) error {
	base := b.Index(x, y) * bytesPerPixel
	if err := b.Set(base, r); err != nil {
		return err
	}
	if err := b.Set(base+1, g); err != nil {
		return err
	}
	return b.Set(base+2, bl)
}

// FillDefault paints the demo's dark base tone.
func (b *FrameBuffer) FillDefault() error {
	n := b.Len()
	for i := 0; i < n; i += bytesPerPixel {
		if err := b.Set(i, 64); err != nil {
			return err
		}
		if err := b.Set(i+1, 32); err != nil {
			return err
		}
		if err := b.Set(i+2, 24); err != nil {
			return err
		}
	}
	return nil
}

// FromNormals shades the framebuffer as a flat visualization of the normal
// map, mapping each component from [-1, 1] to [0, 255].
func (b *FrameBuffer) FromNormals(nb *NormalBuffer) error {
	for i, rec := range nb.All() {
		base := i * bytesPerPixel
		if err := b.Set(base, byte((1-rec[0])*255/2)); err != nil {
			return err
		}
		if err := b.Set(base+1, byte((1-rec[1])*255/2)); err != nil {
			return err
		}
		if err := b.Set(base+2, byte((1-rec[2])*255/2)); err != nil {
			return err
		}
	}
	return nil
}
