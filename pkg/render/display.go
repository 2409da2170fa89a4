package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// AppendFrame renders the framebuffer as ANSI truecolor rows into a pooled
// buffer. Each pixel becomes two background-colored spaces; each row ends
// with a reset and newline.
func AppendFrame(buf *bytebufferpool.ByteBuffer, fb *FrameBuffer) error {
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			r, g, b, err := fb.Pixel(x, y)
			if err != nil {
				return err
			}
			buf.B = append(buf.B, "\033[48;2;"...)
			buf.B = strconv.AppendUint(buf.B, uint64(r), 10)
			buf.B = append(buf.B, ';')
			buf.B = strconv.AppendUint(buf.B, uint64(g), 10)
			buf.B = append(buf.B, ';')
			buf.B = strconv.AppendUint(buf.B, uint64(b), 10)
			buf.B = append(buf.B, "m  "...)
		}
		buf.B = append(buf.B, "\033[0m\n"...)
	}
	return nil
}

// Display writes one frame to w, assembling it through the buffer pool to
// keep per-frame allocation flat.
func Display(w io.Writer, fb *FrameBuffer) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := AppendFrame(buf, fb); err != nil {
		return err
	}
	if _, err := w.Write(buf.B); err != nil {
		return fmt.Errorf("render: write frame: %w", err)
	}
	return nil
}
