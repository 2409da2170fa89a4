package view

import (
	"context"
	"fmt"
	"iter"

	"github.com/procmem/shmarr/pkg/segment"
)

// Viewer is the capability every concrete view implements: identity capture
// for crossing process boundaries, and deterministic release of the
// exported reference into the mapping.
type Viewer interface {
	Handle() Handle
	Len() int
	Release() error
}

// binding ties a view to its segment and the exported byte slice.
type binding struct {
	ctx      *segment.Context
	seg      *segment.Segment
	data     []byte
	length   int
	released bool
}

func bind(ctx *segment.Context, seg *segment.Segment, length int) binding {
	return binding{ctx: ctx, seg: seg, data: seg.Bytes(), length: length}
}

// Len returns the element count.
func (b *binding) Len() int { return b.length }

// Segment returns the backing segment.
func (b *binding) Segment() *segment.Segment { return b.seg }

// Release drops the view's exported reference into the mapping. The
// segment cannot be closed until every view over it has been released.
// Release is idempotent.
func (b *binding) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	b.data = nil
	b.seg.Release()
	return nil
}

func (b *binding) bytes() ([]byte, error) {
	if b.released {
		return nil, ErrReleased
	}
	return b.data, nil
}

// RawView interprets a segment as a flat array of single bytes.
type RawView struct {
	binding
}

// RecordView interprets a segment as a fixed-stride array of packed
// records; each element is a tuple of numeric fields.
type RecordView struct {
	binding
	format *Format
}

// NewRaw creates a fresh segment of length bytes and binds a raw view over
// it. The creating process owns the segment.
func NewRaw(ctx context.Context, c *segment.Context, length int) (*RawView, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: got length %d", segment.ErrInvalidSize, length)
	}
	seg, err := c.Create(ctx, length)
	if err != nil {
		return nil, err
	}
	return &RawView{binding: bind(c, seg, length)}, nil
}

// NewRecord creates a segment sized length*stride for the given format and
// binds a record view over it.
func NewRecord(ctx context.Context, c *segment.Context, length int, spec string) (*RecordView, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: got length %d", segment.ErrInvalidSize, length)
	}
	f, err := ParseFormat(spec)
	if err != nil {
		return nil, err
	}
	seg, err := c.Create(ctx, length*f.Stride())
	if err != nil {
		return nil, err
	}
	return &RecordView{binding: bind(c, seg, length), format: f}, nil
}

// FromHandle attaches to the segment named by the handle and binds the
// matching view kind over the same bytes. No payload is copied; the two
// processes now address the same physical memory. Fails with
// segment.ErrNotFound when the segment was unlinked before the attach.
func FromHandle(ctx context.Context, c *segment.Context, h Handle) (Viewer, error) {
	if h.Format == "" {
		return AttachRaw(ctx, c, h)
	}
	return AttachRecord(ctx, c, h)
}

// AttachRaw rebinds a raw view from its handle.
func AttachRaw(ctx context.Context, c *segment.Context, h Handle) (*RawView, error) {
	if h.Format != "" {
		return nil, fmt.Errorf("view: handle %q is not raw (format %q)", h.Name, h.Format)
	}
	seg, err := attachChecked(ctx, c, h, 1)
	if err != nil {
		return nil, err
	}
	return &RawView{binding: bind(c, seg, h.Length)}, nil
}

// AttachRecord rebinds a record view from its handle.
func AttachRecord(ctx context.Context, c *segment.Context, h Handle) (*RecordView, error) {
	f, err := ParseFormat(h.Format)
	if err != nil {
		return nil, err
	}
	seg, err := attachChecked(ctx, c, h, f.Stride())
	if err != nil {
		return nil, err
	}
	return &RecordView{binding: bind(c, seg, h.Length), format: f}, nil
}

func attachChecked(ctx context.Context, c *segment.Context, h Handle, stride int) (*segment.Segment, error) {
	seg, err := c.Attach(ctx, h.Name)
	if err != nil {
		return nil, err
	}
	// Division form so an absurd wire length cannot overflow past the check.
	if h.Length > seg.Size()/stride {
		return nil, fmt.Errorf("view: segment %q holds %d bytes, handle wants %d elements of %d", h.Name, seg.Size(), h.Length, stride)
	}
	return seg, nil
}

// Handle returns the view's serializable identity.
func (v *RawView) Handle() Handle {
	return Handle{Name: v.seg.Name(), Length: v.length}
}

// Get returns the byte at index. Negative indices count from the end.
func (v *RawView) Get(index int) (byte, error) {
	data, err := v.bytes()
	if err != nil {
		return 0, err
	}
	i, err := normalize(index, v.length)
	if err != nil {
		return 0, err
	}
	return data[i], nil
}

// Set writes the byte at index. The write is immediately visible to every
// process mapping the segment.
func (v *RawView) Set(index int, value byte) error {
	data, err := v.bytes()
	if err != nil {
		return err
	}
	i, err := normalize(index, v.length)
	if err != nil {
		return err
	}
	data[i] = value
	return nil
}

// All iterates the bytes in index order. The sequence is restartable and
// yields copies, never sub-views of the mapping.
func (v *RawView) All() iter.Seq2[int, byte] {
	return func(yield func(int, byte) bool) {
		if v.released {
			return
		}
		for i := 0; i < v.length; i++ {
			if !yield(i, v.data[i]) {
				return
			}
		}
	}
}

// Handle returns the view's serializable identity.
func (v *RecordView) Handle() Handle {
	return Handle{Name: v.seg.Name(), Length: v.length, Format: v.format.Spec()}
}

// Format returns the compiled record layout.
func (v *RecordView) Format() *Format { return v.format }

// Stride returns the packed record size in bytes.
func (v *RecordView) Stride() int { return v.format.Stride() }

// Get decodes the record at index into a fresh field tuple. Negative
// indices count from the end.
func (v *RecordView) Get(index int) ([]float64, error) {
	data, err := v.bytes()
	if err != nil {
		return nil, err
	}
	i, err := normalize(index, v.length)
	if err != nil {
		return nil, err
	}
	off := i * v.format.stride
	return v.format.unpack(data[off : off+v.format.stride]), nil
}

// GetInto decodes the record at index into vals, avoiding the per-element
// allocation of Get on hot paths. vals must have Format().NumFields()
// entries.
func (v *RecordView) GetInto(vals []float64, index int) error {
	data, err := v.bytes()
	if err != nil {
		return err
	}
	i, err := normalize(index, v.length)
	if err != nil {
		return err
	}
	if len(vals) != v.format.NumFields() {
		return fmt.Errorf("view: format %q wants %d values, got %d", v.format.Spec(), v.format.NumFields(), len(vals))
	}
	off := i * v.format.stride
	v.format.unpackInto(vals, data[off:off+v.format.stride])
	return nil
}

// Set encodes the field tuple into the record at index, in place.
func (v *RecordView) Set(index int, vals ...float64) error {
	data, err := v.bytes()
	if err != nil {
		return err
	}
	i, err := normalize(index, v.length)
	if err != nil {
		return err
	}
	off := i * v.format.stride
	return v.format.pack(data[off:off+v.format.stride], vals)
}

// All iterates decoded records in index order. Each yielded tuple is
// independently decoded, not a live sub-view, so holding one past the loop
// never pins the mapping.
func (v *RecordView) All() iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		if v.released {
			return
		}
		stride := v.format.stride
		for i := 0; i < v.length; i++ {
			off := i * stride
			if !yield(i, v.format.unpack(v.data[off:off+stride])) {
				return
			}
		}
	}
}
