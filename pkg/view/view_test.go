package view

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procmem/shmarr/pkg/segment"
)

func testSegmentContext(t *testing.T) *segment.Context {
	t.Helper()
	c := segment.NewContext(segment.WithDirectory(t.TempDir()))
	t.Cleanup(c.CleanupAll)
	return c
}

// twoProcessContexts returns two segment contexts over the same directory,
// standing in for two unrelated processes mapping the same segments.
func twoProcessContexts(t *testing.T) (*segment.Context, *segment.Context) {
	t.Helper()
	dir := t.TempDir()
	a := segment.NewContext(segment.WithDirectory(dir))
	b := segment.NewContext(segment.WithDirectory(dir))
	t.Cleanup(a.CleanupAll)
	t.Cleanup(b.CleanupAll)
	return a, b
}

func TestRawViewGetSet(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRaw(context.Background(), c, 9)
	require.NoError(t, err)
	defer v.Release()

	assert.Equal(t, 9, v.Len())
	for i := 0; i < 9; i++ {
		require.NoError(t, v.Set(i, byte(i)))
	}
	for i := 0; i < 9; i++ {
		got, err := v.Get(i)
		require.NoError(t, err)
		assert.Equal(t, byte(i), got)
	}
}

func TestNegativeIndexing(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRaw(context.Background(), c, 9)
	require.NoError(t, err)
	defer v.Release()

	require.NoError(t, v.Set(8, 42))
	got, err := v.Get(-1)
	require.NoError(t, err)
	assert.Equal(t, byte(42), got)

	require.NoError(t, v.Set(-9, 7))
	got, err = v.Get(0)
	require.NoError(t, err)
	assert.Equal(t, byte(7), got)
}

func TestIndexOutOfRange(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRaw(context.Background(), c, 9)
	require.NoError(t, err)
	defer v.Release()

	for _, idx := range []int{9, 100, -10, -100} {
		_, err := v.Get(idx)
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", idx)
		assert.ErrorIs(t, v.Set(idx, 0), ErrIndexOutOfRange, "index %d", idx)

		var ie *IndexError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, idx, ie.Index)
		assert.Equal(t, 9, ie.Length)
	}
}

func TestRecordViewRoundTrip(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRecord(context.Background(), c, 9, "ddd")
	require.NoError(t, err)
	defer v.Release()

	assert.Equal(t, 9, v.Len())
	assert.Equal(t, 24, v.Stride())
	assert.Equal(t, 9*24, v.Segment().Size())

	require.NoError(t, v.Set(0, 1.0, 2.0, 3.0))
	got, err := v.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, got)

	// get(-9) addresses the same element as get(0) at length 9.
	neg, err := v.Get(-9)
	require.NoError(t, err)
	assert.Equal(t, got, neg)

	_, err = v.Get(9)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = v.Get(-10)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRecordViewGetInto(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRecord(context.Background(), c, 4, "fff")
	require.NoError(t, err)
	defer v.Release()

	require.NoError(t, v.Set(2, 0.5, -0.5, 0.25))
	vals := make([]float64, 3)
	require.NoError(t, v.GetInto(vals, 2))
	assert.Equal(t, []float64{0.5, -0.5, 0.25}, vals)

	assert.Error(t, v.GetInto(make([]float64, 2), 2))
}

func TestIterationRestartable(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRecord(context.Background(), c, 5, "d")
	require.NoError(t, err)
	defer v.Release()

	for i := 0; i < 5; i++ {
		require.NoError(t, v.Set(i, float64(i)*1.5))
	}

	for pass := 0; pass < 2; pass++ {
		n := 0
		for i, rec := range v.All() {
			assert.Equal(t, n, i)
			assert.Equal(t, float64(i)*1.5, rec[0])
			n++
		}
		assert.Equal(t, 5, n)
	}

	// Early break leaves the view usable.
	for i := range v.All() {
		if i == 2 {
			break
		}
	}
	got, err := v.Get(4)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got[0])
}

func TestHandleRoundTrip(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRecord(context.Background(), c, 9, "ddd")
	require.NoError(t, err)
	defer v.Release()

	h := v.Handle()
	assert.Equal(t, 9, h.Length)
	assert.Equal(t, "ddd", h.Format)

	wire, err := h.Encode()
	require.NoError(t, err)
	parsed, err := ParseHandle(wire)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	stride, err := parsed.Stride()
	require.NoError(t, err)
	assert.Equal(t, 24, stride)

	// The wire form carries identity only, never payload bytes.
	assert.Less(t, len(wire), v.Segment().Size())
}

func TestParseHandleErrors(t *testing.T) {
	for _, wire := range []string{
		"",
		"not json",
		`{"length":9}`,
		`{"name":"x","length":0}`,
		`{"name":"x","length":-3}`,
	} {
		_, err := ParseHandle(wire)
		assert.Error(t, err, "wire %q", wire)
	}
}

// TestCrossProcessRawScenario is the end-to-end shape from the design
// notes: A creates a 9-byte raw segment and writes 0..8, B attaches via the
// transmitted handle and reads them back with no copy step.
func TestCrossProcessRawScenario(t *testing.T) {
	procA, procB := twoProcessContexts(t)

	va, err := NewRaw(context.Background(), procA, 9)
	require.NoError(t, err)
	defer va.Release()
	for i := 0; i < 9; i++ {
		require.NoError(t, va.Set(i, byte(i)))
	}

	wire, err := va.Handle().Encode()
	require.NoError(t, err)

	h, err := ParseHandle(wire)
	require.NoError(t, err)
	vb, err := AttachRaw(context.Background(), procB, h)
	require.NoError(t, err)
	defer vb.Release()

	got := make([]byte, 0, 9)
	for _, b := range vb.All() {
		got = append(got, b)
	}
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8}, got)

	// Writes through B are immediately visible through A.
	require.NoError(t, vb.Set(0, 99))
	back, err := va.Get(0)
	require.NoError(t, err)
	assert.Equal(t, byte(99), back)
}

func TestCrossProcessRecordScenario(t *testing.T) {
	procA, procB := twoProcessContexts(t)

	va, err := NewRecord(context.Background(), procA, 9, "ddd")
	require.NoError(t, err)
	defer va.Release()
	require.NoError(t, va.Set(0, 1.0, 2.0, 3.0))

	vv, err := FromHandle(context.Background(), procB, va.Handle())
	require.NoError(t, err)
	vb, ok := vv.(*RecordView)
	require.True(t, ok)
	defer vb.Release()

	assert.Equal(t, va.Handle(), vb.Handle())
	got, err := vb.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, got)
	neg, err := vb.Get(-9)
	require.NoError(t, err)
	assert.Equal(t, got, neg)
}

func TestFromHandleAfterUnlink(t *testing.T) {
	procA, procB := twoProcessContexts(t)

	va, err := NewRaw(context.Background(), procA, 9)
	require.NoError(t, err)
	h := va.Handle()

	require.NoError(t, va.Release())
	require.NoError(t, procA.Close(h.Name))
	require.NoError(t, procA.Unlink(h.Name))

	_, err = FromHandle(context.Background(), procB, h)
	assert.ErrorIs(t, err, segment.ErrNotFound)
}

func TestReleaseBarrier(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRaw(context.Background(), c, 9)
	require.NoError(t, err)
	name := v.Segment().Name()

	// Close refuses while the view is bound.
	assert.ErrorIs(t, c.Close(name), segment.ErrViewsOutstanding)

	require.NoError(t, v.Release())
	require.NoError(t, c.Close(name))
	require.NoError(t, c.Unlink(name))

	// A released view fails cleanly instead of touching freed memory.
	_, err = v.Get(0)
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, v.Set(0, 1), ErrReleased)

	// Release is idempotent.
	assert.NoError(t, v.Release())
}

func TestAttachKindMismatch(t *testing.T) {
	c := testSegmentContext(t)
	v, err := NewRecord(context.Background(), c, 4, "d")
	require.NoError(t, err)
	defer v.Release()

	_, err = AttachRaw(context.Background(), c, v.Handle())
	assert.Error(t, err)
}

func TestAttachLengthMismatch(t *testing.T) {
	procA, procB := twoProcessContexts(t)
	va, err := NewRaw(context.Background(), procA, 8)
	require.NoError(t, err)
	defer va.Release()

	h := va.Handle()
	h.Length = 1000
	_, err = AttachRaw(context.Background(), procB, h)
	assert.Error(t, err)
}

// A corrupt wire handle whose length*stride wraps past MaxInt must still be
// rejected at attach time, not fault later on element access.
func TestAttachOversizedHandleLength(t *testing.T) {
	procA, procB := twoProcessContexts(t)
	va, err := NewRecord(context.Background(), procA, 4, "ddd")
	require.NoError(t, err)
	defer va.Release()

	h := va.Handle()
	h.Length = 400_000_000_000_000_000 // times stride 24 wraps negative
	_, err = AttachRecord(context.Background(), procB, h)
	assert.Error(t, err)

	hr := Handle{Name: va.Handle().Name, Length: math.MaxInt}
	_, err = AttachRaw(context.Background(), procB, hr)
	assert.Error(t, err)
}

func TestNewViewInvalidLength(t *testing.T) {
	c := testSegmentContext(t)
	_, err := NewRaw(context.Background(), c, 0)
	assert.ErrorIs(t, err, segment.ErrInvalidSize)
	_, err = NewRecord(context.Background(), c, -1, "d")
	assert.ErrorIs(t, err, segment.ErrInvalidSize)
	_, err = NewRecord(context.Background(), c, 4, "??")
	assert.Error(t, err)
}
