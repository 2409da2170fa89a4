// Package segment manages the lifecycle of named shared memory segments:
// creation with collision-free naming, attach by name from unrelated
// processes, close/unlink with an exported-view release barrier, and
// best-effort cleanup on process exit and termination signals.
//
// All state lives in an explicit per-process Context rather than package
// globals; construct one near main and pass it to every lifecycle call.
package segment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/procmem/shmarr/internal/logx"
	"github.com/procmem/shmarr/internal/shm"
)

// createRetries bounds fresh-name retries before the stale-reclaim
// fallback kicks in.
const createRetries = 4

// Context owns this process's segment registry and issues every lifecycle
// operation against it. Registry mutation happens on the calling goroutine;
// the underlying maps tolerate concurrent readers.
type Context struct {
	reg *registry
	dir string
	log *logx.Logger

	tracer     trace.Tracer
	attachCnt  metric.Int64Counter
	createCnt  metric.Int64Counter
	newBackOff func() backoff.BackOff
}

// Option configures a Context.
type Option func(*Context)

// WithDirectory overrides the shared memory directory (Linux tmpfs path).
// Tests point this at a scratch dir to avoid touching /dev/shm.
func WithDirectory(dir string) Option {
	return func(c *Context) { c.dir = dir }
}

// WithLogger overrides the cleanup-path logger.
func WithLogger(l *logx.Logger) Option {
	return func(c *Context) { c.log = l }
}

// WithMeter enables OpenTelemetry counters for create and attach.
func WithMeter(m metric.Meter) Option {
	return func(c *Context) {
		c.createCnt, _ = m.Int64Counter("shmarr.segments.created")
		c.attachCnt, _ = m.Int64Counter("shmarr.segments.attached")
	}
}

// WithTracer enables OpenTelemetry spans around lifecycle operations.
func WithTracer(t trace.Tracer) Option {
	return func(c *Context) { c.tracer = t }
}

// WithBackOff overrides the create-collision retry policy.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Context) { c.newBackOff = f }
}

// NewContext builds an empty process-scoped segment context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		reg:    newRegistry(),
		dir:    shm.DefaultDir,
		log:    logx.Default,
		tracer: noop.NewTracerProvider().Tracer("shmarr"),
		newBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(5 * time.Millisecond)
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create allocates a fresh named segment of size bytes, maps it, and
// registers it locally. The name is generated, never chosen by the caller,
// so collisions only come from leftover segments of crashed runs or from
// the astronomically unlikely random clash with a live owner.
func (c *Context) Create(ctx context.Context, size int) (*Segment, error) {
	_, span := c.tracer.Start(ctx, "segment.Create")
	defer span.End()

	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if !shm.CanCreate(uint64(size), c.dir) {
		return nil, fmt.Errorf("%w: need %d bytes", ErrNoSpace, size)
	}

	var seg *Segment
	var lastCollision string
	op := func() error {
		name := generateName()
		for c.reg.has(name) {
			name = generateName()
		}
		region, err := shm.MapRegion(c.dir, shm.MapOptions{Name: name, Size: size, Create: true})
		if errors.Is(err, shm.ErrExists) {
			nameCollisions.Inc()
			lastCollision = name
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		seg = &Segment{name: name, owned: true, region: region}
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(c.newBackOff(), createRetries))
	if errors.Is(err, shm.ErrExists) {
		// Fresh names kept colliding, which points at stale wreckage from a
		// crashed prior run rather than live neighbors. Reclaim the name.
		// This is racy against a genuinely live concurrent owner; see the
		// policy note in DESIGN.md.
		seg, err = c.reclaim(lastCollision, size)
	}
	if err != nil {
		return nil, err
	}
	if err := c.reg.registerLocal(seg); err != nil {
		_ = shm.UnmapRegion(seg.region)
		_ = shm.RemoveRegion(c.dir, seg.name)
		return nil, err
	}
	span.SetAttributes(attribute.String("segment.name", seg.name),
		attribute.Int("segment.size", size))
	segmentsCreated.Inc()
	if c.createCnt != nil {
		c.createCnt.Add(ctx, 1)
	}
	c.log.Debugf("created segment %s (%d bytes)", seg.name, size)
	return seg, nil
}

// reclaim force-destroys a presumed-stale segment and recreates the name.
func (c *Context) reclaim(name string, size int) (*Segment, error) {
	stale, err := shm.MapRegion(c.dir, shm.MapOptions{Name: name})
	if err == nil {
		_ = shm.UnmapRegion(stale)
	}
	if err := shm.RemoveRegion(c.dir, name); err != nil && !errors.Is(err, shm.ErrNotExist) {
		return nil, fmt.Errorf("reclaim %s: %w", name, err)
	}
	c.log.Warnf("reclaimed stale segment %s", name)
	region, err := shm.MapRegion(c.dir, shm.MapOptions{Name: name, Size: size, Create: true})
	if err != nil {
		return nil, fmt.Errorf("recreate %s: %w", name, err)
	}
	return &Segment{name: name, owned: true, region: region}, nil
}

// Attach maps an existing segment by name and registers it as foreign.
// Attaching a name this process already tracks returns the tracked segment.
func (c *Context) Attach(ctx context.Context, name string) (*Segment, error) {
	_, span := c.tracer.Start(ctx, "segment.Attach")
	defer span.End()

	if seg, ok := c.reg.lookup(name); ok {
		return seg, nil
	}
	region, err := shm.MapRegion(c.dir, shm.MapOptions{Name: name})
	if errors.Is(err, shm.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	seg := &Segment{name: name, owned: false, region: region}
	if err := c.reg.registerForeign(seg); err != nil {
		_ = shm.UnmapRegion(region)
		return nil, err
	}
	span.SetAttributes(attribute.String("segment.name", name))
	segmentsAttached.Inc()
	if c.attachCnt != nil {
		c.attachCnt.Add(ctx, 1)
	}
	c.log.Debugf("attached segment %s (%d bytes)", name, seg.Size())
	return seg, nil
}

// Lookup returns the tracked segment for name, attaching fresh as foreign
// when the name is unknown to this process.
func (c *Context) Lookup(ctx context.Context, name string) (*Segment, error) {
	if seg, ok := c.reg.lookup(name); ok {
		return seg, nil
	}
	return c.Attach(ctx, name)
}

// Close releases this process's mapping of the named segment. It refuses
// with ErrViewsOutstanding while exported views remain; release them first.
// Foreign entries are dropped from the registry; local entries survive so
// Unlink can still find them.
func (c *Context) Close(name string) error {
	seg, ok := c.reg.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c.closeSegment(seg, false)
}

func (c *Context) closeSegment(seg *Segment, force bool) error {
	if n := seg.ViewCount(); n > 0 && !force {
		return fmt.Errorf("%w: %d views on %q", ErrViewsOutstanding, n, seg.name)
	}
	if seg.closed.CompareAndSwap(false, true) {
		if err := shm.UnmapRegion(seg.region); err != nil {
			seg.closed.Store(false)
			return err
		}
	}
	if !seg.owned {
		c.reg.removeForeign(seg.name)
	}
	return nil
}

// Unlink permanently destroys a segment this process created. The mapping
// must have been closed first; foreign segments cannot be unlinked.
func (c *Context) Unlink(name string) error {
	seg, ok := c.reg.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if !seg.owned {
		return fmt.Errorf("%w: %q", ErrNotOwner, name)
	}
	if !seg.closed.Load() {
		return fmt.Errorf("%w: %q", ErrNotClosed, name)
	}
	if err := shm.RemoveRegion(c.dir, name); err != nil && !errors.Is(err, shm.ErrNotExist) {
		return err
	}
	c.reg.removeLocal(name)
	segmentsUnlinked.Inc()
	c.log.Debugf("unlinked segment %s", name)
	return nil
}

// CleanupAll is the best-effort exit sweep: close every foreign mapping,
// then close and unlink every local one. "Already gone" is ignored; any
// other failure is logged and counted, never raised, so one bad entry does
// not strand the rest. Safe to call more than once.
func (c *Context) CleanupAll() {
	for _, seg := range c.reg.snapshotForeign() {
		if n := seg.ViewCount(); n > 0 {
			c.log.Warnf("cleanup: %d views still exported on foreign segment %s", n, seg.name)
		}
		if err := c.closeSegment(seg, true); err != nil && !alreadyGone(err) {
			cleanupErrors.Inc()
			c.log.Errorf("cleanup: close foreign %s: %v", seg.name, err)
		}
		c.reg.removeForeign(seg.name)
	}
	for _, seg := range c.reg.snapshotLocal() {
		if n := seg.ViewCount(); n > 0 {
			c.log.Warnf("cleanup: %d views still exported on local segment %s", n, seg.name)
		}
		if err := c.closeSegment(seg, true); err != nil && !alreadyGone(err) {
			cleanupErrors.Inc()
			c.log.Errorf("cleanup: close local %s: %v", seg.name, err)
		}
		switch err := shm.RemoveRegion(c.dir, seg.name); {
		case err == nil:
			segmentsUnlinked.Inc()
		case !alreadyGone(err):
			cleanupErrors.Inc()
			c.log.Errorf("cleanup: unlink local %s: %v", seg.name, err)
		}
		c.reg.removeLocal(seg.name)
	}
}

func alreadyGone(err error) bool {
	return errors.Is(err, shm.ErrNotExist) || errors.Is(err, ErrNotFound)
}

// LocalCount and ForeignCount expose registry sizes for health checks and
// tests.
func (c *Context) LocalCount() int   { return c.reg.local.Count() }
func (c *Context) ForeignCount() int { return c.reg.foreign.Count() }

// Directory returns the backing shared memory directory.
func (c *Context) Directory() string { return c.dir }
