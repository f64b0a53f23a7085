package usage

import (
	"context"
	"sync"
	"time"

	"github.com/coachworks/agentchat/core/types"
	"github.com/mudler/xlog"
)

// Window returns the monthly accounting window t falls into.
func Window(t time.Time) string {
	return t.UTC().Format("2006-01")
}

type key struct {
	owner, window string
}

// MemoryTracker keeps usage totals in process memory.
type MemoryTracker struct {
	sync.Mutex
	totals map[key]types.Usage
	now    func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		totals: make(map[key]types.Usage),
		now:    time.Now,
	}
}

// WithClock replaces the time source, used to pin the window in tests.
func (m *MemoryTracker) WithClock(now func() time.Time) *MemoryTracker {
	m.now = now
	return m
}

func (m *MemoryTracker) Record(_ context.Context, owner string, in, out int) error {
	m.Lock()
	defer m.Unlock()

	k := key{owner: owner, window: Window(m.now())}
	u := m.totals[k]
	u.Owner, u.Window = k.owner, k.window
	u.InputTokens += int64(in)
	u.OutputTokens += int64(out)
	u.TotalTokens += int64(in + out)
	u.Calls++
	m.totals[k] = u
	return nil
}

func (m *MemoryTracker) CurrentWindow(_ context.Context, owner string) (types.Usage, error) {
	m.Lock()
	defer m.Unlock()

	k := key{owner: owner, window: Window(m.now())}
	u, ok := m.totals[k]
	if !ok {
		return types.Usage{Owner: owner, Window: k.window}, nil
	}
	return u, nil
}

// AsyncTracker records in the background on a single worker. Reads queue
// a barrier behind the pending records, so a caller always sees its own usage.
type AsyncTracker struct {
	inner types.UsageTracker
	queue chan record
	stop  chan struct{}
	once  sync.Once
}

// record is either a usage record or, when done is set, a barrier.
type record struct {
	ctx     context.Context
	owner   string
	in, out int
	done    chan struct{}
}

func NewAsyncTracker(inner types.UsageTracker) *AsyncTracker {
	a := &AsyncTracker{
		inner: inner,
		queue: make(chan record, 256),
		stop:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncTracker) run() {
	for {
		select {
		case <-a.stop:
			return
		case r := <-a.queue:
			if r.done != nil {
				close(r.done)
				continue
			}
			if err := a.inner.Record(r.ctx, r.owner, r.in, r.out); err != nil {
				xlog.Error("Error recording token usage", "owner", r.owner, "error", err)
			}
		}
	}
}

func (a *AsyncTracker) Record(ctx context.Context, owner string, in, out int) error {
	select {
	case <-a.stop:
		xlog.Warn("Usage tracker closed, dropping record", "owner", owner)
		return nil
	default:
	}
	select {
	case a.queue <- record{ctx: context.WithoutCancel(ctx), owner: owner, in: in, out: out}:
	case <-a.stop:
		xlog.Warn("Usage tracker closed, dropping record", "owner", owner)
	}
	return nil
}

func (a *AsyncTracker) CurrentWindow(ctx context.Context, owner string) (types.Usage, error) {
	if err := a.barrier(ctx); err != nil {
		return types.Usage{}, err
	}
	return a.inner.CurrentWindow(ctx, owner)
}

func (a *AsyncTracker) barrier(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case a.queue <- record{done: done}:
	case <-a.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-a.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush blocks until every record queued before the call has landed.
func (a *AsyncTracker) Flush() {
	_ = a.barrier(context.Background())
}

// Close flushes and stops the worker. Records after Close are dropped.
func (a *AsyncTracker) Close() {
	a.Flush()
	a.once.Do(func() { close(a.stop) })
}
