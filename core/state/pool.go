package state

import (
	"context"
	"sync"
	"time"

	"github.com/mudler/xlog"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"
)

// Pool serializes runs on the same conversation and caps how many
// conversations run at once.
type Pool struct {
	sync.Mutex
	locks map[string]*conversationLock
	runs  *semaphore.Weighted
	idle  time.Duration
	cron  *cron.Cron
	now   func() time.Time
}

type conversationLock struct {
	held     chan struct{}
	refs     int
	lastUsed time.Time
}

func NewPool(maxConcurrentRuns int64, idle time.Duration) *Pool {
	if maxConcurrentRuns <= 0 {
		maxConcurrentRuns = 1
	}
	return &Pool{
		locks: make(map[string]*conversationLock),
		runs:  semaphore.NewWeighted(maxConcurrentRuns),
		idle:  idle,
		now:   time.Now,
	}
}

// Acquire blocks until the caller owns the conversation and a run slot.
// The returned function releases both.
func (p *Pool) Acquire(ctx context.Context, conversationID string) (func(), error) {
	p.Lock()
	l, ok := p.locks[conversationID]
	if !ok {
		l = &conversationLock{held: make(chan struct{}, 1)}
		p.locks[conversationID] = l
	}
	l.refs++
	p.Unlock()

	select {
	case l.held <- struct{}{}:
	case <-ctx.Done():
		p.unref(l)
		return nil, ctx.Err()
	}

	if err := p.runs.Acquire(ctx, 1); err != nil {
		<-l.held
		p.unref(l)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.runs.Release(1)
			<-l.held
			p.unref(l)
		})
	}, nil
}

func (p *Pool) unref(l *conversationLock) {
	p.Lock()
	defer p.Unlock()
	l.refs--
	l.lastUsed = p.now()
}

// Prune forgets locks nobody holds or waits on that have been idle longer
// than the idle duration. It returns how many were dropped.
func (p *Pool) Prune() int {
	p.Lock()
	defer p.Unlock()

	cutoff := p.now().Add(-p.idle)
	pruned := 0
	for id, l := range p.locks {
		if l.refs == 0 && l.lastUsed.Before(cutoff) {
			delete(p.locks, id)
			pruned++
		}
	}
	return pruned
}

// Size is the number of conversation locks currently tracked.
func (p *Pool) Size() int {
	p.Lock()
	defer p.Unlock()
	return len(p.locks)
}

// Start schedules Prune with a cron spec such as "@every 10m".
func (p *Pool) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := p.Prune(); n > 0 {
			xlog.Debug("Pruned idle conversation locks", "count", n)
		}
	}); err != nil {
		return err
	}
	p.Lock()
	p.cron = c
	p.Unlock()
	c.Start()
	xlog.Info("Conversation lock pruning scheduled", "spec", spec)
	return nil
}

func (p *Pool) Stop() {
	p.Lock()
	c := p.cron
	p.cron = nil
	p.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
