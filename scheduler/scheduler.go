// Package scheduler runs the server's periodic maintenance (leaderboard
// refresh, abandoned dungeon cleanup) and one-shot delayed notifications.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. The context is
// cancelled when the scheduler stops.
type TaskFn func(ctx context.Context) error

// ErrUnknownTask is returned by RunNow for a name that was never registered.
var ErrUnknownTask = errors.New("scheduler: unknown task")

// Locker grants a run slot when several server instances share one cache.
// cache.Cache satisfies it.
type Locker interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// TaskInfo is a snapshot of one ticker task, as shown on the admin API.
type TaskInfo struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Runs     int64         `json:"runs"`
	LastRun  *time.Time    `json:"last_run,omitempty"`
	LastErr  string        `json:"last_error,omitempty"`
}

type tickerEntry struct {
	name     string
	interval time.Duration
	fn       TaskFn
	ticker   *time.Ticker
	stopCh   chan struct{}

	runMu   sync.Mutex // serializes ticks with RunNow
	runs    int64
	lastRun time.Time
	lastErr error
}

// Scheduler manages periodic and delayed tasks.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	timers  map[string]*time.Timer
	locker  Locker
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		timers:  make(map[string]*time.Timer),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetLocker makes ticks run on only one instance per interval.
func (s *Scheduler) SetLocker(l Locker) {
	s.mu.Lock()
	s.locker = l
	s.mu.Unlock()
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tickers[name]; ok {
		close(old.stopCh)
		delete(s.tickers, name)
	}

	entry := &tickerEntry{
		name:     name,
		interval: interval,
		fn:       fn,
		ticker:   time.NewTicker(interval),
		stopCh:   make(chan struct{}),
	}
	s.tickers[name] = entry

	go func() {
		defer entry.ticker.Stop()
		for {
			select {
			case <-entry.ticker.C:
				if s.acquire(name, interval) {
					s.run(entry)
				}
			case <-entry.stopCh:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) acquire(name string, interval time.Duration) bool {
	s.mu.Lock()
	l := s.locker
	s.mu.Unlock()
	if l == nil {
		return true
	}
	ok, err := l.SetNX(s.ctx, "sched:"+name, "1", interval/2)
	if err != nil {
		s.logger.Warn("scheduler lock failed, running anyway", zap.String("task", name), zap.Error(err))
		return true
	}
	return ok
}

func (s *Scheduler) run(entry *tickerEntry) (err error) {
	entry.runMu.Lock()
	defer entry.runMu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", entry.name),
				zap.Any("recover", r))
			err = fmt.Errorf("panic: %v", r)
		}
		entry.runs++
		entry.lastRun = start
		entry.lastErr = err
		if err != nil {
			s.logger.Warn("scheduler task failed", zap.String("task", entry.name), zap.Error(err))
		}
	}()
	return entry.fn(s.ctx)
}

// RunNow runs a registered ticker task synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	entry, ok := s.tickers[name]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownTask
	}
	return s.run(entry)
}

// AddDelay runs fn once after the given delay. A pending delay with the
// same name is replaced.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("delay task panicked",
					zap.String("task", name), zap.Any("recover", r))
			}
			s.mu.Lock()
			if s.timers[name] == t {
				delete(s.timers, name)
			}
			s.mu.Unlock()
		}()
		if s.ctx.Err() != nil {
			return
		}
		if err := fn(s.ctx); err != nil {
			s.logger.Warn("delay task failed", zap.String("task", name), zap.Error(err))
		}
	})
	s.timers[name] = t
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		close(entry.stopCh)
		delete(s.tickers, name)
	}
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Stop stops all tasks and pending delays.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}

// ListTickers returns the names of all registered ticker tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks returns a snapshot of every ticker task.
func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	entries := make([]*tickerEntry, 0, len(s.tickers))
	for _, e := range s.tickers {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]TaskInfo, 0, len(entries))
	for _, e := range entries {
		e.runMu.Lock()
		info := TaskInfo{Name: e.name, Interval: e.interval, Runs: e.runs}
		if !e.lastRun.IsZero() {
			last := e.lastRun
			info.LastRun = &last
		}
		if e.lastErr != nil {
			info.LastErr = e.lastErr.Error()
		}
		e.runMu.Unlock()
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PendingDelays reports how many one-shot tasks are waiting to fire.
func (s *Scheduler) PendingDelays() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
