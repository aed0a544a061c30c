package actor

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// System spawns actors and keeps process-wide bookkeeping.
type System struct {
	logger *zap.Logger

	nextID   atomic.Uint64
	running  atomic.Int64
	detached atomic.Int64

	mu    sync.RWMutex
	named map[string]*Actor
}

// Option configures a spawned actor.
type Option func(*Actor)

// Detached marks an actor as owning a dedicated worker, e.g. one that
// performs blocking I/O.
func Detached() Option {
	return func(a *Actor) {
		a.detached = true
	}
}

// NewSystem creates an actor system. A nil logger disables logging.
func NewSystem(logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{
		logger: logger,
		named:  make(map[string]*Actor),
	}
}

// Spawn starts a new actor running b.
func (s *System) Spawn(name string, b Behavior, opts ...Option) *Actor {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor{
		id:       s.nextID.Add(1),
		name:     name,
		sys:      s,
		behavior: b,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		monitors: make(map[MonitorRef]func(Down)),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(a)
	}

	s.running.Add(1)
	if a.detached {
		s.detached.Add(1)
	}
	go a.run()
	return a
}

// Running returns the number of live actors.
func (s *System) Running() int {
	return int(s.running.Load())
}

// Detached returns the number of live detached actors.
func (s *System) Detached() int {
	return int(s.detached.Load())
}

// Workers returns the size of the scheduler's worker pool.
func (s *System) Workers() int {
	return runtime.GOMAXPROCS(0)
}

// Logger returns the system logger.
func (s *System) Logger() *zap.Logger {
	return s.logger
}

// Put publishes a well-known handle under name, replacing any previous one.
func (s *System) Put(name string, a *Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.named[name] = a
}

// Get resolves a well-known handle.
func (s *System) Get(name string) (*Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.named[name]
	return a, ok
}

// Erase drops a well-known handle.
func (s *System) Erase(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.named, name)
}
