package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ytget/media-bot/internal/logger"
	"github.com/ytget/media-bot/internal/platform"
)

// Default values
const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

var log = logger.Get("Cleanup")

// Manager owns the scratch directory's lifecycle. The TTL sweep and DeleteAfter may
// race on the same file; both treat an already-absent file as success.
type Manager struct {
	dir      string
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	running   bool
	scheduler *cron.Cron
	pending   map[uint64]*time.Timer
	nextID    uint64

	sweepMu sync.Mutex
}

// NewManager creates a lifecycle manager for dir
func NewManager(dir string, ttl, interval time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Manager{
		dir:      dir,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		pending:  make(map[uint64]*time.Timer),
	}
}

// Start runs one sweep and schedules the rest. Starting a running manager is a no-op.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	if err := platform.CreateDirectoryIfNotExists(m.dir); err != nil {
		return fmt.Errorf("failed to create scratch directory %s: %w", m.dir, err)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", m.interval), func() { m.Sweep() }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	m.Sweep()
	scheduler.Start()

	m.scheduler = scheduler
	m.running = true
	log.Emit(logger.NEW, "Sweeping %s every %s (ttl %s)\n", m.dir, m.interval, m.ttl)
	return nil
}

// Stop halts the schedule, cancels pending delayed deletions and waits for an
// in-flight sweep. Stopping a stopped manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	scheduler := m.scheduler
	m.scheduler = nil
	m.running = false

	cancelled := len(m.pending)
	for id, timer := range m.pending {
		timer.Stop()
		delete(m.pending, id)
	}
	m.mu.Unlock()

	<-scheduler.Stop().Done()
	log.Emit(logger.STOP, "Lifecycle manager stopped (%d pending deletions cancelled)\n", cancelled)
}

// Running reports whether the sweep schedule is active
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Sweep deletes every regular file in the scratch directory older than the TTL
// and returns the number removed. Per-file errors are logged and skipped.
func (m *Manager) Sweep() int {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		log.Emit(logger.WARNING, "Failed to read scratch directory %s: %v\n", m.dir, err)
		return 0
	}

	now := m.now()
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// vanished between ReadDir and Info
			continue
		}

		if now.Sub(info.ModTime()) <= m.ttl {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		if err := platform.RemoveIfExists(path); err != nil {
			log.Emit(logger.DEBUG, "Failed to remove expired file %s: %v\n", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Emit(logger.REMOVE, "Swept %d expired file(s) from %s\n", removed, m.dir)
	}
	return removed
}

// DeleteAfter schedules exactly one deletion of path after delay and returns immediately.
// Scheduled deletions are dropped by Stop; the next sweep is the backstop.
func (m *Manager) DeleteAfter(path string, delay time.Duration) {
	if delay <= 0 {
		go m.remove(path)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.pending[id] = time.AfterFunc(delay, func() {
		m.mu.Lock()
		_, ok := m.pending[id]
		delete(m.pending, id)
		m.mu.Unlock()

		if ok {
			m.remove(path)
		}
	})
}

// Immediate removes files synchronously and ignores the delay. One-shot commands use
// it since their process exits before a delayed deletion could fire.
type Immediate struct{}

// DeleteAfter removes path before returning
func (Immediate) DeleteAfter(path string, _ time.Duration) {
	if err := platform.RemoveIfExists(path); err != nil {
		log.Emit(logger.DEBUG, "Failed to remove %s: %v\n", path, err)
		return
	}
	log.Emit(logger.VERBOSE, "Removed %s\n", path)
}

// Pending returns the number of scheduled deletions that have not fired yet
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manager) remove(path string) {
	if err := platform.RemoveIfExists(path); err != nil {
		log.Emit(logger.DEBUG, "Failed to remove %s: %v\n", path, err)
		return
	}
	log.Emit(logger.VERBOSE, "Removed %s\n", path)
}
