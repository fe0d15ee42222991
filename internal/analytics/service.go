package analytics

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Service provides the async analytics writer. Emit performs a non-blocking
// channel send (drops on overflow). A background goroutine flushes batches to
// the Repo, and an optional cron schedule prunes old events.
type Service struct {
	repo      *Repo
	queue     chan Event
	batchSize int
	interval  time.Duration
	retention time.Duration
	sched     *cron.Cron

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// ServiceConfig configures the analytics service.
type ServiceConfig struct {
	Repo          *Repo
	QueueSize     int
	FlushBatch    int
	FlushInterval time.Duration

	// Retention is how long events are kept. PruneSchedule is a standard
	// five-field cron expression; both must be set for pruning to run.
	Retention     time.Duration
	PruneSchedule string
}

// NewService creates a new analytics service.
func NewService(cfg ServiceConfig) *Service {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 8192
	}
	batchSize := cfg.FlushBatch
	if batchSize <= 0 {
		batchSize = 512
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	s := &Service{
		repo:      cfg.Repo,
		queue:     make(chan Event, queueSize),
		batchSize: batchSize,
		interval:  interval,
		retention: cfg.Retention,
		stopCh:    make(chan struct{}),
	}
	if cfg.Retention > 0 && cfg.PruneSchedule != "" {
		s.sched = cron.New()
		if _, err := s.sched.AddFunc(cfg.PruneSchedule, s.prune); err != nil {
			// Schedule is validated at config load; failing here means a bug.
			log.Printf("[analytics] bad prune schedule %q: %v", cfg.PruneSchedule, err)
			s.sched = nil
		}
	}
	return s
}

// Start launches the background flush goroutine and the prune schedule.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.flushLoop()
	if s.sched != nil {
		s.sched.Start()
	}
}

// Stop signals the flush loop to stop, drains remaining events, and returns.
func (s *Service) Stop() {
	if s.sched != nil {
		s.sched.Stop()
	}
	close(s.stopCh)
	s.wg.Wait()
}

// Emit enqueues an event. Non-blocking; drops on overflow.
func (s *Service) Emit(e Event) {
	select {
	case s.queue <- e:
	default:
		// Queue full, drop the event to avoid blocking the hot path.
	}
}

// flushLoop runs until stopCh is closed, flushing on batch-size or timer.
func (s *Service) flushLoop() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}

		case <-s.stopCh:
			// Drain remaining.
			s.drainAndFlush(batch)
			return
		}
	}
}

func (s *Service) drainAndFlush(batch []Event) {
	for {
		select {
		case e := <-s.queue:
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

func (s *Service) flush(events []Event) {
	if n, err := s.repo.InsertBatch(events); err != nil {
		log.Printf("[analytics] flush %d events failed: %v", len(events), err)
	} else if n > 0 {
		log.Printf("[analytics] flushed %d events", n)
	}
}

func (s *Service) prune() {
	cutoff := time.Now().Add(-s.retention).UnixNano()
	n, err := s.repo.Prune(cutoff)
	if err != nil {
		log.Printf("[analytics] prune failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[analytics] pruned %d events", n)
	}
}

// Repo returns the underlying repository for query access.
func (s *Service) Repo() *Repo {
	return s.repo
}
