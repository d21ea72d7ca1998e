package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/order-protection/models"
	"github.com/upb/order-protection/repositories"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when events are recorded before Start or after Stop
	ErrNotStarted = errors.New("audit service not started")

	// ErrBufferFull is returned when the event buffer cannot accept more events
	ErrBufferFull = errors.New("audit event buffer full")
)

// Recorder accepts protection events for persistence
type Recorder interface {
	Record(ctx context.Context, event *models.ProtectionEvent) error
}

// NopRecorder discards every event. Used when no database is configured.
type NopRecorder struct{}

// Record implements Recorder
func (NopRecorder) Record(context.Context, *models.ProtectionEvent) error { return nil }

// AuditService persists protection events asynchronously through a worker pool
type AuditService struct {
	repo        repositories.ProtectionEventRepository
	logger      *zap.Logger
	eventChan   chan *models.ProtectionEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	stopped     bool
	dropped     int
	mu          sync.Mutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repositories.ProtectionEventRepository, logger *zap.Logger, config Config) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}

	return &AuditService{
		repo:        repo,
		logger:      logger.Named("audit"),
		eventChan:   make(chan *models.ProtectionEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for the pending ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.stopped = true
	pending := len(s.eventChan)
	close(s.eventChan)
	s.mu.Unlock()

	s.logger.Info("stopping audit service", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// Record enqueues an event without blocking. A full buffer drops the event.
func (s *AuditService) Record(_ context.Context, event *models.ProtectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return ErrNotStarted
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.dropped++
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Action)),
			zap.String("request_id", event.RequestID))
		return ErrBufferFull
	}
}

// Recent returns the latest persisted events
func (s *AuditService) Recent(ctx context.Context, limit int) ([]*models.ProtectionEvent, error) {
	return s.repo.ListRecent(ctx, limit)
}

// ByRequestID returns the persisted events for one inbound request
func (s *AuditService) ByRequestID(ctx context.Context, requestID string) ([]*models.ProtectionEvent, error) {
	return s.repo.ListByRequestID(ctx, requestID)
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Action)),
				zap.String("request_id", event.RequestID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(event *models.ProtectionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.Insert(ctx, event); err != nil {
		return fmt.Errorf("failed to insert protection event: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Dropped:       s.dropped,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int  `json:"buffer_size"`
	PendingEvents int  `json:"pending_events"`
	WorkerCount   int  `json:"worker_count"`
	Dropped       int  `json:"dropped"`
	Started       bool `json:"started"`
}
