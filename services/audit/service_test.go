package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/order-protection/models"
	"go.uber.org/zap"
)

// MockEventRepository is a mock implementation of ProtectionEventRepository
type MockEventRepository struct {
	mock.Mock
	mu       sync.Mutex
	inserted []*models.ProtectionEvent
}

func (m *MockEventRepository) Insert(ctx context.Context, event *models.ProtectionEvent) error {
	args := m.Called(ctx, event)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, event)
	return args.Error(0)
}

func (m *MockEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.ProtectionEvent, error) {
	args := m.Called(ctx, limit)
	if events := args.Get(0); events != nil {
		return events.([]*models.ProtectionEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) ListByRequestID(ctx context.Context, requestID string) ([]*models.ProtectionEvent, error) {
	args := m.Called(ctx, requestID)
	if events := args.Get(0); events != nil {
		return events.([]*models.ProtectionEvent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) Inserted() []*models.ProtectionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ProtectionEvent(nil), m.inserted...)
}

func newEvent(action models.ProtectionAction) *models.ProtectionEvent {
	return models.NewProtectionEvent("shopify", action).WithRequest("req-1")
}

func TestAuditService_StartStop(t *testing.T) {
	service := NewAuditService(new(MockEventRepository), zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())

	stats := service.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	assert.Error(t, service.Start())

	require.NoError(t, service.Stop(5*time.Second))
	assert.False(t, service.GetStats().Started)
	assert.ErrorIs(t, service.Stop(time.Second), ErrNotStarted)
}

func TestAuditService_DefaultsForInvalidConfig(t *testing.T) {
	service := NewAuditService(new(MockEventRepository), nil, Config{})

	stats := service.GetStats()
	assert.Equal(t, DefaultConfig().BufferSize, stats.BufferSize)
	assert.Equal(t, DefaultConfig().WorkerCount, stats.WorkerCount)
}

func TestAuditService_RecordBeforeStart(t *testing.T) {
	service := NewAuditService(new(MockEventRepository), zap.NewNop(), DefaultConfig())

	err := service.Record(context.Background(), newEvent(models.ProtectionActionAdded))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestAuditService_RecordAfterStop(t *testing.T) {
	service := NewAuditService(new(MockEventRepository), zap.NewNop(), DefaultConfig())
	require.NoError(t, service.Start())
	require.NoError(t, service.Stop(time.Second))

	err := service.Record(context.Background(), newEvent(models.ProtectionActionAdded))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestAuditService_Record(t *testing.T) {
	repo := new(MockEventRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 2})
	require.NoError(t, service.Start())

	event := newEvent(models.ProtectionActionAdded).WithVariant("999")
	require.NoError(t, service.Record(context.Background(), event))

	// Stop drains the buffer before returning
	require.NoError(t, service.Stop(5*time.Second))

	inserted := repo.Inserted()
	require.Len(t, inserted, 1)
	assert.Equal(t, event.ID, inserted[0].ID)
	assert.Equal(t, models.ProtectionActionAdded, inserted[0].Action)
}

func TestAuditService_ConcurrentRecording(t *testing.T) {
	repo := new(MockEventRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 1000, WorkerCount: 5})
	require.NoError(t, service.Start())

	goroutineCount := 10
	eventsPerGoroutine := 10
	var wg sync.WaitGroup

	for i := 0; i < goroutineCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				_ = service.Record(context.Background(), newEvent(models.ProtectionActionRemoved))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), goroutineCount*eventsPerGoroutine)
}

func TestAuditService_InsertFailureDoesNotStopWorkers(t *testing.T) {
	repo := new(MockEventRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	require.NoError(t, service.Start())

	require.NoError(t, service.Record(context.Background(), newEvent(models.ProtectionActionAdded)))
	require.NoError(t, service.Record(context.Background(), newEvent(models.ProtectionActionRemoved)))

	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), 2)
}

func TestAuditService_BufferFull(t *testing.T) {
	repo := new(MockEventRepository)
	release := make(chan struct{})
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		<-release
	})

	service := NewAuditService(repo, zap.NewNop(), Config{BufferSize: 2, WorkerCount: 1})
	require.NoError(t, service.Start())

	accepted := 0
	var lastErr error
	for i := 0; i < 10; i++ {
		if err := service.Record(context.Background(), newEvent(models.ProtectionActionAdded)); err != nil {
			lastErr = err
			continue
		}
		accepted++
	}

	// One in flight at most plus the buffer
	assert.LessOrEqual(t, accepted, 3)
	assert.ErrorIs(t, lastErr, ErrBufferFull)
	assert.Positive(t, service.GetStats().Dropped)

	close(release)
	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.Inserted(), accepted)
}

func TestAuditService_Queries(t *testing.T) {
	repo := new(MockEventRepository)
	recent := []*models.ProtectionEvent{newEvent(models.ProtectionActionAdded)}
	repo.On("ListRecent", mock.Anything, 20).Return(recent, nil)
	repo.On("ListByRequestID", mock.Anything, "req-1").Return(recent, nil)

	service := NewAuditService(repo, zap.NewNop(), DefaultConfig())

	events, err := service.Recent(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, recent, events)

	events, err = service.ByRequestID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, recent, events)

	repo.AssertExpectations(t)
}

func TestNopRecorder(t *testing.T) {
	var recorder Recorder = NopRecorder{}
	assert.NoError(t, recorder.Record(context.Background(), newEvent(models.ProtectionActionAdded)))
}
