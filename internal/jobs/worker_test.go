package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockChunkMaintenanceRepository is a mock implementation of ChunkMaintenanceRepository
type MockChunkMaintenanceRepository struct {
	mock.Mock
}

func (m *MockChunkMaintenanceRepository) EnsureSimilarityIndex(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockChunkMaintenanceRepository) CountChunks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestIndexWorker_ProcessJobs(t *testing.T) {
	mockRepo := new(MockChunkMaintenanceRepository)
	mockRepo.On("EnsureSimilarityIndex", mock.Anything).Return(nil)
	mockRepo.On("CountChunks", mock.Anything).Return(int64(42), nil)

	worker := NewIndexWorker(mockRepo)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestIndexWorker_ProcessJobs_IndexError(t *testing.T) {
	mockRepo := new(MockChunkMaintenanceRepository)
	mockRepo.On("EnsureSimilarityIndex", mock.Anything).Return(errors.New("connection lost"))

	worker := NewIndexWorker(mockRepo)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "CountChunks", mock.Anything)
}

func TestIndexWorker_ProcessJobs_RepeatedRuns(t *testing.T) {
	mockRepo := new(MockChunkMaintenanceRepository)
	mockRepo.On("EnsureSimilarityIndex", mock.Anything).Return(nil)
	mockRepo.On("CountChunks", mock.Anything).Return(int64(7), nil)

	worker := NewIndexWorker(mockRepo)
	assert.NoError(t, worker.ProcessJobs(context.Background()))
	assert.NoError(t, worker.ProcessJobs(context.Background()))

	mockRepo.AssertNumberOfCalls(t, "EnsureSimilarityIndex", 2)
}
