package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

// MockStore mocks the transaction boundary only; calling any other Store
// method panics on the nil embedded interface.
type MockStore struct {
	repo.Store
	mock.Mock
}

func (m *MockStore) InTx(ctx context.Context, fn func(q repo.Queries) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func transientErr() error {
	return &repo.StorageError{Op: "commit", Err: repo.ErrorTransient}
}

func TestTxRunner_Run(t *testing.T) {
	permanent := errors.New("disk full")

	tests := []struct {
		name      string
		setupMock func(*MockStore)
		wantErr   error
		wantCalls int
	}{
		{
			name: "success first try",
			setupMock: func(m *MockStore) {
				m.On("InTx", mock.Anything).Return(nil).Once()
			},
			wantCalls: 1,
		},
		{
			name: "transient then success",
			setupMock: func(m *MockStore) {
				m.On("InTx", mock.Anything).Return(transientErr()).Twice()
				m.On("InTx", mock.Anything).Return(nil).Once()
			},
			wantCalls: 3,
		},
		{
			name: "permanent error is not retried",
			setupMock: func(m *MockStore) {
				m.On("InTx", mock.Anything).Return(permanent).Once()
			},
			wantErr:   permanent,
			wantCalls: 1,
		},
		{
			name: "not found is not retried",
			setupMock: func(m *MockStore) {
				m.On("InTx", mock.Anything).Return(repo.ErrorNotFound).Once()
			},
			wantErr:   repo.ErrorNotFound,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			tt.setupMock(store)
			runner := NewTxRunner(store, time.Second, zap.NewNop())

			err := runner.Run(context.Background(), "test", func(q repo.Queries) error { return nil })

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			store.AssertNumberOfCalls(t, "InTx", tt.wantCalls)
		})
	}
}

func TestTxRunner_GivesUpOnPersistentTransient(t *testing.T) {
	store := new(MockStore)
	store.On("InTx", mock.Anything).Return(transientErr())
	runner := NewTxRunner(store, 100*time.Millisecond, zap.NewNop())

	err := runner.Run(context.Background(), "test", func(q repo.Queries) error { return nil })

	assert.True(t, repo.IsTransient(err))
	assert.Greater(t, len(store.Calls), 1)
}

func TestTxRunner_StopsOnCanceledContext(t *testing.T) {
	store := new(MockStore)
	store.On("InTx", mock.Anything).Return(transientErr())
	runner := NewTxRunner(store, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runner.Run(ctx, "test", func(q repo.Queries) error { return nil })

	assert.Error(t, err)
	assert.LessOrEqual(t, len(store.Calls), 1)
}
