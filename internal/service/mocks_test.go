package service

import (
	"context"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockSessionCreator mocks the SessionCreator interface
type MockSessionCreator struct {
	mock.Mock
}

func (m *MockSessionCreator) CreateChatSession(ctx context.Context, workspaceID int64) (*domain.ChatSession, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

// MockHistoryFetcher mocks the HistoryFetcher interface
type MockHistoryFetcher struct {
	mock.Mock
}

func (m *MockHistoryFetcher) GetChatMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

// MockHistoryCache mocks the HistoryCache interface
type MockHistoryCache struct {
	mock.Mock
}

func (m *MockHistoryCache) Get(ctx context.Context, sessionID string) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockHistoryCache) Set(ctx context.Context, sessionID string, messages []domain.Message) error {
	args := m.Called(ctx, sessionID, messages)
	return args.Error(0)
}

// MockJournal mocks the domain.MessageJournal interface
type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockJournal) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

// MockConnection mocks the Connection interface
type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Connect(sessionID string) {
	m.Called(sessionID)
}

func (m *MockConnection) Unbind() {
	m.Called()
}

func (m *MockConnection) Send(content string) error {
	args := m.Called(content)
	return args.Error(0)
}

func (m *MockConnection) Status() domain.ConnectionStatus {
	args := m.Called()
	return args.Get(0).(domain.ConnectionStatus)
}
