package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"admin-core/internal/schemas"
)

// MockCacheManager is a testify mock of managers.CacheMgr.
type MockCacheManager struct {
	mock.Mock
}

func (m *MockCacheManager) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCacheManager) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheManager) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheManager) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheManager) GetProfile(ctx context.Context, userId string) (*schemas.UserDTO, error) {
	args := m.Called(ctx, userId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.UserDTO), args.Error(1)
}

func (m *MockCacheManager) SetProfile(ctx context.Context, userId string, user *schemas.UserDTO) error {
	args := m.Called(ctx, userId, user)
	return args.Error(0)
}

func (m *MockCacheManager) InvalidateProfile(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}
