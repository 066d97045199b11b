package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"libportal/internal/model"
	"libportal/internal/service"
)

type MockContentService[T model.Entity] struct {
	mock.Mock
}

var _ service.ContentService[model.Library] = (*MockContentService[model.Library])(nil)

func (m *MockContentService[T]) Schema() model.Schema {
	var zero T
	return zero.Schema()
}

func (m *MockContentService[T]) List(ctx context.Context, opts service.ListOptions) ([]T, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockContentService[T]) Get(ctx context.Context, id string) (*T, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockContentService[T]) GetBy(ctx context.Context, field, value string) (*T, error) {
	args := m.Called(ctx, field, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockContentService[T]) Create(ctx context.Context, fields map[string]any) (*T, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockContentService[T]) Update(ctx context.Context, id string, fields map[string]any) (*T, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockContentService[T]) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
