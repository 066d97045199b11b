package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"libportal/internal/service"
)

type MockUploadService struct {
	mock.Mock
}

var _ service.UploadService = (*MockUploadService)(nil)

func (m *MockUploadService) UploadImage(ctx context.Context, r io.Reader, originalFilename, contentType string, size int64) (*service.UploadResult, error) {
	args := m.Called(ctx, r, originalFilename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}
