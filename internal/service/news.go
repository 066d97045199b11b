package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"libportal/internal/model"
	"libportal/internal/repository"
)

// NewsService adds engagement use cases to the news collection.
type NewsService interface {
	ContentService[model.News]

	// RecordView atomically adds one to the view count.
	RecordView(ctx context.Context, id string) (*model.News, error)

	// ToggleLike adds userID to the like list, or removes it if already present.
	ToggleLike(ctx context.Context, id, userID string) (*model.News, error)
}

type newsService struct {
	*contentService[model.News]
}

// NewNewsService constructs the news service.
func NewNewsService(repo repository.DocumentRepository, pub Publisher, logger zerolog.Logger) NewsService {
	return &newsService{contentService: newContentService[model.News](repo, pub, logger)}
}

func (s *newsService) RecordView(ctx context.Context, id string) (*model.News, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	doc, err := s.repo.Increment(ctx, model.CollectionNews, id, "views")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("record view: %w", err)
	}
	s.pub.Publish(model.CollectionNews)
	return s.decode(*doc)
}

func (s *newsService) ToggleLike(ctx context.Context, id, userID string) (*model.News, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if userID == "" {
		return nil, newValidationError(FieldError{Field: "userId", Message: "userId is required"})
	}
	doc, err := s.repo.ToggleMember(ctx, model.CollectionNews, id, "likes", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("toggle like: %w", err)
	}
	s.pub.Publish(model.CollectionNews)
	return s.decode(*doc)
}
