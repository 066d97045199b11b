package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"libportal/internal/model"
	"libportal/internal/repository"
)

// Registry holds one service per content collection.
type Registry struct {
	Libraries       ContentService[model.Library]
	Librarians      ContentService[model.Librarian]
	Staff           ContentService[model.Staff]
	Gallery         ContentService[model.GalleryItem]
	EResources      ContentService[model.EResource]
	News            NewsService
	Recommendations ContentService[model.BookRecommendation]
}

// NewRegistry wires every collection to the same repository and publisher.
func NewRegistry(repo repository.DocumentRepository, pub Publisher, logger zerolog.Logger) *Registry {
	return &Registry{
		Libraries:       NewContentService[model.Library](repo, pub, logger),
		Librarians:      NewContentService[model.Librarian](repo, pub, logger),
		Staff:           NewContentService[model.Staff](repo, pub, logger),
		Gallery:         NewContentService[model.GalleryItem](repo, pub, logger),
		EResources:      NewContentService[model.EResource](repo, pub, logger),
		News:            NewNewsService(repo, pub, logger),
		Recommendations: NewContentService[model.BookRecommendation](repo, pub, logger),
	}
}

// CreateFunc creates a record from untyped fields and returns the stored entity.
type CreateFunc func(ctx context.Context, fields map[string]any) (any, error)

func creator[T model.Entity](s ContentService[T]) CreateFunc {
	return func(ctx context.Context, fields map[string]any) (any, error) {
		v, err := s.Create(ctx, fields)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (r *Registry) creators() map[string]CreateFunc {
	return map[string]CreateFunc{
		model.CollectionLibraries:       creator(r.Libraries),
		model.CollectionLibrarians:      creator(r.Librarians),
		model.CollectionStaff:           creator(r.Staff),
		model.CollectionGallery:         creator(r.Gallery),
		model.CollectionEResources:      creator(r.EResources),
		model.CollectionNews:            creator[model.News](r.News),
		model.CollectionRecommendations: creator(r.Recommendations),
	}
}

// Creator returns the create use case of a collection by name.
func (r *Registry) Creator(collection string) (CreateFunc, bool) {
	f, ok := r.creators()[collection]
	return f, ok
}

// Collections lists the collection names in lexical order.
func (r *Registry) Collections() []string {
	names := make([]string, 0, 7)
	for name := range r.creators() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
