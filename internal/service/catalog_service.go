package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/galleon/clash-of-courses/internal/models"
	appErrors "github.com/galleon/clash-of-courses/pkg/errors"
)

type catalogStore interface {
	Search(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type catalogSectionStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type catalogTermStore interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
}

// CatalogCache abstracts the cache layer used by catalog reads.
type CatalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type catalogPage struct {
	Courses []models.Course `json:"courses"`
	Total   int             `json:"total"`
}

// CatalogService serves catalog search and section lookups. Search pages
// are cached since the catalog is immutable within a term; capacity
// overrides invalidate the cache.
type CatalogService struct {
	courses  catalogStore
	sections catalogSectionStore
	terms    catalogTermStore
	cache    CatalogCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(courses catalogStore, sections catalogSectionStore, terms catalogTermStore, cache CatalogCache, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CatalogService{courses: courses, sections: sections, terms: terms, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Search returns catalog courses matching the filter.
func (s *CatalogService) Search(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	key := s.cacheKey(filter)
	if s.cache != nil {
		var cached catalogPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Courses, s.pagination(filter, cached.Total), nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	courses, total, err := s.courses.Search(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search catalog")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, catalogPage{Courses: courses, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return courses, s.pagination(filter, total), nil
}

// GetCourse returns a course with its prerequisite IDs.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// GetSection returns a section with course and meeting context.
func (s *CatalogService) GetSection(ctx context.Context, id string) (*models.SectionDetail, error) {
	detail, err := s.sections.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return detail, nil
}

// GetTerm returns one academic term.
func (s *CatalogService) GetTerm(ctx context.Context, id string) (*models.Term, error) {
	term, err := s.terms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// ActiveTerm returns the term currently open for registration.
func (s *CatalogService) ActiveTerm(ctx context.Context) (*models.Term, error) {
	term, err := s.terms.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
	}
	return term, nil
}

// Invalidate drops cached catalog pages, called after seat data changes.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:search:*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func (s *CatalogService) cacheKey(filter models.CourseFilter) string {
	return fmt.Sprintf("catalog:search:%s:%d:%s:%t:%d:%d",
		filter.Search, filter.Level, filter.TermID, filter.AvailableOnly, filter.Page, filter.PageSize)
}

func (s *CatalogService) pagination(filter models.CourseFilter, total int) *models.Pagination {
	return &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
}
