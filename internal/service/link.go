package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/cache"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

const (
	DefaultLinkTTL    = time.Hour
	DefaultSearchTTL  = 10 * time.Minute
	DefaultStatsTTL   = 5 * time.Minute
	DefaultMaxRetries = 10
)

// LinkRepository defines the record store operations the link service relies on.
// Implementations report missing rows with database.ErrLinkNotFound and
// short code collisions with database.ErrShortCodeExists.
type LinkRepository interface {
	// Create inserts a new link with zero clicks.
	Create(ctx context.Context, link models.NewLink) (*models.Link, error)

	// GetByShortCode retrieves a link by its short code regardless of its state.
	GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error)

	// FindActiveByURL retrieves an active link for the URL and owner that is unexpired at now.
	FindActiveByURL(ctx context.Context, originalURL string, ownerID *int64, now time.Time) (*models.Link, error)

	// IncrementClicks atomically increments clicks and sets last_used of a link
	// that is active and unexpired at now.
	IncrementClicks(ctx context.Context, shortCode string, now time.Time) (*models.Link, error)

	// Update applies upd to the link owned by ownerID, returning it before and after the change.
	Update(ctx context.Context, shortCode string, ownerID *int64, upd models.LinkUpdate) (*models.Link, *models.Link, error)

	// Delete removes the link owned by ownerID and returns the removed row.
	Delete(ctx context.Context, shortCode string, ownerID *int64) (*models.Link, error)

	// ListExpired retrieves links expired at now, optionally filtered by owner.
	ListExpired(ctx context.Context, ownerID *int64, now time.Time) ([]*models.Link, error)

	// ListByProject retrieves active, unexpired links of a project, optionally filtered by owner.
	ListByProject(ctx context.Context, project string, ownerID *int64, now time.Time) ([]*models.Link, error)
}

// CodeGenerator produces short code candidates.
type CodeGenerator interface {
	Generate() (string, error)
}

// LinkServiceConfig holds cache lifetimes and the short code retry bound.
type LinkServiceConfig struct {
	LinkTTL    time.Duration
	SearchTTL  time.Duration
	StatsTTL   time.Duration
	MaxRetries int
}

func (c LinkServiceConfig) withDefaults() LinkServiceConfig {
	if c.LinkTTL <= 0 {
		c.LinkTTL = DefaultLinkTTL
	}
	if c.SearchTTL <= 0 {
		c.SearchTTL = DefaultSearchTTL
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = DefaultStatsTTL
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// LinkService resolves short codes through a read-through cache backed by the record store.
//
// The store is authoritative. Cache failures are logged and absorbed, so a
// request only fails when the store does. Store errors are returned wrapped.
type LinkService struct {
	repo   LinkRepository
	cache  cache.Cache
	gen    CodeGenerator
	logger *slog.Logger
	cfg    LinkServiceConfig
	now    func() time.Time
}

// NewLinkService creates a LinkService. A nil cache disables caching and a
// nil logger discards log output.
func NewLinkService(repo LinkRepository, c cache.Cache, gen CodeGenerator, logger *slog.Logger, cfg LinkServiceConfig) *LinkService {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &LinkService{
		repo:   repo,
		cache:  c,
		gen:    gen,
		logger: logger,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

func ownerIDOf(owner *models.User) *int64 {
	if owner == nil {
		return nil
	}
	id := owner.ID
	return &id
}

// Create shortens params.OriginalURL on behalf of owner (nil for anonymous).
//
// When an active, unexpired link for the same URL and owner already exists it
// is returned unchanged. A custom code that is already in use yields
// ErrShortCodeTaken. Generated codes are retried up to MaxRetries times.
func (s *LinkService) Create(ctx context.Context, params models.LinkCreate, owner *models.User) (*models.Link, error) {
	const op = "service.LinkService.Create"

	ownerID := ownerIDOf(owner)

	existing, err := s.repo.FindActiveByURL(ctx, params.OriginalURL, ownerID, s.now())
	if err == nil {
		s.cacheLink(ctx, existing)
		return existing, nil
	}
	if !errors.Is(err, database.ErrLinkNotFound) {
		return nil, fmt.Errorf("%s: failed to look up existing link: %w", op, err)
	}

	newLink := models.NewLink{
		OriginalURL: params.OriginalURL,
		ExpiresAt:   params.ExpiresAt,
		Project:     params.Project,
		OwnerID:     ownerID,
	}

	var link *models.Link

	if params.CustomCode != "" {
		newLink.ShortCode = params.CustomCode

		link, err = s.repo.Create(ctx, newLink)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				return nil, fmt.Errorf("%s: %w", op, ErrShortCodeTaken)
			}

			return nil, fmt.Errorf("%s: failed to create link: %w", op, err)
		}
	} else {
		link, err = s.createWithGeneratedCode(ctx, newLink)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.cacheLink(ctx, link)

	return link, nil
}

func (s *LinkService) createWithGeneratedCode(ctx context.Context, newLink models.NewLink) (*models.Link, error) {
	for i := 0; i < s.cfg.MaxRetries; i++ {
		code, err := s.gen.Generate()
		if err != nil {
			return nil, err
		}

		newLink.ShortCode = code

		link, err := s.repo.Create(ctx, newLink)
		if err != nil {
			if errors.Is(err, database.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("failed to create link: %w", err)
		}

		return link, nil
	}

	return nil, ErrMaxRetriesExceeded
}

// Resolve counts a visit to shortCode and returns the updated link.
//
// A cached entry that is inactive or expired is evicted and reported as
// ErrLinkNotFound without consulting the store. Otherwise the click is
// counted by the store atomically and the cache entry is refreshed with the
// resulting row.
func (s *LinkService) Resolve(ctx context.Context, shortCode string) (*models.Link, error) {
	const op = "service.LinkService.Resolve"

	now := s.now()
	key := linkKey(shortCode)

	var cached models.Link
	hit := s.cacheGet(ctx, key, &cached)
	if hit && !cached.IsResolvable(now) {
		s.cacheDelete(ctx, key)
		return nil, fmt.Errorf("%s: %w", op, ErrLinkNotFound)
	}

	link, err := s.repo.IncrementClicks(ctx, shortCode, now)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			if hit {
				s.cacheDelete(ctx, key)
			}
			return nil, fmt.Errorf("%s: %w", op, ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	s.cacheSet(ctx, key, link, s.cfg.LinkTTL)

	return link, nil
}

// Update changes the URL and/or expiry of a link owned by owner.
// Missing links and links of other owners both yield ErrNotFoundOrUnauthorized.
func (s *LinkService) Update(ctx context.Context, shortCode string, owner *models.User, upd models.LinkUpdate) (*models.Link, error) {
	const op = "service.LinkService.Update"

	before, after, err := s.repo.Update(ctx, shortCode, ownerIDOf(owner), upd)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFoundOrUnauthorized)
		}

		return nil, fmt.Errorf("%s: failed to update link: %w", op, err)
	}

	s.cacheDelete(ctx, statsKey(shortCode))
	if before.OriginalURL != after.OriginalURL {
		s.cacheDelete(ctx, searchKey(before.OriginalURL, before.OwnerID))
	}

	if after.IsResolvable(s.now()) {
		s.cacheLink(ctx, after)
	} else {
		s.cacheSet(ctx, linkKey(shortCode), after, s.cfg.LinkTTL)
		s.cacheDelete(ctx, searchKey(after.OriginalURL, after.OwnerID))
	}

	return after, nil
}

// Delete removes a link owned by owner and invalidates every cache entry derived from it.
// Missing links and links of other owners both yield ErrNotFoundOrUnauthorized.
func (s *LinkService) Delete(ctx context.Context, shortCode string, owner *models.User) error {
	const op = "service.LinkService.Delete"

	// The row goes first: a failure below leaves stale entries that expire,
	// never a live row whose cache keys are unknown.
	removed, err := s.repo.Delete(ctx, shortCode, ownerIDOf(owner))
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFoundOrUnauthorized)
		}

		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	s.cacheDelete(ctx,
		linkKey(shortCode),
		statsKey(shortCode),
		searchKey(removed.OriginalURL, removed.OwnerID),
	)

	return nil
}

// Stats returns the statistics of a link. Cached statistics may lag behind
// clicks counted after they were cached, for at most StatsTTL.
func (s *LinkService) Stats(ctx context.Context, shortCode string) (*models.LinkStats, error) {
	const op = "service.LinkService.Stats"

	key := statsKey(shortCode)

	var cached models.LinkStats
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	link, err := s.repo.GetByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	stats := link.Stats()
	s.cacheSet(ctx, key, stats, s.cfg.StatsTTL)

	return &stats, nil
}

// SearchByURL returns the active, unexpired link owner created for originalURL.
// Absence is cached as well, for SearchTTL.
func (s *LinkService) SearchByURL(ctx context.Context, originalURL string, owner *models.User) (*models.Link, error) {
	const op = "service.LinkService.SearchByURL"

	now := s.now()
	ownerID := ownerIDOf(owner)
	key := searchKey(originalURL, ownerID)

	switch state, link := s.lookupSearch(ctx, key); state {
	case cachedAbsent:
		return nil, fmt.Errorf("%s: %w", op, ErrLinkNotFound)
	case cachedFound:
		if !link.OwnedBy(ownerID) || link.OriginalURL != originalURL {
			return nil, fmt.Errorf("%s: %w", op, ErrLinkNotFound)
		}
		if link.IsResolvable(now) {
			return link, nil
		}
		s.cacheDelete(ctx, key)
	}

	link, err := s.repo.FindActiveByURL(ctx, originalURL, ownerID, now)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			s.cacheSet(ctx, key, searchEntry{Found: false}, s.cfg.SearchTTL)
			return nil, fmt.Errorf("%s: %w", op, ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to search link: %w", op, err)
	}

	s.cacheSet(ctx, key, searchEntry{Found: true, Link: link}, s.cfg.SearchTTL)

	return link, nil
}

// ExpiredLinks lists links whose expiry has passed. A nil owner lists them for every owner.
func (s *LinkService) ExpiredLinks(ctx context.Context, owner *models.User) ([]*models.Link, error) {
	const op = "service.LinkService.ExpiredLinks"

	links, err := s.repo.ListExpired(ctx, ownerIDOf(owner), s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list expired links: %w", op, err)
	}

	return links, nil
}

// LinksByProject lists active, unexpired links of project. A nil owner lists them for every owner.
func (s *LinkService) LinksByProject(ctx context.Context, project string, owner *models.User) ([]*models.Link, error) {
	const op = "service.LinkService.LinksByProject"

	links, err := s.repo.ListByProject(ctx, project, ownerIDOf(owner), s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list project links: %w", op, err)
	}

	return links, nil
}
