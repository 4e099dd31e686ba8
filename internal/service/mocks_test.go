package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

type MockLinkRepository struct {
	mock.Mock
}

func (r *MockLinkRepository) Create(ctx context.Context, link models.NewLink) (*models.Link, error) {
	args := r.Called(ctx, link)
	l, _ := args.Get(0).(*models.Link)
	return l, args.Error(1)
}

func (r *MockLinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	args := r.Called(ctx, shortCode)
	l, _ := args.Get(0).(*models.Link)
	return l, args.Error(1)
}

func (r *MockLinkRepository) FindActiveByURL(ctx context.Context, originalURL string, ownerID *int64, now time.Time) (*models.Link, error) {
	args := r.Called(ctx, originalURL, ownerID, now)
	l, _ := args.Get(0).(*models.Link)
	return l, args.Error(1)
}

func (r *MockLinkRepository) IncrementClicks(ctx context.Context, shortCode string, now time.Time) (*models.Link, error) {
	args := r.Called(ctx, shortCode, now)
	l, _ := args.Get(0).(*models.Link)
	return l, args.Error(1)
}

func (r *MockLinkRepository) Update(ctx context.Context, shortCode string, ownerID *int64, upd models.LinkUpdate) (*models.Link, *models.Link, error) {
	args := r.Called(ctx, shortCode, ownerID, upd)
	before, _ := args.Get(0).(*models.Link)
	after, _ := args.Get(1).(*models.Link)
	return before, after, args.Error(2)
}

func (r *MockLinkRepository) Delete(ctx context.Context, shortCode string, ownerID *int64) (*models.Link, error) {
	args := r.Called(ctx, shortCode, ownerID)
	l, _ := args.Get(0).(*models.Link)
	return l, args.Error(1)
}

func (r *MockLinkRepository) ListExpired(ctx context.Context, ownerID *int64, now time.Time) ([]*models.Link, error) {
	args := r.Called(ctx, ownerID, now)
	links, _ := args.Get(0).([]*models.Link)
	return links, args.Error(1)
}

func (r *MockLinkRepository) ListByProject(ctx context.Context, project string, ownerID *int64, now time.Time) ([]*models.Link, error) {
	args := r.Called(ctx, project, ownerID, now)
	links, _ := args.Get(0).([]*models.Link)
	return links, args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (r *MockUserRepository) Create(ctx context.Context, username, hashedPassword string) (*models.User, error) {
	args := r.Called(ctx, username, hashedPassword)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (r *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := r.Called(ctx, username)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

type MockCodeGenerator struct {
	mock.Mock
}

func (g *MockCodeGenerator) Generate() (string, error) {
	args := g.Called()
	return args.String(0), args.Error(1)
}

// brokenCache fails every operation, as an unreachable cache server would.
type brokenCache struct{}

var errCacheDown = errors.New("cache is down")

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }

func (brokenCache) Delete(context.Context, string) error { return errCacheDown }

// fakeLinkRepository is an in-memory store with the same conditional
// semantics as the postgres repository.
type fakeLinkRepository struct {
	mu     sync.Mutex
	nextID int64
	links  map[string]*models.Link
	calls  map[string]int
}

func newFakeLinkRepository() *fakeLinkRepository {
	return &fakeLinkRepository{
		links: make(map[string]*models.Link),
		calls: make(map[string]int),
	}
}

func (r *fakeLinkRepository) callCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

func clone(l *models.Link) *models.Link {
	c := *l
	return &c
}

func (r *fakeLinkRepository) Create(_ context.Context, link models.NewLink) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["Create"]++

	if _, ok := r.links[link.ShortCode]; ok {
		return nil, database.ErrShortCodeExists
	}

	r.nextID++
	l := &models.Link{
		ID:          r.nextID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   link.ExpiresAt,
		IsActive:    true,
		Project:     link.Project,
		OwnerID:     link.OwnerID,
	}
	r.links[l.ShortCode] = l

	return clone(l), nil
}

func (r *fakeLinkRepository) GetByShortCode(_ context.Context, shortCode string) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["GetByShortCode"]++

	l, ok := r.links[shortCode]
	if !ok {
		return nil, database.ErrLinkNotFound
	}
	return clone(l), nil
}

func (r *fakeLinkRepository) FindActiveByURL(_ context.Context, originalURL string, ownerID *int64, now time.Time) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["FindActiveByURL"]++

	var found *models.Link
	for _, l := range r.links {
		if l.OriginalURL != originalURL || !l.OwnedBy(ownerID) || !l.IsResolvable(now) {
			continue
		}
		if found == nil || l.ID > found.ID {
			found = l
		}
	}
	if found == nil {
		return nil, database.ErrLinkNotFound
	}
	return clone(found), nil
}

func (r *fakeLinkRepository) IncrementClicks(_ context.Context, shortCode string, now time.Time) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["IncrementClicks"]++

	l, ok := r.links[shortCode]
	if !ok || !l.IsResolvable(now) {
		return nil, database.ErrLinkNotFound
	}

	l.Clicks++
	used := now
	l.LastUsed = &used

	return clone(l), nil
}

func (r *fakeLinkRepository) Update(_ context.Context, shortCode string, ownerID *int64, upd models.LinkUpdate) (*models.Link, *models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["Update"]++

	l, ok := r.links[shortCode]
	if !ok || !l.OwnedBy(ownerID) {
		return nil, nil, database.ErrLinkNotFound
	}

	before := clone(l)
	if upd.OriginalURL != nil {
		l.OriginalURL = *upd.OriginalURL
	}
	if upd.ExpiresAt != nil {
		exp := *upd.ExpiresAt
		l.ExpiresAt = &exp
	}

	return before, clone(l), nil
}

func (r *fakeLinkRepository) Delete(_ context.Context, shortCode string, ownerID *int64) (*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["Delete"]++

	l, ok := r.links[shortCode]
	if !ok || !l.OwnedBy(ownerID) {
		return nil, database.ErrLinkNotFound
	}
	delete(r.links, shortCode)

	return clone(l), nil
}

func (r *fakeLinkRepository) list(keep func(*models.Link) bool) []*models.Link {
	var out []*models.Link
	for _, l := range r.links {
		if keep(l) {
			out = append(out, clone(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeLinkRepository) ListExpired(_ context.Context, ownerID *int64, now time.Time) ([]*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["ListExpired"]++

	return r.list(func(l *models.Link) bool {
		return l.IsExpired(now) && (ownerID == nil || l.OwnedBy(ownerID))
	}), nil
}

func (r *fakeLinkRepository) ListByProject(_ context.Context, project string, ownerID *int64, now time.Time) ([]*models.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["ListByProject"]++

	return r.list(func(l *models.Link) bool {
		return l.Project != nil && *l.Project == project && l.IsResolvable(now) &&
			(ownerID == nil || l.OwnedBy(ownerID))
	}), nil
}

// sequenceGenerator yields the given codes in order and then repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}
