package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/vadimbarashkov/link-shortener/internal/cache"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

const anonymousOwner = "anon"

func linkKey(shortCode string) string {
	return "link:" + shortCode
}

func statsKey(shortCode string) string {
	return "link_stats:" + shortCode
}

func searchKey(originalURL string, ownerID *int64) string {
	owner := anonymousOwner
	if ownerID != nil {
		owner = strconv.FormatInt(*ownerID, 10)
	}
	return "search:" + originalURL + ":" + owner
}

// searchEntry is the cached result of a search. Found=false records a
// known absence and is distinct from the key not being cached at all.
type searchEntry struct {
	Found bool         `json:"found"`
	Link  *models.Link `json:"link,omitempty"`
}

type lookupState int

const (
	notCached lookupState = iota
	cachedAbsent
	cachedFound
)

// cacheGet decodes the entry stored under key into v. Any failure, including
// an unreachable cache, is logged and reported as a miss.
func (s *LinkService) cacheGet(ctx context.Context, key string, v any) bool {
	const op = "service.LinkService.cacheGet"

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("cache get failed",
				slog.String("op", op), slog.String("key", key), slog.Any("err", err))
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("cache entry is corrupted",
			slog.String("op", op), slog.String("key", key), slog.Any("err", err))
		s.cacheDelete(ctx, key)
		return false
	}

	return true
}

func (s *LinkService) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	const op = "service.LinkService.cacheSet"

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode cache entry",
			slog.String("op", op), slog.String("key", key), slog.Any("err", err))
		return
	}

	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn("cache set failed",
			slog.String("op", op), slog.String("key", key), slog.Any("err", err))
	}
}

func (s *LinkService) cacheDelete(ctx context.Context, keys ...string) {
	const op = "service.LinkService.cacheDelete"

	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("cache delete failed",
				slog.String("op", op), slog.String("key", key), slog.Any("err", err))
		}
	}
}

func (s *LinkService) lookupSearch(ctx context.Context, key string) (lookupState, *models.Link) {
	var e searchEntry
	if !s.cacheGet(ctx, key, &e) {
		return notCached, nil
	}
	if !e.Found || e.Link == nil {
		return cachedAbsent, nil
	}
	return cachedFound, e.Link
}

// cacheLink refreshes the code and search entries for link.
func (s *LinkService) cacheLink(ctx context.Context, link *models.Link) {
	s.cacheSet(ctx, linkKey(link.ShortCode), link, s.cfg.LinkTTL)
	s.cacheSet(ctx, searchKey(link.OriginalURL, link.OwnerID), searchEntry{Found: true, Link: link}, s.cfg.SearchTTL)
}
