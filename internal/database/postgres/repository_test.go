package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadimbarashkov/link-shortener/internal/database"
	"github.com/vadimbarashkov/link-shortener/internal/models"
)

var (
	errUnknown = errors.New("unknown error")
	ts         = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
)

var linkColumns = []string{
	"id", "short_code", "original_url", "created_at", "expires_at",
	"clicks", "last_used", "is_active", "project", "owner_id",
}

func ptr[T any](v T) *T {
	return &v
}

func setupMock(t testing.TB) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return db, mock
}

func setupLinkRepository(t testing.TB) (*LinkRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock := setupMock(t)
	return NewLinkRepository(db), mock
}

func linkRow(shortCode, originalURL string, clicks int64, ownerID any) *sqlmock.Rows {
	return sqlmock.NewRows(linkColumns).
		AddRow(1, shortCode, originalURL, ts, nil, clicks, nil, true, nil, ownerID)
}

func TestLinkRepository_Create(t *testing.T) {
	newLink := models.NewLink{
		ShortCode:   "code1",
		OriginalURL: "https://example.com",
		Project:     ptr("docs"),
		OwnerID:     ptr(int64(7)),
	}

	t.Run("short code exists", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("code1", "https://example.com", nil, "docs", 7).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode})

		link, err := repo.Create(context.TODO(), newLink)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other constraint violation", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("code1", "https://example.com", nil, "docs", 7).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		link, err := repo.Create(context.TODO(), newLink)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, database.ErrShortCodeExists)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("code1", "https://example.com", nil, "docs", 7).
			WillReturnError(errUnknown)

		link, err := repo.Create(context.TODO(), newLink)

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(linkColumns).
			AddRow(1, "code1", "https://example.com", ts, nil, 0, nil, true, "docs", 7)

		mock.ExpectQuery(`INSERT INTO links`).
			WithArgs("code1", "https://example.com", nil, "docs", 7).
			WillReturnRows(rows)

		wantLink := models.Link{
			ID:          1,
			ShortCode:   "code1",
			OriginalURL: "https://example.com",
			CreatedAt:   ts,
			IsActive:    true,
			Project:     ptr("docs"),
			OwnerID:     ptr(int64(7)),
		}

		link, err := repo.Create(context.TODO(), newLink)

		assert.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, wantLink, *link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_GetByShortCode(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("code2").
			WillReturnError(sql.ErrNoRows)

		link, err := repo.GetByShortCode(context.TODO(), "code2")

		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("code1").
			WillReturnError(errUnknown)

		link, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links`).
			WithArgs("code1").
			WillReturnRows(linkRow("code1", "https://example.com", 3, nil))

		link, err := repo.GetByShortCode(context.TODO(), "code1")

		assert.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, "code1", link.ShortCode)
		assert.Equal(t, int64(3), link.Clicks)
		assert.Nil(t, link.OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_FindActiveByURL(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links (.+) IS NOT DISTINCT FROM`).
			WithArgs("https://example.com", nil, ts).
			WillReturnError(sql.ErrNoRows)

		link, err := repo.FindActiveByURL(context.TODO(), "https://example.com", nil, ts)

		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links (.+) IS NOT DISTINCT FROM`).
			WithArgs("https://example.com", 7, ts).
			WillReturnRows(linkRow("code1", "https://example.com", 0, 7))

		link, err := repo.FindActiveByURL(context.TODO(), "https://example.com", ptr(int64(7)), ts)

		assert.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, "code1", link.ShortCode)
		assert.Equal(t, ptr(int64(7)), link.OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_IncrementClicks(t *testing.T) {
	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`UPDATE links SET clicks = clicks \+ 1`).
			WithArgs("code2", ts).
			WillReturnError(sql.ErrNoRows)

		link, err := repo.IncrementClicks(context.TODO(), "code2", ts)

		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`UPDATE links SET clicks = clicks \+ 1`).
			WithArgs("code1", ts).
			WillReturnError(errUnknown)

		link, err := repo.IncrementClicks(context.TODO(), "code1", ts)

		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(linkColumns).
			AddRow(1, "code1", "https://example.com", ts, nil, 1, ts, true, nil, nil)

		mock.ExpectQuery(`UPDATE links SET clicks = clicks \+ 1`).
			WithArgs("code1", ts).
			WillReturnRows(rows)

		link, err := repo.IncrementClicks(context.TODO(), "code1", ts)

		assert.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, int64(1), link.Clicks)
		assert.Equal(t, ptr(ts), link.LastUsed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_Update(t *testing.T) {
	upd := models.LinkUpdate{OriginalURL: ptr("https://new-example.com")}

	t.Run("begin error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectBegin().WillReturnError(errUnknown)

		before, after, err := repo.Update(context.TODO(), "code1", nil, upd)

		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, before)
		assert.Nil(t, after)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM links (.+) FOR UPDATE`).
			WithArgs("code2", 7).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		before, after, err := repo.Update(context.TODO(), "code2", ptr(int64(7)), upd)

		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, before)
		assert.Nil(t, after)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM links (.+) FOR UPDATE`).
			WithArgs("code1", nil).
			WillReturnRows(linkRow("code1", "https://example.com", 0, nil))
		mock.ExpectQuery(`UPDATE links`).
			WithArgs("https://new-example.com", nil, 1).
			WillReturnError(errUnknown)
		mock.ExpectRollback()

		before, after, err := repo.Update(context.TODO(), "code1", nil, upd)

		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, before)
		assert.Nil(t, after)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM links (.+) FOR UPDATE`).
			WithArgs("code1", nil).
			WillReturnRows(linkRow("code1", "https://example.com", 2, nil))
		mock.ExpectQuery(`UPDATE links`).
			WithArgs("https://new-example.com", nil, 1).
			WillReturnRows(linkRow("code1", "https://new-example.com", 2, nil))
		mock.ExpectCommit()

		before, after, err := repo.Update(context.TODO(), "code1", nil, upd)

		assert.NoError(t, err)
		require.NotNil(t, before)
		require.NotNil(t, after)
		assert.Equal(t, "https://example.com", before.OriginalURL)
		assert.Equal(t, "https://new-example.com", after.OriginalURL)
		assert.Equal(t, int64(2), after.Clicks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_Delete(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`DELETE FROM links`).
			WithArgs("code1", nil).
			WillReturnError(errUnknown)

		link, err := repo.Delete(context.TODO(), "code1", nil)

		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("link not found", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`DELETE FROM links`).
			WithArgs("code2", 7).
			WillReturnError(sql.ErrNoRows)

		link, err := repo.Delete(context.TODO(), "code2", ptr(int64(7)))

		assert.ErrorIs(t, err, database.ErrLinkNotFound)
		assert.Nil(t, link)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`DELETE FROM links`).
			WithArgs("code1", nil).
			WillReturnRows(linkRow("code1", "https://example.com", 0, nil))

		link, err := repo.Delete(context.TODO(), "code1", nil)

		assert.NoError(t, err)
		require.NotNil(t, link)
		assert.Equal(t, "https://example.com", link.OriginalURL)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_ListExpired(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links (.+) expires_at <=`).
			WithArgs(ts, nil).
			WillReturnError(errUnknown)

		links, err := repo.ListExpired(context.TODO(), nil, ts)

		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, links)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		expired := ts.Add(-time.Hour)
		rows := sqlmock.NewRows(linkColumns).
			AddRow(1, "code1", "https://a.example", ts, expired, 0, nil, true, nil, 7).
			AddRow(2, "code2", "https://b.example", ts, expired, 4, nil, true, nil, 7)

		mock.ExpectQuery(`SELECT (.+) FROM links (.+) expires_at <=`).
			WithArgs(ts, 7).
			WillReturnRows(rows)

		links, err := repo.ListExpired(context.TODO(), ptr(int64(7)), ts)

		assert.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "code1", links[0].ShortCode)
		assert.Equal(t, "code2", links[1].ShortCode)
		assert.Equal(t, ptr(expired), links[1].ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLinkRepository_ListByProject(t *testing.T) {
	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links (.+) project = \$1`).
			WithArgs("docs", ts, nil).
			WillReturnError(errUnknown)

		links, err := repo.ListByProject(context.TODO(), "docs", nil, ts)

		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, links)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		mock.ExpectQuery(`SELECT (.+) FROM links (.+) project = \$1`).
			WithArgs("docs", ts, nil).
			WillReturnRows(sqlmock.NewRows(linkColumns))

		links, err := repo.ListByProject(context.TODO(), "docs", nil, ts)

		assert.NoError(t, err)
		assert.Empty(t, links)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupLinkRepository(t)

		rows := sqlmock.NewRows(linkColumns).
			AddRow(1, "code1", "https://a.example", ts, nil, 0, nil, true, "docs", nil)

		mock.ExpectQuery(`SELECT (.+) FROM links (.+) project = \$1`).
			WithArgs("docs", ts, nil).
			WillReturnRows(rows)

		links, err := repo.ListByProject(context.TODO(), "docs", nil, ts)

		assert.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, ptr("docs"), links[0].Project)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
