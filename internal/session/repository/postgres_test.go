package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"erp-suite/backend/internal/security"
	"erp-suite/backend/internal/session/domain"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	rec := &domain.RefreshRecord{
		ID:        "rec-1",
		UserID:    "user-1",
		TokenHash: security.HashRefreshToken("raw"),
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs(rec.ID, rec.UserID, rec.TokenHash, rec.IssuedAt, rec.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindMatchingActive(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	raw := "the-presented-token"
	rows := sqlmock.NewRows([]string{"id", "user_id", "token_hash", "issued_at", "expires_at", "revoked_at"}).
		AddRow("rec-a", "user-1", security.HashRefreshToken("some-other-token"), now, now.Add(time.Hour), nil).
		AddRow("rec-b", "user-1", security.HashRefreshToken(raw), now, now.Add(time.Hour), nil)
	mock.ExpectQuery("select id, user_id, token_hash, issued_at, expires_at, revoked_at").
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	rec, err := repo.FindMatchingActive(context.Background(), "user-1", raw)
	if err != nil {
		t.Fatalf("FindMatchingActive: %v", err)
	}
	if rec == nil || rec.ID != "rec-b" {
		t.Fatalf("matched record = %+v, want rec-b", rec)
	}
}

func TestFindMatchingActive_NoMatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("select id, user_id, token_hash, issued_at, expires_at, revoked_at").
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "issued_at", "expires_at", "revoked_at"}))

	rec, err := repo.FindMatchingActive(context.Background(), "user-1", "unknown")
	if err != nil {
		t.Fatalf("FindMatchingActive: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for no match, got %+v", rec)
	}
}

func TestRevoke_Conditional(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("rec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Revoke(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !ok {
		t.Fatal("expected revocation to be performed")
	}

	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("rec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.Revoke(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("Revoke (second): %v", err)
	}
	if ok {
		t.Fatal("second revoke must report not performed")
	}
}

func TestRotate_Wins(t *testing.T) {
	repo, mock := newMockRepo(t)
	succ := &domain.RefreshRecord{
		ID: "rec-2", UserID: "user-1", TokenHash: "h", IssuedAt: time.Now().UTC(), ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("rec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into refresh_tokens").
		WithArgs(succ.ID, succ.UserID, succ.TokenHash, succ.IssuedAt, succ.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Rotate(context.Background(), "rec-1", succ); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotate_LosesToConcurrentRevoke(t *testing.T) {
	repo, mock := newMockRepo(t)
	succ := &domain.RefreshRecord{ID: "rec-2", UserID: "user-1", TokenHash: "h", IssuedAt: time.Now().UTC(), ExpiresAt: time.Now().UTC().Add(time.Hour)}
	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens set revoked_at").
		WithArgs("rec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Rotate(context.Background(), "rec-1", succ)
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("Rotate = %v, want ErrNotActive", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteExpiredBefore(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	mock.ExpectExec("delete from refresh_tokens where expires_at").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpiredBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteExpiredBefore: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted = %d, want 3", n)
	}
}
