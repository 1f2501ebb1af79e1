package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"erp-suite/backend/internal/notification/domain"
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

func TestCreateAll_Transactional(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	ns := []*domain.Notification{
		{ID: "n1", UserID: "u1", TaskID: "t1", Message: "m1", CreatedAt: now},
		{ID: "n2", UserID: "u2", TaskID: "t1", Message: "m1", CreatedAt: now},
	}
	mock.ExpectBegin()
	for _, n := range ns {
		mock.ExpectExec("insert into notifications").
			WithArgs(n.ID, n.UserID, n.TaskID, n.Message, n.CreatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	if err := repo.CreateAll(context.Background(), ns); err != nil {
		t.Fatalf("CreateAll: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateAll_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	ns := []*domain.Notification{
		{ID: "n1", UserID: "u1", TaskID: "t1", Message: "m1", CreatedAt: now},
		{ID: "n2", UserID: "u2", TaskID: "t1", Message: "m1", CreatedAt: now},
	}
	mock.ExpectBegin()
	mock.ExpectExec("insert into notifications").
		WithArgs("n1", "u1", "t1", "m1", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into notifications").
		WithArgs("n2", "u2", "t1", "m1", now).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	if err := repo.CreateAll(context.Background(), ns); err == nil {
		t.Fatal("expected error from failed insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateAll_EmptyIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)
	if err := repo.CreateAll(context.Background(), nil); err != nil {
		t.Fatalf("CreateAll(nil): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database activity: %v", err)
	}
}

func TestMarkRead_OnlyOwnerAndUnread(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("update notifications set read_at").
		WithArgs("n1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkRead(context.Background(), "n1", "u1")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !ok {
		t.Fatal("expected MarkRead to report success")
	}

	// Someone else's notification, or one already read, touches zero rows.
	mock.ExpectExec("update notifications set read_at").
		WithArgs("n1", "u2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.MarkRead(context.Background(), "n1", "u2")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if ok {
		t.Fatal("expected MarkRead to report no-op for non-owner")
	}
}

func TestListByUser_ScansReadAt(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	read := now.Add(-time.Minute)
	rows := sqlmock.NewRows([]string{"id", "user_id", "task_id", "message", "read_at", "created_at"}).
		AddRow("n2", "u1", "t1", "newer", nil, now).
		AddRow("n1", "u1", "t1", "older", read, now.Add(-time.Hour))
	mock.ExpectQuery("select id, user_id, task_id, message, read_at, created_at").
		WithArgs("u1").
		WillReturnRows(rows)

	out, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d notifications, want 2", len(out))
	}
	if out[0].ReadAt != nil {
		t.Error("unread notification must have nil ReadAt")
	}
	if out[1].ReadAt == nil || !out[1].ReadAt.Equal(read) {
		t.Errorf("read notification ReadAt = %v, want %v", out[1].ReadAt, read)
	}
}

func TestUnreadCount(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("select count").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.UnreadCount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("UnreadCount = %d, want 3", n)
	}
}

func TestDeleteByTask(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("delete from notifications").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	if err := repo.DeleteByTask(context.Background(), "t1"); err != nil {
		t.Fatalf("DeleteByTask: %v", err)
	}
}
