package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"festival-companion/backend/internal/audit/domain"
)

func TestPostgresRepository_CreateNullsEmptyFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	now := time.Now().UTC()
	a := &domain.AuditLog{ID: "id-1", Action: "codes_swept", Resource: "transfer_code", IP: "unknown", CreatedAt: now}

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("id-1", sql.NullString{}, sql.NullString{}, "codes_swept", "transfer_code", "unknown", sql.NullString{}, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPostgresRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMemoryRepository_ListByDevice(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	t0 := time.Now()
	_ = r.Create(ctx, &domain.AuditLog{ID: "1", DeviceHandle: "dev-A", Action: "code_created", CreatedAt: t0})
	_ = r.Create(ctx, &domain.AuditLog{ID: "2", DeviceHandle: "dev-B", Action: "code_created", CreatedAt: t0})
	_ = r.Create(ctx, &domain.AuditLog{ID: "3", DeviceHandle: "dev-A", Action: "transfer_completed", CreatedAt: t0.Add(time.Second)})

	got, _ := r.ListByDevice(ctx, "dev-A", 10, 0)
	if len(got) != 2 || got[0].ID != "3" {
		t.Fatalf("ListByDevice = %+v", got)
	}
	got, _ = r.ListByDevice(ctx, "dev-A", 1, 1)
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("paged = %+v", got)
	}
	if acts := r.Actions(); len(acts) != 3 {
		t.Errorf("actions = %v", acts)
	}
}

var (
	_ Repository = (*PostgresRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
