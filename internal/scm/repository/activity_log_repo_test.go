package repository

import (
	"context"
	"testing"

	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/bitfantasy/nimo-scm/internal/scm/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogActivityWritesRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	core, logs := observer.New(zap.WarnLevel)
	repo := NewActivityLogRepository(db, zap.New(core))

	repo.LogActivity(context.Background(), "order", "order-001", "SO-1",
		"status_change", "draft", "submitted", "", "user-1")

	var stored entity.ActivityLog
	if err := db.First(&stored, "entity_id = ?", "order-001").Error; err != nil {
		t.Fatalf("activity log row should be persisted: %v", err)
	}
	if stored.Action != "status_change" || stored.ToStatus != "submitted" {
		t.Fatalf("unexpected log row: %+v", stored)
	}
	if logs.Len() != 0 {
		t.Fatalf("successful write must not warn, got %d entries", logs.Len())
	}
}

// TestLogActivityWarnsOnFailure drops the table so the insert fails and
// checks the failure surfaces as a warning instead of being swallowed.
func TestLogActivityWarnsOnFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	core, logs := observer.New(zap.WarnLevel)
	repo := NewActivityLogRepository(db, zap.New(core))

	if err := db.Migrator().DropTable(&entity.ActivityLog{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	repo.LogActivity(context.Background(), "order", "order-001", "SO-1",
		"create", "", "draft", "", "user-1")

	if logs.Len() != 1 {
		t.Fatalf("failed write should warn exactly once, got %d entries", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "Activity log write failed" {
		t.Fatalf("unexpected warning message %q", entry.Message)
	}
}
