//go:build integration
// +build integration

package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.CartSnapshot{},
		&models.CheckoutHandoff{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := models.MigrateTables(db); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresCartSnapshotUpsert(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewCartSnapshotRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, payload := range []string{`{"lines":[]}`, `{"lines":[{"item_id":"roti"}]}`} {
		row := &models.CartSnapshot{
			SessionID:     "pg-session",
			SchemaVersion: 1,
			Payload:       payload,
			LineCount:     i,
			MutatedAt:     now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Upsert(ctx, row); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	row, err := repo.GetBySession(ctx, "pg-session")
	if err != nil || row == nil {
		t.Fatalf("get snapshot failed: %v", err)
	}
	if row.LineCount != 1 || !strings.Contains(row.Payload, "roti") {
		t.Fatalf("latest snapshot should win, got %+v", row)
	}

	purged, err := repo.DeleteMutatedBefore(ctx, now.Add(time.Hour))
	if err != nil || purged != 1 {
		t.Fatalf("purge want 1 got %d err %v", purged, err)
	}
}

func TestPostgresCheckoutHandoffAttempts(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewCheckoutHandoffRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &models.CheckoutHandoff{
		HandoffNo:   "HO-PG",
		SessionID:   "pg-session",
		Payload:     "{}",
		TotalAmount: models.MustMoney("99.99"),
		Status:      constants.HandoffStatusPending,
	}); err != nil {
		t.Fatalf("create handoff failed: %v", err)
	}
	_ = repo.MarkFailed(ctx, "HO-PG", "timeout")
	if err := repo.MarkDelivered(ctx, "HO-PG", time.Now()); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	row, err := repo.GetByNo(ctx, "HO-PG")
	if err != nil || row == nil {
		t.Fatalf("get handoff failed: %v", err)
	}
	if row.Attempts != 2 || row.Status != constants.HandoffStatusDelivered {
		t.Fatalf("unexpected handoff %+v", row)
	}
	if row.TotalAmount.Display() != "99.99" {
		t.Fatalf("total amount want 99.99 got %s", row.TotalAmount.Display())
	}
}
