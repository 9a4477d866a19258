package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tiffin-next/internal/models"
	"github.com/tiffin-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type recordingWriter struct {
	mu        sync.Mutex
	snapshots map[string][]models.CartSnapshotPayload
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{snapshots: make(map[string][]models.CartSnapshotPayload)}
}

func (w *recordingWriter) Submit(sessionID string, payload models.CartSnapshotPayload) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots[sessionID] = append(w.snapshots[sessionID], payload)
}

func (w *recordingWriter) count(sessionID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.snapshots[sessionID])
}

func (w *recordingWriter) last(sessionID string) (models.CartSnapshotPayload, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	items := w.snapshots[sessionID]
	if len(items) == 0 {
		return models.CartSnapshotPayload{}, false
	}
	return items[len(items)-1], true
}

type memoryPersistence struct {
	mu       sync.Mutex
	data     map[string]models.CartSnapshotPayload
	saves    int
	failSave error
}

func newMemoryPersistence() *memoryPersistence {
	return &memoryPersistence{data: make(map[string]models.CartSnapshotPayload)}
}

func (p *memoryPersistence) Save(_ context.Context, sessionID string, payload models.CartSnapshotPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.failSave != nil {
		return p.failSave
	}
	p.data[sessionID] = payload
	return nil
}

func (p *memoryPersistence) Load(_ context.Context, sessionID string) models.CartSnapshotPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data[sessionID]
}

func (p *memoryPersistence) Delete(_ context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, sessionID)
	return nil
}

func (p *memoryPersistence) get(sessionID string) (models.CartSnapshotPayload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	payload, ok := p.data[sessionID]
	return payload, ok
}

func (p *memoryPersistence) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func setupServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.MigrateTables(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func newSnapshotRepo(t *testing.T) repository.CartSnapshotRepository {
	t.Helper()
	return repository.NewCartSnapshotRepository(setupServiceTestDB(t, "cart_snapshot"))
}

func plainItem(itemID string, price string) models.MenuSelection {
	return models.MenuSelection{
		ItemID:    itemID,
		OutletID:  "outlet-1",
		Name:      "Item " + itemID,
		BasePrice: models.MustMoney(price),
	}
}

func messItem(itemID string, price string) models.MenuSelection {
	selection := plainItem(itemID, price)
	selection.IsMessItem = true
	return selection
}

func customItem(itemID, base, variation, variationPrice string, addons ...models.Addon) models.MenuSelection {
	selection := plainItem(itemID, base)
	selection.SupportsVariation = true
	selection.SupportsAddons = true
	if variation != "" {
		selection.Variation = &models.Variation{Name: variation, Price: models.MustMoney(variationPrice)}
	}
	if len(addons) > 0 {
		selection.Addons = map[string]models.AddonGroup{
			"extras": {GroupID: "extras", Name: "Extras", Addons: addons},
		}
	}
	return selection
}

func addon(id, price string) models.Addon {
	return models.Addon{ID: id, Name: "Addon " + id, Price: models.MustMoney(price)}
}
