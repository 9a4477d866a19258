package service

import (
	"testing"
	"time"

	"github.com/tiffin-next/internal/models"
)

func pricedLine(selection models.MenuSelection, quantity int) models.CartLine {
	line := selection.ToLine()
	line.Quantity = quantity
	line.UnitPrice = UnitPrice(line)
	return line
}

func TestHydrateCleanSnapshotDoesNotRewrite(t *testing.T) {
	store, writer := newTestStore(t)
	mutatedAt := time.Date(2026, 9, 30, 8, 0, 0, 0, time.UTC)
	report := store.Hydrate(models.CartSnapshotPayload{
		SchemaVersion: 1,
		MutatedAt:     mutatedAt,
		Lines: []models.CartLine{
			pricedLine(plainItem("roti", "10"), 3),
			pricedLine(messItem("mess-a", "3000"), 1),
		},
	})
	if report.Changed() || report.Kept != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if writer.count("sess-1") != 0 {
		t.Fatalf("clean snapshot should not be written back")
	}
	if !store.MutatedAt().Equal(mutatedAt) {
		t.Fatalf("mutation time should come from snapshot")
	}
	if store.ItemCount() != 4 {
		t.Fatalf("item count want 4 got %d", store.ItemCount())
	}
}

func TestHydrateDropsInvalidLines(t *testing.T) {
	store, writer := newTestStore(t)
	zeroQty := pricedLine(plainItem("zero", "10"), 0)
	noItem := pricedLine(plainItem("", "10"), 1)
	negative := pricedLine(plainItem("neg", "-5"), 1)
	report := store.Hydrate(models.CartSnapshotPayload{
		SchemaVersion: 1,
		Lines:         []models.CartLine{zeroQty, noItem, negative, pricedLine(plainItem("ok", "10"), 1)},
	})
	if report.Dropped != 3 || report.Kept != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if store.Lines()[0].ItemID != "ok" {
		t.Fatalf("valid line should survive")
	}
	if writer.count("sess-1") != 1 {
		t.Fatalf("repaired snapshot should be written back once, got %d", writer.count("sess-1"))
	}
}

func TestHydrateClampsMessQuantityAndDropsExtraMess(t *testing.T) {
	store, _ := newTestStore(t)
	report := store.Hydrate(models.CartSnapshotPayload{
		SchemaVersion: 1,
		Lines: []models.CartLine{
			pricedLine(messItem("mess-a", "3000"), 4),
			pricedLine(plainItem("roti", "10"), 1),
			pricedLine(messItem("mess-b", "2800"), 1),
		},
	})
	if report.Kept != 2 || report.Dropped != 1 || report.Repaired != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	lines := store.Lines()
	if lines[0].ItemID != "mess-a" || lines[0].Quantity != 1 {
		t.Fatalf("first mess line should be kept with quantity 1, got %+v", lines[0])
	}
	for _, line := range lines[1:] {
		if line.IsMessItem {
			t.Fatalf("only one mess line may survive")
		}
	}
}

func TestHydrateRecomputesUnitPrice(t *testing.T) {
	store, _ := newTestStore(t)
	line := pricedLine(customItem("pizza", "200", "Large", "300", addon("cheese", "20")), 2)
	line.UnitPrice = models.MustMoney("1")
	report := store.Hydrate(models.CartSnapshotPayload{SchemaVersion: 1, Lines: []models.CartLine{line}})
	if report.Repaired != 1 {
		t.Fatalf("unit price repair expected, got %+v", report)
	}
	if got := store.Total().Display(); got != "640.00" {
		t.Fatalf("total want 640.00 got %s", got)
	}
}

func TestHydrateMergesDuplicateConfigurations(t *testing.T) {
	store, _ := newTestStore(t)
	first := pricedLine(customItem("pizza", "200", "Large", "300", addon("a", "1"), addon("b", "2")), 1)
	second := pricedLine(customItem("pizza", "200", "Large", "300", addon("b", "2"), addon("a", "1")), 2)
	report := store.Hydrate(models.CartSnapshotPayload{SchemaVersion: 1, Lines: []models.CartLine{first, second}})
	if report.Kept != 1 || report.Repaired != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if store.Lines()[0].Quantity != 3 {
		t.Fatalf("merged quantity want 3 got %d", store.Lines()[0].Quantity)
	}
}

func TestHydrateReplacesExistingLines(t *testing.T) {
	store, _ := newTestStore(t)
	_, _ = store.Add(plainItem("old", "10"))
	store.Hydrate(models.CartSnapshotPayload{SchemaVersion: 1, Lines: []models.CartLine{pricedLine(plainItem("new", "5"), 1)}})
	lines := store.Lines()
	if len(lines) != 1 || lines[0].ItemID != "new" {
		t.Fatalf("hydrate should replace cart contents, got %+v", lines)
	}
}

func TestHydrateEmptySnapshotClearsCart(t *testing.T) {
	store, writer := newTestStore(t)
	_, _ = store.Add(plainItem("old", "10"))
	before := writer.count("sess-1")
	report := store.Hydrate(models.CartSnapshotPayload{})
	if report.Changed() || store.LineCount() != 0 {
		t.Fatalf("empty snapshot should yield empty cart, report %+v", report)
	}
	if writer.count("sess-1") != before {
		t.Fatalf("empty hydrate should not persist")
	}
}

func TestHydrateRemovesDuplicateAddons(t *testing.T) {
	store, writer := newTestStore(t)
	line := pricedLine(customItem("pizza", "100", "", "", addon("cheese", "20")), 1)
	extras := line.Addons["extras"]
	extras.Addons = append(extras.Addons, addon("cheese", "20"))
	line.Addons["extras"] = extras
	line.UnitPrice = models.MustMoney("140")

	report := store.Hydrate(models.CartSnapshotPayload{SchemaVersion: 1, Lines: []models.CartLine{line}})
	if report.Repaired != 2 {
		t.Fatalf("addon and unit price repairs expected, got %+v", report)
	}
	if got := store.Total().Display(); got != "120.00" {
		t.Fatalf("total want 120.00 got %s", got)
	}
	if writer.count("sess-1") != 1 {
		t.Fatalf("repaired snapshot should be re-persisted")
	}
}
