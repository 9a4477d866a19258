package service

import (
	"errors"
	"testing"
	"time"

	"github.com/tiffin-next/internal/models"
)

func newTestStore(t *testing.T) (*CartStore, *recordingWriter) {
	t.Helper()
	writer := newRecordingWriter()
	store := NewCartStore("sess-1", writer)
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	return store, writer
}

func TestCartStoreAddMergesSameConfiguration(t *testing.T) {
	store, writer := newTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := store.Add(customItem("pizza", "200", "Large", "300", addon("cheese", "20"))); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if store.LineCount() != 1 {
		t.Fatalf("line count want 1 got %d", store.LineCount())
	}
	if store.ItemCount() != 3 {
		t.Fatalf("item count want 3 got %d", store.ItemCount())
	}
	if got := store.Total().Display(); got != "960.00" {
		t.Fatalf("total want 960.00 got %s", got)
	}
	if writer.count("sess-1") != 3 {
		t.Fatalf("each add should persist, got %d snapshots", writer.count("sess-1"))
	}
}

func TestCartStoreAddKeepsInsertionOrder(t *testing.T) {
	store, _ := newTestStore(t)
	for _, id := range []string{"c", "a", "b"} {
		if _, err := store.Add(plainItem(id, "10")); err != nil {
			t.Fatalf("add %s failed: %v", id, err)
		}
	}
	lines := store.Lines()
	if lines[0].ItemID != "c" || lines[1].ItemID != "a" || lines[2].ItemID != "b" {
		t.Fatalf("lines should keep insertion order, got %s %s %s", lines[0].ItemID, lines[1].ItemID, lines[2].ItemID)
	}
}

func TestCartStoreAddDifferentConfigurationsAreSeparateLines(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Add(customItem("pizza", "200", "Large", "300")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := store.Add(customItem("pizza", "200", "Medium", "250")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if store.LineCount() != 2 {
		t.Fatalf("line count want 2 got %d", store.LineCount())
	}
}

func TestCartStoreRejectsInvalidSelection(t *testing.T) {
	store, writer := newTestStore(t)
	cases := []models.MenuSelection{
		plainItem("", "10"),
		{ItemID: "x", BasePrice: models.MustMoney("10")},
		plainItem("neg", "-1"),
	}
	for _, selection := range cases {
		if _, err := store.Add(selection); !errors.Is(err, ErrInvalidSelection) {
			t.Fatalf("want ErrInvalidSelection got %v", err)
		}
	}
	if store.LineCount() != 0 || writer.count("sess-1") != 0 {
		t.Fatalf("rejected adds must not change or persist the cart")
	}
}

func TestCartStoreMessExclusivity(t *testing.T) {
	store, writer := newTestStore(t)
	if _, err := store.Add(messItem("mess-a", "3000")); err != nil {
		t.Fatalf("first mess add failed: %v", err)
	}
	if _, err := store.Add(messItem("mess-b", "2800")); !errors.Is(err, ErrMessExclusivityViolation) {
		t.Fatalf("second mess want ErrMessExclusivityViolation got %v", err)
	}
	if _, err := store.Add(messItem("mess-a", "3000")); !errors.Is(err, ErrQuantityCapExceeded) {
		t.Fatalf("same mess want ErrQuantityCapExceeded got %v", err)
	}
	if _, err := store.Add(plainItem("roti", "10")); err != nil {
		t.Fatalf("regular item should still be accepted: %v", err)
	}
	if store.LineCount() != 2 {
		t.Fatalf("line count want 2 got %d", store.LineCount())
	}
	if writer.count("sess-1") != 2 {
		t.Fatalf("only successful adds persist, got %d", writer.count("sess-1"))
	}
}

func TestCartStoreMessQuantityCap(t *testing.T) {
	store, _ := newTestStore(t)
	line, err := store.Add(messItem("mess-a", "3000"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := store.Increase(line); !errors.Is(err, ErrQuantityCapExceeded) {
		t.Fatalf("increase mess want ErrQuantityCapExceeded got %v", err)
	}
	current, _ := store.Line(BuildLineKey(line).ID())
	if current.Quantity != 1 {
		t.Fatalf("mess quantity want 1 got %d", current.Quantity)
	}
}

func TestCartStoreIncreaseDecreaseRemove(t *testing.T) {
	store, _ := newTestStore(t)
	line, err := store.Add(plainItem("roti", "12.50"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if updated, err := store.Increase(line); err != nil || updated.Quantity != 2 {
		t.Fatalf("increase want qty 2, got %d err %v", updated.Quantity, err)
	}
	updated, removed, err := store.Decrease(line)
	if err != nil || removed || updated.Quantity != 1 {
		t.Fatalf("decrease want qty 1 not removed, got %d %v %v", updated.Quantity, removed, err)
	}
	_, removed, err = store.Decrease(line)
	if err != nil || !removed {
		t.Fatalf("decrease to zero should remove, got removed=%v err=%v", removed, err)
	}
	if store.LineCount() != 0 {
		t.Fatalf("line should be gone")
	}
	if _, err := store.Increase(line); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("increase stale line want ErrLineNotFound got %v", err)
	}
	if _, _, err := store.Decrease(line); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("decrease stale line want ErrLineNotFound got %v", err)
	}
	if err := store.Remove(line); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("remove stale line want ErrLineNotFound got %v", err)
	}
}

func TestCartStoreRemoveIgnoresQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	line, _ := store.Add(plainItem("roti", "10"))
	_, _ = store.Increase(line)
	_, _ = store.Increase(line)
	if err := store.Remove(line); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if store.LineCount() != 0 {
		t.Fatalf("remove should drop the whole line")
	}
}

func TestCartStoreRemoveAllPersistsEmptySnapshot(t *testing.T) {
	store, writer := newTestStore(t)
	_, _ = store.Add(plainItem("roti", "10"))
	_, _ = store.Add(messItem("mess-a", "3000"))
	store.RemoveAll()
	if store.LineCount() != 0 || store.Total().Display() != "0.00" {
		t.Fatalf("cart should be empty")
	}
	last, ok := writer.last("sess-1")
	if !ok || !last.IsEmpty() {
		t.Fatalf("last snapshot should be empty, got %+v", last)
	}
	if _, err := store.Add(messItem("mess-b", "2800")); err != nil {
		t.Fatalf("mess slot should be free after clear: %v", err)
	}
}

func TestCartStoreAddRefreshesChangedPrice(t *testing.T) {
	store, _ := newTestStore(t)
	_, _ = store.Add(plainItem("roti", "10"))
	line, err := store.Add(plainItem("roti", "12"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if line.Quantity != 2 || line.UnitPrice.Display() != "12.00" {
		t.Fatalf("want qty 2 at 12.00, got qty %d at %s", line.Quantity, line.UnitPrice.Display())
	}
}

func TestCartStoreReturnedLinesAreCopies(t *testing.T) {
	store, _ := newTestStore(t)
	_, _ = store.Add(customItem("pizza", "200", "Large", "300"))
	lines := store.Lines()
	lines[0].Quantity = 99
	lines[0].Variation.Name = "Hacked"
	again := store.Lines()
	if again[0].Quantity != 1 || again[0].Variation.Name != "Large" {
		t.Fatalf("callers must not mutate cart state")
	}
}

func TestCartStoreSnapshotAndCheckoutLines(t *testing.T) {
	store, _ := newTestStore(t)
	_, _ = store.Add(customItem("pizza", "200", "Large", "300", addon("cheese", "20")))
	_, _ = store.Add(customItem("pizza", "200", "Large", "300", addon("cheese", "20")))

	snapshot := store.Snapshot()
	if snapshot.SchemaVersion != 1 || len(snapshot.Lines) != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if !snapshot.MutatedAt.Equal(store.MutatedAt()) {
		t.Fatalf("snapshot should carry mutation time")
	}

	lines := store.CheckoutLines()
	if len(lines) != 1 {
		t.Fatalf("checkout lines want 1 got %d", len(lines))
	}
	if lines[0].LineTotal.Display() != "640.00" || lines[0].Quantity != 2 {
		t.Fatalf("unexpected checkout line %+v", lines[0])
	}
	if lines[0].LineKey == "" {
		t.Fatalf("checkout line should carry line key")
	}
}

func TestCartStoreLineLookupByKey(t *testing.T) {
	store, _ := newTestStore(t)
	line, _ := store.Add(plainItem("roti", "10"))
	found, ok := store.Line(" " + BuildLineKey(line).ID() + " ")
	if !ok || found.ItemID != "roti" {
		t.Fatalf("line lookup failed")
	}
	if _, ok := store.Line("missing"); ok {
		t.Fatalf("unknown key should not resolve")
	}
}

func TestCartStoreLineKeysReachEveryLine(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Add(customItem("pizza", "100", "", "", addon("a,b", "1"))); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := store.Add(customItem("pizza", "100", "", "", addon("a", "5"), addon("b", "5"))); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	lines := store.Lines()
	if len(lines) != 2 {
		t.Fatalf("distinct addon sets should be separate lines, got %d", len(lines))
	}
	first, second := BuildLineKey(lines[0]).ID(), BuildLineKey(lines[1]).ID()
	if first == second {
		t.Fatalf("line keys collide: %s", first)
	}
	got, ok := store.Line(second)
	if !ok || got.UnitPrice.Display() != "110.00" {
		t.Fatalf("second line key should resolve to the 110.00 line, got ok=%v unit=%s", ok, got.UnitPrice.Display())
	}
	if _, _, err := store.Decrease(got); err != nil {
		t.Fatalf("decrease second line failed: %v", err)
	}
	if store.LineCount() != 1 || store.Lines()[0].UnitPrice.Display() != "101.00" {
		t.Fatalf("only the second line should be removed, got %+v", store.Lines())
	}
}

func TestCartStoreDuplicateAddonsPriceLikeSingleAddon(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Add(customItem("pizza", "100", "", "", addon("cheese", "20"), addon("cheese", "20"))); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if got := store.Total().Display(); got != "120.00" {
		t.Fatalf("duplicate addon should be charged once, total want 120.00 got %s", got)
	}
	if _, err := store.Add(customItem("pizza", "100", "", "", addon("cheese", "20"))); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	lines := store.Lines()
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("same identity should merge, got %+v", lines)
	}
	if got := store.Total().Display(); got != "240.00" {
		t.Fatalf("total want 240.00 got %s", got)
	}
}
