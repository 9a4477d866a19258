package service

import (
	"strings"

	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/metrics"
	"github.com/tiffin-next/internal/models"
)

// 快照修复原因（指标标签）
const (
	repairInvalidLine    = "invalid_line"
	repairDuplicateLine  = "duplicate_line"
	repairDuplicateAddon = "duplicate_addon"
	repairExtraMess      = "extra_mess"
	repairMessQuantity   = "mess_quantity"
	repairUnitPrice      = "unit_price"
)

// HydrateReport 快照恢复结果
type HydrateReport struct {
	Kept     int `json:"kept"`
	Dropped  int `json:"dropped"`
	Repaired int `json:"repaired"`
}

// Changed 快照内容是否被修复过
func (r HydrateReport) Changed() bool {
	return r.Dropped > 0 || r.Repaired > 0
}

// Hydrate 用持久化快照替换当前购物车内容
// 违反不变量的行会被修复或丢弃，不会返回错误；发生修复时重新写回快照
func (s *CartStore) Hydrate(payload models.CartSnapshotPayload) HydrateReport {
	lines, report, reasons := repairLines(payload.Lines)
	s.lines = lines
	s.mutatedAt = payload.MutatedAt

	metrics.CartMutation(constants.CartOpHydrate, metrics.ResultOK)
	for reason, count := range reasons {
		metrics.SnapshotRepair(reason, count)
	}
	if report.Changed() {
		s.log.Warnw("cart_snapshot_repaired",
			"error", ErrSnapshotCorrupt,
			"kept", report.Kept,
			"dropped", report.Dropped,
			"repaired", report.Repaired,
			"reasons", reasons,
		)
		s.mutatedAt = s.now()
		s.persist()
	} else {
		s.log.Debugw("cart_snapshot_hydrated", "kept", report.Kept)
	}
	return report
}

func repairLines(raw []models.CartLine) ([]models.CartLine, HydrateReport, map[string]int) {
	report := HydrateReport{}
	reasons := make(map[string]int)
	out := make([]models.CartLine, 0, len(raw))
	messSeen := false

	for _, original := range raw {
		line := original.Clone()
		line.ItemID = strings.TrimSpace(line.ItemID)
		line.OutletID = strings.TrimSpace(line.OutletID)
		if line.ItemID == "" || line.OutletID == "" || line.Quantity <= 0 || hasNegativePrice(line) {
			report.Dropped++
			reasons[repairInvalidLine]++
			continue
		}

		if line.IsMessItem && line.Quantity > constants.MessItemMaxQuantity {
			line.Quantity = constants.MessItemMaxQuantity
			report.Repaired++
			reasons[repairMessQuantity]++
		}

		if deduped, removed := models.DedupeAddonGroups(line.Addons); removed > 0 {
			line.Addons = deduped
			report.Repaired++
			reasons[repairDuplicateAddon]++
		}

		expected := UnitPrice(line)
		if !line.UnitPrice.Equal(expected) {
			line.UnitPrice = expected
			report.Repaired++
			reasons[repairUnitPrice]++
		}

		if idx := indexOfLine(out, line); idx >= 0 {
			if out[idx].IsMessItem || line.IsMessItem {
				report.Dropped++
				reasons[repairDuplicateLine]++
				continue
			}
			out[idx].Quantity += line.Quantity
			report.Repaired++
			reasons[repairDuplicateLine]++
			continue
		}

		if line.IsMessItem {
			if messSeen {
				report.Dropped++
				reasons[repairExtraMess]++
				continue
			}
			messSeen = true
		}
		out = append(out, line)
	}

	report.Kept = len(out)
	return out, report, reasons
}

func indexOfLine(lines []models.CartLine, target models.CartLine) int {
	for i := range lines {
		if SameConfiguration(target, lines[i]) {
			return i
		}
	}
	return -1
}
