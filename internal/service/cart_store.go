package service

import (
	"strings"
	"time"

	"github.com/tiffin-next/internal/constants"
	"github.com/tiffin-next/internal/logger"
	"github.com/tiffin-next/internal/metrics"
	"github.com/tiffin-next/internal/models"

	"go.uber.org/zap"
)

// SnapshotWriter 快照写入器，Submit 不等待写入完成
type SnapshotWriter interface {
	Submit(sessionID string, payload models.CartSnapshotPayload)
}

// CartStore 单个会话的购物车
// 行按加入顺序保存；所有变更都经过此处，保证每次调用后不变量成立
// 同一会话的调用需要由调用方串行化（见 CartSessionService）
type CartStore struct {
	sessionID string
	lines     []models.CartLine
	writer    SnapshotWriter
	mutatedAt time.Time
	now       func() time.Time
	log       *zap.SugaredLogger
}

// NewCartStore 创建空购物车
func NewCartStore(sessionID string, writer SnapshotWriter) *CartStore {
	return &CartStore{
		sessionID: strings.TrimSpace(sessionID),
		writer:    writer,
		now:       time.Now,
		log:       logger.ForSession(sessionID),
	}
}

// SessionID 会话 ID
func (s *CartStore) SessionID() string {
	return s.sessionID
}

// Add 将菜单选择加入购物车
// 命中相同配置时数量 +1，否则在末尾追加数量为 1 的新行
func (s *CartStore) Add(selection models.MenuSelection) (models.CartLine, error) {
	candidate := selection.ToLine()
	if err := validateCandidate(candidate); err != nil {
		return s.reject(constants.CartOpAdd, err, "item_id", selection.ItemID)
	}
	candidate.UnitPrice = UnitPrice(candidate)

	idx := s.indexOf(candidate)
	messIdx := s.messIndex()
	if candidate.IsMessItem && messIdx >= 0 && messIdx != idx {
		return s.reject(constants.CartOpAdd, ErrMessExclusivityViolation,
			"item_id", candidate.ItemID,
			"existing_item_id", s.lines[messIdx].ItemID,
		)
	}
	if idx >= 0 && (candidate.IsMessItem || s.lines[idx].IsMessItem) {
		return s.reject(constants.CartOpAdd, ErrQuantityCapExceeded, "item_id", candidate.ItemID)
	}

	if idx >= 0 {
		line := &s.lines[idx]
		line.Quantity++
		if !line.UnitPrice.Equal(candidate.UnitPrice) {
			s.log.Infow("cart_line_price_refreshed",
				"item_id", line.ItemID,
				"old_unit_price", line.UnitPrice.String(),
				"new_unit_price", candidate.UnitPrice.String(),
			)
			line.BasePrice = candidate.BasePrice
			line.Variation = candidate.Clone().Variation
			line.Addons = candidate.Clone().Addons
			line.UnitPrice = candidate.UnitPrice
		}
		s.commit(constants.CartOpAdd, "item_id", line.ItemID, "quantity", line.Quantity, "merged", true)
		return line.Clone(), nil
	}

	candidate.Quantity = 1
	s.lines = append(s.lines, candidate)
	s.commit(constants.CartOpAdd, "item_id", candidate.ItemID, "quantity", 1, "merged", false)
	return candidate.Clone(), nil
}

// Increase 指定行数量 +1
func (s *CartStore) Increase(target models.CartLine) (models.CartLine, error) {
	idx := s.indexOf(target)
	if idx < 0 {
		return s.reject(constants.CartOpIncrease, ErrLineNotFound, "item_id", target.ItemID)
	}
	line := &s.lines[idx]
	if line.IsMessItem && line.Quantity+1 > constants.MessItemMaxQuantity {
		return s.reject(constants.CartOpIncrease, ErrQuantityCapExceeded, "item_id", line.ItemID)
	}
	line.Quantity++
	s.commit(constants.CartOpIncrease, "item_id", line.ItemID, "quantity", line.Quantity)
	return line.Clone(), nil
}

// Decrease 指定行数量 -1，减到 0 时移除该行（removed 为 true）
func (s *CartStore) Decrease(target models.CartLine) (models.CartLine, bool, error) {
	idx := s.indexOf(target)
	if idx < 0 {
		line, err := s.reject(constants.CartOpDecrease, ErrLineNotFound, "item_id", target.ItemID)
		return line, false, err
	}
	s.lines[idx].Quantity--
	line := s.lines[idx].Clone()
	removed := line.Quantity <= 0
	if removed {
		line.Quantity = 0
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	}
	s.commit(constants.CartOpDecrease, "item_id", line.ItemID, "quantity", line.Quantity, "removed", removed)
	return line, removed, nil
}

// Remove 按身份键删除整行，与数量无关
func (s *CartStore) Remove(target models.CartLine) error {
	idx := s.indexOf(target)
	if idx < 0 {
		_, err := s.reject(constants.CartOpRemove, ErrLineNotFound, "item_id", target.ItemID)
		return err
	}
	itemID := s.lines[idx].ItemID
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	s.commit(constants.CartOpRemove, "item_id", itemID)
	return nil
}

// RemoveAll 清空购物车
func (s *CartStore) RemoveAll() {
	cleared := len(s.lines)
	s.lines = nil
	s.commit(constants.CartOpRemoveAll, "cleared_lines", cleared)
}

// Lines 返回购物车行副本（加入顺序）
func (s *CartStore) Lines() []models.CartLine {
	out := make([]models.CartLine, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, line.Clone())
	}
	return out
}

// Line 按 line_key 查找购物车行
func (s *CartStore) Line(lineKey string) (models.CartLine, bool) {
	lineKey = strings.TrimSpace(lineKey)
	for _, line := range s.lines {
		if BuildLineKey(line).ID() == lineKey {
			return line.Clone(), true
		}
	}
	return models.CartLine{}, false
}

// LineCount 行数
func (s *CartStore) LineCount() int {
	return len(s.lines)
}

// ItemCount 商品总件数
func (s *CartStore) ItemCount() int {
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// Total 购物车合计
func (s *CartStore) Total() models.Money {
	return CartTotal(s.lines)
}

// MutatedAt 最后一次变更时间
func (s *CartStore) MutatedAt() time.Time {
	return s.mutatedAt
}

// Snapshot 生成持久化快照
func (s *CartStore) Snapshot() models.CartSnapshotPayload {
	return models.CartSnapshotPayload{
		SchemaVersion: constants.CartSnapshotSchemaVersion,
		Lines:         s.Lines(),
		MutatedAt:     s.mutatedAt,
	}
}

// CheckoutLines 生成交给结账方的只读行列表
func (s *CartStore) CheckoutLines() []models.CheckoutLine {
	out := make([]models.CheckoutLine, 0, len(s.lines))
	for _, line := range s.lines {
		copied := line.Clone()
		out = append(out, models.CheckoutLine{
			LineKey:   BuildLineKey(line).ID(),
			ItemID:    copied.ItemID,
			OutletID:  copied.OutletID,
			Name:      copied.Name,
			Variation: copied.Variation,
			Addons:    copied.Addons,
			Quantity:  copied.Quantity,
			UnitPrice: copied.UnitPrice,
			LineTotal: LineTotal(copied),
			IsMess:    copied.IsMessItem,
		})
	}
	return out
}

func (s *CartStore) indexOf(target models.CartLine) int {
	return indexOfLine(s.lines, target)
}

func (s *CartStore) messIndex() int {
	for i := range s.lines {
		if s.lines[i].IsMessItem {
			return i
		}
	}
	return -1
}

func (s *CartStore) reject(op string, err error, kv ...interface{}) (models.CartLine, error) {
	metrics.CartMutation(op, metrics.ResultRejected)
	s.log.Debugw("cart_mutation_rejected", append([]interface{}{"op", op, "error", err}, kv...)...)
	return models.CartLine{}, err
}

func (s *CartStore) commit(op string, kv ...interface{}) {
	s.mutatedAt = s.now()
	metrics.CartMutation(op, metrics.ResultOK)
	s.log.Debugw("cart_mutation_applied", append([]interface{}{"op", op, "lines", len(s.lines)}, kv...)...)
	s.persist()
}

func (s *CartStore) persist() {
	if s.writer == nil || s.sessionID == "" {
		return
	}
	s.writer.Submit(s.sessionID, s.Snapshot())
}

func validateCandidate(line models.CartLine) error {
	if strings.TrimSpace(line.ItemID) == "" || strings.TrimSpace(line.OutletID) == "" {
		return ErrInvalidSelection
	}
	if hasNegativePrice(line) {
		return ErrInvalidSelection
	}
	return nil
}
