package public

import (
	"sort"
	"strconv"
	"strings"

	handlershared "github.com/tiffin-next/internal/http/handlers/shared"
	"github.com/tiffin-next/internal/http/response"
	"github.com/tiffin-next/internal/models"
	"github.com/tiffin-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求（来自菜单浏览与定制流程）
type AddCartItemRequest struct {
	ItemID              string                       `json:"item_id" binding:"required"`
	OutletID            string                       `json:"outlet_id" binding:"required"`
	Name                string                       `json:"name"`
	ImageRef            string                       `json:"image_ref"`
	BasePrice           models.Money                 `json:"base_price"`
	PreparationTimeHint string                       `json:"preparation_time_hint"`
	IsMessItem          bool                         `json:"is_mess_item"`
	SupportsVariation   bool                         `json:"supports_variation"`
	SupportsAddons      bool                         `json:"supports_addons"`
	Variation           *models.Variation            `json:"variation"`
	Addons              map[string]models.AddonGroup `json:"addons"`
}

func (r AddCartItemRequest) toSelection() models.MenuSelection {
	return models.MenuSelection{
		ItemID:              strings.TrimSpace(r.ItemID),
		OutletID:            strings.TrimSpace(r.OutletID),
		Name:                r.Name,
		ImageRef:            r.ImageRef,
		BasePrice:           r.BasePrice,
		PreparationTimeHint: r.PreparationTimeHint,
		IsMessItem:          r.IsMessItem,
		SupportsVariation:   r.SupportsVariation,
		SupportsAddons:      r.SupportsAddons,
		Variation:           r.Variation,
		Addons:              r.Addons,
	}
}

// CartVariationResponse 规格
type CartVariationResponse struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// CartAddonResponse 加料
type CartAddonResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// CartAddonGroupResponse 加料分组
type CartAddonGroupResponse struct {
	GroupID string              `json:"group_id"`
	Name    string              `json:"name"`
	Addons  []CartAddonResponse `json:"addons"`
}

// CartLineResponse 购物车行响应
type CartLineResponse struct {
	LineKey             string                   `json:"line_key"`
	ItemID              string                   `json:"item_id"`
	OutletID            string                   `json:"outlet_id"`
	Name                string                   `json:"name"`
	ImageRef            string                   `json:"image_ref"`
	PreparationTimeHint string                   `json:"preparation_time_hint"`
	IsMessItem          bool                     `json:"is_mess_item"`
	Variation           *CartVariationResponse   `json:"variation,omitempty"`
	Addons              []CartAddonGroupResponse `json:"addons"`
	Quantity            int                      `json:"quantity"`
	UnitPrice           string                   `json:"unit_price"`
	LineTotal           string                   `json:"line_total"`
}

// CartResponse 购物车响应
type CartResponse struct {
	SessionID string             `json:"session_id"`
	Lines     []CartLineResponse `json:"lines"`
	LineCount int                `json:"line_count"`
	ItemCount int                `json:"item_count"`
	HasMess   bool               `json:"has_mess_item"`
	Total     string             `json:"total"`
}

// DecreaseCartItemResponse 减少数量响应
type DecreaseCartItemResponse struct {
	Removed bool         `json:"removed"`
	Cart    CartResponse `json:"cart"`
}

// CheckoutResponse 结账交接响应
type CheckoutResponse struct {
	HandoffNo string       `json:"handoff_no"`
	Total     string       `json:"total"`
	LineCount int          `json:"line_count"`
	Cart      CartResponse `json:"cart"`
}

// HandoffListResponse 交接记录分页响应
type HandoffListResponse struct {
	Items    []models.CheckoutHandoff `json:"items"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"page_size"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	var resp CartResponse
	err := h.CartSessionService.Do(c.Request.Context(), sessionID, func(store *service.CartStore) error {
		resp = buildCartResponse(store)
		return nil
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, resp)
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var resp CartResponse
	err := h.CartSessionService.Do(c.Request.Context(), sessionID, func(store *service.CartStore) error {
		if _, err := store.Add(req.toSelection()); err != nil {
			return err
		}
		resp = buildCartResponse(store)
		return nil
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, resp)
}

// IncreaseCartItem 指定行数量 +1
func (h *Handler) IncreaseCartItem(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	lineKey := c.Param("line_key")
	var resp CartResponse
	err := h.CartSessionService.Do(c.Request.Context(), sessionID, func(store *service.CartStore) error {
		line, found := store.Line(lineKey)
		if !found {
			return service.ErrLineNotFound
		}
		if _, err := store.Increase(line); err != nil {
			return err
		}
		resp = buildCartResponse(store)
		return nil
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, resp)
}

// DecreaseCartItem 指定行数量 -1，减到 0 时移除
func (h *Handler) DecreaseCartItem(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	lineKey := c.Param("line_key")
	var resp DecreaseCartItemResponse
	err := h.CartSessionService.Do(c.Request.Context(), sessionID, func(store *service.CartStore) error {
		line, found := store.Line(lineKey)
		if !found {
			return service.ErrLineNotFound
		}
		_, removed, err := store.Decrease(line)
		if err != nil {
			return err
		}
		resp = DecreaseCartItemResponse{Removed: removed, Cart: buildCartResponse(store)}
		return nil
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, resp)
}

// RemoveCartItem 删除购物车行
func (h *Handler) RemoveCartItem(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	lineKey := c.Param("line_key")
	var resp CartResponse
	err := h.CartSessionService.Do(c.Request.Context(), sessionID, func(store *service.CartStore) error {
		line, found := store.Line(lineKey)
		if !found {
			return service.ErrLineNotFound
		}
		if err := store.Remove(line); err != nil {
			return err
		}
		resp = buildCartResponse(store)
		return nil
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, resp)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	var resp CartResponse
	err := h.CartSessionService.Do(c.Request.Context(), sessionID, func(store *service.CartStore) error {
		store.RemoveAll()
		resp = buildCartResponse(store)
		return nil
	})
	if err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, resp)
}

// Checkout 生成结账快照并交给结账方
func (h *Handler) Checkout(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	snapshot, err := h.CheckoutService.Handoff(c.Request.Context(), sessionID)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	var cart CartResponse
	err = h.CartSessionService.Do(c.Request.Context(), sessionID, func(store *service.CartStore) error {
		cart = buildCartResponse(store)
		return nil
	})
	if err != nil {
		handlershared.RequestLog(c).Warnw("checkout_cart_reload_failed", "handoff_no", snapshot.HandoffNo, "error", err)
	}
	response.Success(c, CheckoutResponse{
		HandoffNo: snapshot.HandoffNo,
		Total:     snapshot.Total.Display(),
		LineCount: len(snapshot.Lines),
		Cart:      cart,
	})
}

// ListHandoffs 查询会话最近的结账交接记录
func (h *Handler) ListHandoffs(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = service.NormalizeHandoffPage(page, pageSize)
	handoffs, total, err := h.CheckoutService.ListBySession(c.Request.Context(), sessionID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.handoff_list_failed", err)
		return
	}
	response.Success(c, HandoffListResponse{Items: handoffs, Total: total, Page: page, PageSize: pageSize})
}

// Logout 结束会话：清空购物车并删除持久化快照
func (h *Handler) Logout(c *gin.Context) {
	sessionID, ok := getSessionID(c)
	if !ok {
		return
	}
	if err := h.CartSessionService.End(c.Request.Context(), sessionID); err != nil {
		respondCartError(c, err)
		return
	}
	response.Success(c, gin.H{"session_id": sessionID, "ended": true})
}

func buildCartResponse(store *service.CartStore) CartResponse {
	lines := store.Lines()
	resp := CartResponse{
		SessionID: store.SessionID(),
		Lines:     make([]CartLineResponse, 0, len(lines)),
		LineCount: store.LineCount(),
		ItemCount: store.ItemCount(),
		Total:     store.Total().Display(),
	}
	for _, line := range lines {
		if line.IsMessItem {
			resp.HasMess = true
		}
		resp.Lines = append(resp.Lines, buildCartLineResponse(line))
	}
	return resp
}

func buildCartLineResponse(line models.CartLine) CartLineResponse {
	item := CartLineResponse{
		LineKey:             service.BuildLineKey(line).ID(),
		ItemID:              line.ItemID,
		OutletID:            line.OutletID,
		Name:                line.Name,
		ImageRef:            line.ImageRef,
		PreparationTimeHint: line.PreparationTimeHint,
		IsMessItem:          line.IsMessItem,
		Addons:              make([]CartAddonGroupResponse, 0, len(line.Addons)),
		Quantity:            line.Quantity,
		UnitPrice:           line.UnitPrice.Display(),
		LineTotal:           service.LineTotal(line).Display(),
	}
	if line.Variation != nil {
		item.Variation = &CartVariationResponse{
			Name:  line.Variation.Name,
			Price: line.Variation.Price.Display(),
		}
	}
	groupIDs := make([]string, 0, len(line.Addons))
	for id := range line.Addons {
		groupIDs = append(groupIDs, id)
	}
	sort.Strings(groupIDs)
	for _, id := range groupIDs {
		group := line.Addons[id]
		addons := make([]CartAddonResponse, 0, len(group.Addons))
		for _, addon := range group.Addons {
			addons = append(addons, CartAddonResponse{
				ID:    addon.ID,
				Name:  addon.Name,
				Price: addon.Price.Display(),
			})
		}
		item.Addons = append(item.Addons, CartAddonGroupResponse{
			GroupID: group.GroupID,
			Name:    group.Name,
			Addons:  addons,
		})
	}
	return item
}
