package models

// MenuSelection 菜单选择（来自前端浏览/定制流程，非持久化）
type MenuSelection struct {
	ItemID              string                `json:"item_id"`
	OutletID            string                `json:"outlet_id"`
	Name                string                `json:"name"`
	ImageRef            string                `json:"image_ref"`
	BasePrice           Money                 `json:"base_price"`
	PreparationTimeHint string                `json:"preparation_time_hint"`
	IsMessItem          bool                  `json:"is_mess_item"`
	SupportsVariation   bool                  `json:"supports_variation"`
	SupportsAddons      bool                  `json:"supports_addons"`
	Variation           *Variation            `json:"variation,omitempty"`
	Addons              map[string]AddonGroup `json:"addons,omitempty"`
}

// ToLine 转换为候选购物车行（数量为 0，单价未计算）
// 商品不支持的定制项会被丢弃，重复加料只保留一份
func (s MenuSelection) ToLine() CartLine {
	line := CartLine{
		ItemID:              s.ItemID,
		OutletID:            s.OutletID,
		Name:                s.Name,
		ImageRef:            s.ImageRef,
		PreparationTimeHint: s.PreparationTimeHint,
		BasePrice:           s.BasePrice,
		SupportsVariation:   s.SupportsVariation,
		SupportsAddons:      s.SupportsAddons,
		IsMessItem:          s.IsMessItem,
	}
	if s.SupportsVariation && s.Variation != nil {
		v := *s.Variation
		line.Variation = &v
	}
	if s.SupportsAddons && len(s.Addons) > 0 {
		line.Addons = make(map[string]AddonGroup, len(s.Addons))
		for id, group := range s.Addons {
			if len(group.Addons) == 0 {
				continue
			}
			g := group
			if g.GroupID == "" {
				g.GroupID = id
			}
			g.Addons = append([]Addon(nil), group.Addons...)
			line.Addons[id] = g
		}
		line.Addons, _ = DedupeAddonGroups(line.Addons)
	}
	return line
}
