package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Variation 规格（如 Medium / Large），价格替换基础价
type Variation struct {
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

// Addon 单个加料
type Addon struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price Money  `json:"price"`
}

// IdentityID 加料在身份键中的标识，缺省 id 时使用名称
func (a Addon) IdentityID() string {
	id := strings.TrimSpace(a.ID)
	if id != "" {
		return id
	}
	return strings.TrimSpace(a.Name)
}

// AddonGroup 加料分组及其已选加料（保持选择顺序）
type AddonGroup struct {
	GroupID string  `json:"group_id"`
	Name    string  `json:"name"`
	Addons  []Addon `json:"addons"`
}

// DedupeAddonGroups 按 IdentityID 跨分组去重加料，返回去重后的分组与移除数量
// 分组按 id 排序遍历，重复项保留在排序靠前的分组；无标识的加料同样移除
func DedupeAddonGroups(groups map[string]AddonGroup) (map[string]AddonGroup, int) {
	if len(groups) == 0 {
		return groups, 0
	}
	groupIDs := make([]string, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Strings(groupIDs)

	seen := make(map[string]struct{})
	removed := 0
	out := make(map[string]AddonGroup, len(groups))
	for _, groupID := range groupIDs {
		group := groups[groupID]
		kept := make([]Addon, 0, len(group.Addons))
		for _, addon := range group.Addons {
			id := addon.IdentityID()
			if _, dup := seen[id]; dup || id == "" {
				removed++
				continue
			}
			seen[id] = struct{}{}
			kept = append(kept, addon)
		}
		if len(kept) == 0 {
			continue
		}
		group.Addons = kept
		out[groupID] = group
	}
	if len(out) == 0 {
		return nil, removed
	}
	return out, removed
}

// CartLine 购物车行：一种可购买配置及其数量
type CartLine struct {
	ItemID              string                `json:"item_id"`
	OutletID            string                `json:"outlet_id"`
	Name                string                `json:"name"`
	ImageRef            string                `json:"image_ref"`
	PreparationTimeHint string                `json:"preparation_time_hint"`
	BasePrice           Money                 `json:"base_price"`
	SupportsVariation   bool                  `json:"supports_variation"`
	SupportsAddons      bool                  `json:"supports_addons"`
	Variation           *Variation            `json:"variation,omitempty"`
	Addons              map[string]AddonGroup `json:"addons,omitempty"`
	Quantity            int                   `json:"quantity"`
	IsMessItem          bool                  `json:"is_mess_item"`
	UnitPrice           Money                 `json:"unit_price"`
}

// Customizable 商品是否支持规格或加料定制
func (l CartLine) Customizable() bool {
	return l.SupportsVariation || l.SupportsAddons
}

// Clone 深拷贝，避免调用方修改购物车内部状态
func (l CartLine) Clone() CartLine {
	out := l
	if l.Variation != nil {
		v := *l.Variation
		out.Variation = &v
	}
	if l.Addons != nil {
		out.Addons = make(map[string]AddonGroup, len(l.Addons))
		for id, group := range l.Addons {
			g := group
			g.Addons = append([]Addon(nil), group.Addons...)
			out.Addons[id] = g
		}
	}
	return out
}

// LineKey 购物车行身份键
// 两个候选项身份键相同即视为同一行，按数量合并
type LineKey struct {
	ItemID    string
	OutletID  string
	Variation string
	HasVar    bool
	AddonIDs  []string
}

// String 规范化文本表示，各分量按 "长度:内容" 编码，保证不同身份键文本不同
func (k LineKey) String() string {
	var b strings.Builder
	writeKeyPart(&b, k.ItemID)
	writeKeyPart(&b, k.OutletID)
	if k.HasVar {
		writeKeyPart(&b, "v:"+k.Variation)
	} else {
		writeKeyPart(&b, "-")
	}
	b.WriteString(strconv.Itoa(len(k.AddonIDs)))
	b.WriteByte('#')
	for _, id := range k.AddonIDs {
		writeKeyPart(&b, id)
	}
	return b.String()
}

func writeKeyPart(b *strings.Builder, part string) {
	b.WriteString(strconv.Itoa(len(part)))
	b.WriteByte(':')
	b.WriteString(part)
}

// ID 对外引用的短摘要（line_key）
func (k LineKey) ID() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:8])
}
