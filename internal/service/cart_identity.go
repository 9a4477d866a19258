package service

import (
	"sort"
	"strings"

	"github.com/tiffin-next/internal/models"
)

// BuildLineKey 计算购物车行身份键
// 加料 id 跨分组展开、去重并排序，与选择顺序无关
func BuildLineKey(line models.CartLine) models.LineKey {
	key := models.LineKey{
		ItemID:   strings.TrimSpace(line.ItemID),
		OutletID: strings.TrimSpace(line.OutletID),
	}
	if !line.Customizable() {
		return key
	}
	if line.Variation != nil {
		key.HasVar = true
		key.Variation = strings.TrimSpace(line.Variation.Name)
	}
	key.AddonIDs = addonIDSet(line.Addons)
	return key
}

// SameConfiguration 判断两个候选项是否为同一可购买配置
// 任一方不支持定制时只比较商品与门店
func SameConfiguration(a, b models.CartLine) bool {
	if strings.TrimSpace(a.ItemID) != strings.TrimSpace(b.ItemID) {
		return false
	}
	if strings.TrimSpace(a.OutletID) != strings.TrimSpace(b.OutletID) {
		return false
	}
	if !a.Customizable() || !b.Customizable() {
		return true
	}
	ka, kb := BuildLineKey(a), BuildLineKey(b)
	if ka.HasVar != kb.HasVar || ka.Variation != kb.Variation {
		return false
	}
	return equalStringSets(ka.AddonIDs, kb.AddonIDs)
}

// SelectionMatches 判断菜单选择是否与已有购物车行相同
func SelectionMatches(selection models.MenuSelection, line models.CartLine) bool {
	return SameConfiguration(selection.ToLine(), line)
}

func addonIDSet(groups map[string]models.AddonGroup) []string {
	if len(groups) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, group := range groups {
		for _, addon := range group.Addons {
			id := addon.IdentityID()
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return ids
}

// equalStringSets 比较两个已排序去重的切片
func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
