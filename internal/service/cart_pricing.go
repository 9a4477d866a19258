package service

import (
	"github.com/tiffin-next/internal/models"
)

// UnitPrice 计算行单价
// 有规格时规格价替换基础价，再叠加全部已选加料价格；中间值不取整
func UnitPrice(line models.CartLine) models.Money {
	price := line.BasePrice
	if line.Variation != nil {
		price = line.Variation.Price
	}
	for _, group := range line.Addons {
		for _, addon := range group.Addons {
			price = price.Add(addon.Price)
		}
	}
	return price
}

// LineTotal 行小计 = 单价 × 数量
func LineTotal(line models.CartLine) models.Money {
	return line.UnitPrice.MulQuantity(line.Quantity)
}

// CartTotal 购物车合计，在合计边界按最小单位取整
func CartTotal(lines []models.CartLine) models.Money {
	total := models.ZeroMoney()
	for _, line := range lines {
		total = total.Add(LineTotal(line))
	}
	return total.Rounded()
}

func hasNegativePrice(line models.CartLine) bool {
	if line.BasePrice.IsNegative() {
		return true
	}
	if line.Variation != nil && line.Variation.Price.IsNegative() {
		return true
	}
	for _, group := range line.Addons {
		for _, addon := range group.Addons {
			if addon.Price.IsNegative() {
				return true
			}
		}
	}
	return false
}
