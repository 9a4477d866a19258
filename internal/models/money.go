package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces 货币最小单位的小数位数
const MinorUnitPlaces = 2

// Money 统一金额类型
// 内部保留完整精度，只在展示与合计边界按最小单位取整
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额（不取整）
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount}
}

// NewMoneyFromString 从字符串创建金额
func NewMoneyFromString(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, err
	}
	return Money{Decimal: d}, nil
}

// MustMoney 从字符串创建金额，解析失败时 panic（仅用于常量与测试）
func MustMoney(raw string) Money {
	return Money{Decimal: decimal.RequireFromString(raw)}
}

// ZeroMoney 零金额
func ZeroMoney() Money {
	return Money{Decimal: decimal.Zero}
}

// Add 金额相加
func (m Money) Add(other Money) Money {
	return Money{Decimal: m.Decimal.Add(other.Decimal)}
}

// MulQuantity 金额乘以数量
func (m Money) MulQuantity(quantity int) Money {
	return Money{Decimal: m.Decimal.Mul(decimal.NewFromInt(int64(quantity)))}
}

// Rounded 按最小单位取整（四舍五入）
func (m Money) Rounded() Money {
	return Money{Decimal: m.Decimal.Round(MinorUnitPlaces)}
}

// Equal 判断金额是否相等（按数值比较，忽略精度表示差异）
func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

// Display 返回 2 位小数的展示文本
func (m Money) Display() string {
	return m.Decimal.StringFixed(MinorUnitPlaces)
}

// MarshalJSON 以无损字符串输出，保证快照往返不丢精度
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.String())
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	return m.Decimal.Scan(value)
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return m.Display()
}
