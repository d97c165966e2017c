package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ItemID 购物车行 ID（服务端为数字，游客购物车为本地生成的字符串）
type ItemID string

// UnmarshalJSON 兼容数字与字符串两种 ID
func (id *ItemID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*id = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return err
	}
	*id = ItemID(raw)
	return nil
}

// String 返回 ID 字符串
func (id ItemID) String() string {
	return string(id)
}

// ProductSnapshot 加入购物车时的商品快照
type ProductSnapshot struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Price         Money  `json:"price"`
	DiscountPrice *Money `json:"discount_price,omitempty"`
	Image         string `json:"image,omitempty"`
	Stock         int    `json:"stock"`
	Category      string `json:"category,omitempty"`
}

// UnitPrice 成交单价：有折扣价取折扣价，否则取原价
func (p ProductSnapshot) UnitPrice() Money {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() {
		return *p.DiscountPrice
	}
	return p.Price
}

// CartItem 购物车项
type CartItem struct {
	ID         ItemID          `json:"id"`
	Product    ProductSnapshot `json:"product"`
	Quantity   int             `json:"quantity"`
	PriceAtAdd Money           `json:"price_at_add"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LineSubtotal 行小计 = 加购单价 × 数量
func (i CartItem) LineSubtotal() Money {
	return i.PriceAtAdd.Times(i.Quantity)
}

// Clone 深拷贝购物车项
func (i CartItem) Clone() CartItem {
	out := i
	if i.Product.DiscountPrice != nil {
		discount := *i.Product.DiscountPrice
		out.Product.DiscountPrice = &discount
	}
	return out
}
