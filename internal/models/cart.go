package models

// Cart 购物车聚合
type Cart struct {
	Items       []CartItem `json:"items"`
	ShippingFee Money      `json:"shipping_fee"`
	TotalAmount Money      `json:"total_amount"`
}

// EmptyCart 返回空购物车
func EmptyCart() *Cart {
	return &Cart{
		Items:       []CartItem{},
		ShippingFee: ZeroMoney(),
		TotalAmount: ZeroMoney(),
	}
}

// Clone 深拷贝购物车，nil 返回 nil
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := &Cart{
		ShippingFee: c.ShippingFee,
		TotalAmount: c.TotalAmount,
	}
	if c.Items != nil {
		out.Items = make([]CartItem, 0, len(c.Items))
		for _, item := range c.Items {
			out.Items = append(out.Items, item.Clone())
		}
	}
	return out
}

// Subtotal Σ(price_at_add × quantity)
func (c *Cart) Subtotal() Money {
	total := ZeroMoney()
	if c == nil {
		return total
	}
	for _, item := range c.Items {
		total = total.Add(item.LineSubtotal())
	}
	return total
}

// Recalculate 按行小计重算 total_amount
func (c *Cart) Recalculate() {
	if c == nil {
		return
	}
	if c.Items == nil {
		c.Items = []CartItem{}
	}
	c.TotalAmount = c.Subtotal()
}

// FindByID 按行 ID 查找，返回下标
func (c *Cart) FindByID(id ItemID) int {
	if c == nil {
		return -1
	}
	for idx, item := range c.Items {
		if item.ID == id {
			return idx
		}
	}
	return -1
}

// FindByProduct 按商品 ID 查找，返回下标
func (c *Cart) FindByProduct(productID uint) int {
	if c == nil {
		return -1
	}
	for idx, item := range c.Items {
		if item.Product.ID == productID {
			return idx
		}
	}
	return -1
}

// TotalQuantity 商品总件数
func (c *Cart) TotalQuantity() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// CartSummary 购物车汇总
type CartSummary struct {
	TotalItems  int   `json:"total_items"`
	Subtotal    Money `json:"subtotal"`
	ShippingFee Money `json:"shipping_fee"`
	Total       Money `json:"total"`
}

// Summarize 从当前购物车推导汇总，nil 视为空购物车
func Summarize(c *Cart) CartSummary {
	if c == nil {
		return CartSummary{
			Subtotal:    ZeroMoney(),
			ShippingFee: ZeroMoney(),
			Total:       ZeroMoney(),
		}
	}
	subtotal := c.Subtotal()
	return CartSummary{
		TotalItems:  c.TotalQuantity(),
		Subtotal:    subtotal,
		ShippingFee: c.ShippingFee,
		Total:       subtotal.Add(c.ShippingFee),
	}
}
