package models

// GuestSyncItem 游客购物车校验请求行
type GuestSyncItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// GuestSyncRequest 游客购物车校验请求
type GuestSyncRequest struct {
	SessionID string          `json:"session_id"`
	Items     []GuestSyncItem `json:"items"`
}

// GuestSyncResult 单个商品的实时状态
type GuestSyncResult struct {
	ProductID     uint   `json:"product_id"`
	Available     bool   `json:"available"`
	Stock         int    `json:"stock"`
	Price         *Money `json:"price,omitempty"`
	DiscountPrice *Money `json:"discount_price,omitempty"`
}

// GuestSyncResponse 游客购物车校验响应
type GuestSyncResponse struct {
	Items []GuestSyncResult `json:"items"`
}

// MergeItem 合并请求行
type MergeItem struct {
	ProductID  uint  `json:"product_id"`
	Quantity   int   `json:"quantity"`
	PriceAtAdd Money `json:"price_at_add"`
}

// MergeRequest 游客购物车合并请求
type MergeRequest struct {
	SessionID string      `json:"session_id"`
	Items     []MergeItem `json:"items"`
}
