package public

import (
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车请求
type AddCartItemRequest struct {
	ProductID uint                   `json:"product_id" binding:"required"`
	Quantity  int                    `json:"quantity"`
	Product   models.ProductSnapshot `json:"product"`
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartProductStatus 商品在购物车中的状态
type CartProductStatus struct {
	ProductID uint `json:"product_id"`
	InCart    bool `json:"in_cart"`
	Quantity  int  `json:"quantity"`
}

// GetCart 获取购物车视图；加载失败时 cart 为空并带 error
func (h *Handler) GetCart(c *gin.Context) {
	if _, err := h.Facade.Cart(c.Request.Context()); err != nil {
		requestLog(c).Warnw("cart_view_fetch_failed", "error", err)
	}
	response.Success(c, h.Facade.State())
}

// GetCartSummary 购物车汇总
func (h *Handler) GetCartSummary(c *gin.Context) {
	_, _ = h.Facade.Cart(c.Request.Context())
	response.Success(c, h.Facade.Summary())
}

// GetCartProduct 商品是否在购物车中
func (h *Handler) GetCartProduct(c *gin.Context) {
	productID, ok := getProductID(c)
	if !ok {
		return
	}
	_, _ = h.Facade.Cart(c.Request.Context())
	response.Success(c, CartProductStatus{
		ProductID: productID,
		InCart:    h.Facade.IsItemInCart(productID),
		Quantity:  h.Facade.GetItemQuantity(productID),
	})
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if _, err := h.Facade.Add(c.Request.Context(), req.ProductID, req.Quantity, req.Product); err != nil {
		respondCartError(c, err, "Failed to add item to cart")
		return
	}
	response.Success(c, h.Facade.State())
}

// UpdateCartItem 修改数量，数量 <= 0 时移除
func (h *Handler) UpdateCartItem(c *gin.Context) {
	itemID, ok := getItemID(c)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if _, err := h.Facade.UpdateQuantity(c.Request.Context(), models.ItemID(itemID), *req.Quantity); err != nil {
		respondCartError(c, err, "Failed to update cart item")
		return
	}
	response.Success(c, h.Facade.State())
}

// RemoveCartItem 移除购物车项
func (h *Handler) RemoveCartItem(c *gin.Context) {
	itemID, ok := getItemID(c)
	if !ok {
		return
	}
	if _, err := h.Facade.Remove(c.Request.Context(), models.ItemID(itemID)); err != nil {
		respondCartError(c, err, "Failed to remove item from cart")
		return
	}
	response.Success(c, h.Facade.State())
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	if _, err := h.Facade.Clear(c.Request.Context()); err != nil {
		respondCartError(c, err, "Failed to clear cart")
		return
	}
	response.Success(c, h.Facade.State())
}

// MergeCart 合并游客购物车
func (h *Handler) MergeCart(c *gin.Context) {
	if _, err := h.Facade.Merge(c.Request.Context()); err != nil {
		respondCartError(c, err, "Failed to merge cart")
		return
	}
	_, _ = h.Facade.Cart(c.Request.Context())
	response.Success(c, h.Facade.State())
}
