package public

import (
	"github.com/dujiao-next/storefront/internal/cartquery"
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

func drawerPayload(state cartquery.DrawerState) gin.H {
	return gin.H{"drawer": state}
}

// GetDrawer 抽屉状态
func (h *Handler) GetDrawer(c *gin.Context) {
	response.Success(c, drawerPayload(h.Facade.Drawer()))
}

// OpenDrawer 打开抽屉
func (h *Handler) OpenDrawer(c *gin.Context) {
	response.Success(c, drawerPayload(h.Facade.OpenDrawer()))
}

// CloseDrawer 关闭抽屉
func (h *Handler) CloseDrawer(c *gin.Context) {
	response.Success(c, drawerPayload(h.Facade.CloseDrawer()))
}

// ToggleDrawer 切换抽屉
func (h *Handler) ToggleDrawer(c *gin.Context) {
	response.Success(c, drawerPayload(h.Facade.ToggleDrawer()))
}
