package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/weftlab/texpass/internal/lot/service"
)

// CatalogHandler 工序目录处理器
type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ListRoles 工序目录
// GET /api/v1/supply-chain-roles
func (h *CatalogHandler) ListRoles(c *gin.Context) {
	roles, err := h.svc.ListRoles(c.Request.Context())
	if err != nil {
		InternalError(c, "获取工序目录失败: "+err.Error())
		return
	}
	Success(c, roles)
}
