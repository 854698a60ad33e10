package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/lot/service"
)

// FactoryHandler 工厂处理器
type FactoryHandler struct {
	svc *service.FactoryService
}

func NewFactoryHandler(svc *service.FactoryService) *FactoryHandler {
	return &FactoryHandler{svc: svc}
}

// List 工厂列表
// GET /api/v1/factories?search=xxx&status=xxx
func (h *FactoryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search": c.Query("search"),
		"status": c.Query("status"),
	}

	items, total, err := h.svc.ListFactories(c.Request.Context(), GetTenantID(c), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取工厂列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: TotalPages(total, pageSize),
		},
	})
}

// Get 工厂详情
// GET /api/v1/factories/:id
func (h *FactoryHandler) Get(c *gin.Context) {
	factory, err := h.svc.GetFactory(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		NotFound(c, "工厂不存在")
		return
	}
	Success(c, factory)
}

// Create 创建工厂
// POST /api/v1/factories
func (h *FactoryHandler) Create(c *gin.Context) {
	var req service.CreateFactoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	factory, err := h.svc.CreateFactory(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		InternalError(c, "创建工厂失败: "+err.Error())
		return
	}
	Created(c, factory)
}

// Update 更新工厂
// PUT /api/v1/factories/:id
func (h *FactoryHandler) Update(c *gin.Context) {
	var req service.UpdateFactoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	factory, err := h.svc.UpdateFactory(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工厂不存在")
			return
		}
		InternalError(c, "更新工厂失败: "+err.Error())
		return
	}
	Success(c, factory)
}

// Delete 删除工厂
// DELETE /api/v1/factories/:id
func (h *FactoryHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteFactory(c.Request.Context(), GetTenantID(c), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "工厂不存在")
			return
		}
		InternalError(c, "删除工厂失败: "+err.Error())
		return
	}
	Success(c, nil)
}
