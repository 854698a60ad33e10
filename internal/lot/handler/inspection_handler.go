package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/lot/service"
)

// InspectionHandler 检验处理器
type InspectionHandler struct {
	svc *service.InspectionService
}

func NewInspectionHandler(svc *service.InspectionService) *InspectionHandler {
	return &InspectionHandler{svc: svc}
}

// List 批次检验列表
// GET /api/v1/lots/:id/inspections
func (h *InspectionHandler) List(c *gin.Context) {
	items, err := h.svc.ListInspections(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次不存在")
			return
		}
		InternalError(c, "获取检验列表失败: "+err.Error())
		return
	}
	Success(c, items)
}

// Get 检验详情
// GET /api/v1/inspections/:id
func (h *InspectionHandler) Get(c *gin.Context) {
	inspection, err := h.svc.GetInspection(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		NotFound(c, "检验记录不存在")
		return
	}
	Success(c, inspection)
}

// Create 为批次创建检验任务
// POST /api/v1/lots/:id/inspections
func (h *InspectionHandler) Create(c *gin.Context) {
	var req service.CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, err := h.svc.CreateInspection(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次不存在")
			return
		}
		InternalError(c, "创建检验失败: "+err.Error())
		return
	}
	Created(c, inspection)
}

// Complete 完成检验
// POST /api/v1/inspections/:id/complete
func (h *InspectionHandler) Complete(c *gin.Context) {
	var req service.CompleteInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	inspection, err := h.svc.CompleteInspection(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "检验记录不存在")
			return
		}
		InternalError(c, "完成检验失败: "+err.Error())
		return
	}
	Success(c, inspection)
}

// UploadReport 上传检验报告
// POST /api/v1/inspections/:id/report
func (h *InspectionHandler) UploadReport(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少文件: "+err.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	inspection, err := h.svc.UploadReport(c.Request.Context(), GetTenantID(c), c.Param("id"),
		header.Filename, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "检验记录不存在")
			return
		}
		InternalError(c, "上传检验报告失败: "+err.Error())
		return
	}
	Success(c, inspection)
}
