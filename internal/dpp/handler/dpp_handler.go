package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/weftlab/texpass/internal/dpp/repository"
	"github.com/weftlab/texpass/internal/dpp/service"
	lotrepo "github.com/weftlab/texpass/internal/lot/repository"
	"github.com/xuri/excelize/v2"
)

// DppHandler 护照处理器
type DppHandler struct {
	svc       *service.DppService
	ingestSvc *service.IngestionService
}

func NewDppHandler(svc *service.DppService, ingestSvc *service.IngestionService) *DppHandler {
	return &DppHandler{svc: svc, ingestSvc: ingestSvc}
}

// List 护照列表
// GET /api/v1/dpps?search=xxx&status=xxx
func (h *DppHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search": c.Query("search"),
		"status": c.Query("status"),
	}

	items, total, err := h.svc.ListDpps(c.Request.Context(), GetTenantID(c), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取护照列表失败: "+err.Error())
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

// Create 创建护照
// POST /api/v1/dpps
func (h *DppHandler) Create(c *gin.Context) {
	var req service.CreateDppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	dpp, err := h.svc.CreateDpp(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		InternalError(c, "创建护照失败: "+err.Error())
		return
	}
	Created(c, dpp)
}

// Update 更新护照（仅draft）
// PUT /api/v1/dpps/:id
func (h *DppHandler) Update(c *gin.Context) {
	var req service.UpdateDppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	dpp, err := h.svc.UpdateDpp(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "护照不存在")
			return
		}
		if errors.Is(err, service.ErrNotDraft) {
			BadRequest(c, "仅draft状态的护照可编辑")
			return
		}
		InternalError(c, "更新护照失败: "+err.Error())
		return
	}
	Success(c, dpp)
}

// Publish 发布护照（仅draft）
// POST /api/v1/dpps/:id/publish
func (h *DppHandler) Publish(c *gin.Context) {
	dpp, err := h.svc.PublishDpp(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "护照不存在")
			return
		}
		if errors.Is(err, service.ErrNotDraft) {
			BadRequest(c, "仅draft状态的护照可发布")
			return
		}
		InternalError(c, "发布护照失败: "+err.Error())
		return
	}
	Success(c, dpp)
}

// Archive 归档护照
// POST /api/v1/dpps/:id/archive
func (h *DppHandler) Archive(c *gin.Context) {
	dpp, err := h.svc.ArchiveDpp(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "护照不存在")
			return
		}
		InternalError(c, "归档护照失败: "+err.Error())
		return
	}
	Success(c, dpp)
}

// IngestReq 摄取请求体
type IngestReq struct {
	LotID string `json:"lot_id" binding:"required"`
}

// Ingest 将批次数据合并进护照
// POST /api/v1/dpps/:id/ingest
func (h *DppHandler) Ingest(c *gin.Context) {
	var req IngestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	dpp, warnings, err := h.ingestSvc.IngestLot(c.Request.Context(), GetTenantID(c), c.Param("id"), req.LotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, lotrepo.ErrNotFound) {
			NotFound(c, "护照或批次不存在: "+err.Error())
			return
		}
		InternalError(c, "摄取批次数据失败: "+err.Error())
		return
	}

	Success(c, gin.H{
		"dpp":      dpp,
		"warnings": warnings,
	})
}

// Restricted 受限视图（需内部授权，路由层做角色守卫，不做状态门控）
// GET /api/v1/dpps/:id
func (h *DppHandler) Restricted(c *gin.Context) {
	userID := GetUserID(c)
	meta := service.AccessMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		UserID:    &userID,
		Endpoint:  c.FullPath(),
	}

	dpp, err := h.svc.RestrictedView(c.Request.Context(), GetTenantID(c), c.Param("id"), meta)
	if err != nil {
		NotFound(c, "护照不存在")
		return
	}
	Success(c, dpp)
}

// Public 公共视图（无需认证，仅published可见）
// GET /public/dpps/:id
func (h *DppHandler) Public(c *gin.Context) {
	meta := service.AccessMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Endpoint:  c.FullPath(),
	}

	doc, err := h.svc.PublicView(c.Request.Context(), c.Param("id"), meta)
	if err != nil {
		NotFound(c, "护照不存在")
		return
	}
	Success(c, doc)
}

// AppendEvent 追加生命周期事件
// POST /api/v1/dpps/:id/events
func (h *DppHandler) AppendEvent(c *gin.Context) {
	var req service.AppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	event, err := h.svc.AppendEvent(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "护照不存在")
			return
		}
		InternalError(c, "追加事件失败: "+err.Error())
		return
	}
	Created(c, event)
}

// ListEvents 护照事件时间线
// GET /api/v1/dpps/:id/events
func (h *DppHandler) ListEvents(c *gin.Context) {
	events, err := h.svc.ListEvents(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		NotFound(c, "护照不存在")
		return
	}
	Success(c, events)
}

// ListAccessLogs 护照访问日志
// GET /api/v1/dpps/:id/access-logs
func (h *DppHandler) ListAccessLogs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListAccessLogs(c.Request.Context(), GetTenantID(c), c.Param("id"), page, pageSize)
	if err != nil {
		NotFound(c, "护照不存在")
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

// ExportAccessLogs 导出护照访问日志为Excel
// GET /api/v1/dpps/:id/access-logs/export
func (h *DppHandler) ExportAccessLogs(c *gin.Context) {
	dppID := c.Param("id")
	logs, err := h.svc.AllAccessLogs(c.Request.Context(), GetTenantID(c), dppID)
	if err != nil {
		NotFound(c, "护照不存在")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "AccessLogs"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Timestamp", "View", "IP", "User Agent", "User ID", "Endpoint"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, log := range logs {
		userID := ""
		if log.UserID != nil {
			userID = *log.UserID
		}
		values := []interface{}{
			log.Timestamp.Format("2006-01-02 15:04:05"),
			log.View,
			log.IP,
			log.UserAgent,
			userID,
			log.Endpoint,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	filename := fmt.Sprintf("dpp-%s-access-logs.xlsx", dppID)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
