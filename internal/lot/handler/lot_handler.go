package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/lot/service"
)

// LotHandler 批次处理器（含链路推进与审批）
type LotHandler struct {
	svc         *service.LotService
	chainSvc    *service.ChainService
	approvalSvc *service.ApprovalService
}

func NewLotHandler(svc *service.LotService, chainSvc *service.ChainService, approvalSvc *service.ApprovalService) *LotHandler {
	return &LotHandler{svc: svc, chainSvc: chainSvc, approvalSvc: approvalSvc}
}

// List 批次列表
// GET /api/v1/lots?search=xxx&status=xxx
func (h *LotHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search": c.Query("search"),
		"status": c.Query("status"),
	}

	items, total, err := h.svc.ListLots(c.Request.Context(), GetTenantID(c), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取批次列表失败: "+err.Error())
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

// Get 批次详情（含供应商指派与工序）
// GET /api/v1/lots/:id
func (h *LotHandler) Get(c *gin.Context) {
	lot, err := h.svc.GetLot(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		NotFound(c, "批次不存在")
		return
	}
	Success(c, lot)
}

// Create 创建批次
// POST /api/v1/lots
func (h *LotHandler) Create(c *gin.Context) {
	var req service.CreateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	lot, err := h.svc.CreateLot(c.Request.Context(), GetTenantID(c), GetUserID(c), &req)
	if err != nil {
		InternalError(c, "创建批次失败: "+err.Error())
		return
	}
	Created(c, lot)
}

// Update 更新批次
// PUT /api/v1/lots/:id
func (h *LotHandler) Update(c *gin.Context) {
	var req service.UpdateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	lot, err := h.svc.UpdateLot(c.Request.Context(), GetTenantID(c), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次不存在")
			return
		}
		InternalError(c, "更新批次失败: "+err.Error())
		return
	}
	Success(c, lot)
}

// Delete 删除批次
// DELETE /api/v1/lots/:id
func (h *LotHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteLot(c.Request.Context(), GetTenantID(c), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次不存在")
			return
		}
		InternalError(c, "删除批次失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// AssignSuppliers 重写批次供应商指派并初始化链路
// PUT /api/v1/lots/:id/suppliers
func (h *LotHandler) AssignSuppliers(c *gin.Context) {
	var reqs []service.AssignSupplierRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	lot, err := h.svc.AssignSuppliers(c.Request.Context(), GetTenantID(c), c.Param("id"), reqs)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次或关联记录不存在: "+err.Error())
			return
		}
		if errors.Is(err, service.ErrDuplicateRole) {
			BadRequest(c, "指派无效: "+err.Error())
			return
		}
		InternalError(c, "指派供应商失败: "+err.Error())
		return
	}
	Success(c, lot)
}

// GetChain 批次链路视图（供应商指派 + 当前工序）
// GET /api/v1/lots/:id/chain
func (h *LotHandler) GetChain(c *gin.Context) {
	lot, err := h.svc.GetLot(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		NotFound(c, "批次不存在")
		return
	}

	current, err := h.chainSvc.CurrentRole(c.Request.Context(), GetTenantID(c), lot.ID)
	if err != nil {
		InternalError(c, "获取当前工序失败: "+err.Error())
		return
	}

	Success(c, gin.H{
		"lot_id":       lot.ID,
		"status":       lot.Status,
		"suppliers":    lot.Suppliers,
		"current_role": current,
	})
}

// AdvanceChain 推进批次链路
// POST /api/v1/lots/:id/chain/advance
func (h *LotHandler) AdvanceChain(c *gin.Context) {
	result, err := h.chainSvc.Advance(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次不存在")
			return
		}
		if errors.Is(err, service.ErrConflict) {
			Conflict(c, "链路正在被并发推进，请重试")
			return
		}
		InternalError(c, "推进链路失败: "+err.Error())
		return
	}
	Success(c, result)
}

// ApproveReq 审批请求体
type ApproveReq struct {
	Note string `json:"note"`
}

// Approve 批准批次
// POST /api/v1/lots/:id/approve
func (h *LotHandler) Approve(c *gin.Context) {
	var req ApproveReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	approval, err := h.approvalSvc.Approve(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), req.Note)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次不存在")
			return
		}
		InternalError(c, "审批失败: "+err.Error())
		return
	}
	Success(c, approval)
}

// Reject 驳回批次
// POST /api/v1/lots/:id/reject
func (h *LotHandler) Reject(c *gin.Context) {
	var req ApproveReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	approval, err := h.approvalSvc.Reject(c.Request.Context(), GetTenantID(c), c.Param("id"), GetUserID(c), req.Note)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			NotFound(c, "批次不存在")
			return
		}
		InternalError(c, "驳回失败: "+err.Error())
		return
	}
	Success(c, approval)
}

// ListApprovals 批次审批历史
// GET /api/v1/lots/:id/approvals
func (h *LotHandler) ListApprovals(c *gin.Context) {
	items, err := h.approvalSvc.ListApprovals(c.Request.Context(), GetTenantID(c), c.Param("id"))
	if err != nil {
		InternalError(c, "获取审批历史失败: "+err.Error())
		return
	}
	Success(c, items)
}
