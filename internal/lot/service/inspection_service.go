package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/shared/storage"
	"gorm.io/gorm"
)

// InspectionService 检验服务
type InspectionService struct {
	db      *gorm.DB
	repo    *repository.InspectionRepository
	lotRepo *repository.LotRepository
	storage *storage.ObjectStorage
}

// NewInspectionService 创建检验服务
func NewInspectionService(db *gorm.DB, repo *repository.InspectionRepository, lotRepo *repository.LotRepository, store *storage.ObjectStorage) *InspectionService {
	return &InspectionService{db: db, repo: repo, lotRepo: lotRepo, storage: store}
}

// ListInspections 获取批次检验列表
func (s *InspectionService) ListInspections(ctx context.Context, tenantID, lotID string) ([]entity.Inspection, error) {
	if _, err := s.lotRepo.FindByID(ctx, tenantID, lotID); err != nil {
		return nil, err
	}
	return s.repo.FindByLot(ctx, tenantID, lotID)
}

// GetInspection 获取检验详情
func (s *InspectionService) GetInspection(ctx context.Context, tenantID, id string) (*entity.Inspection, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// CreateInspectionRequest 创建检验请求
type CreateInspectionRequest struct {
	SampleQty int    `json:"sample_qty"`
	Notes     string `json:"notes"`
}

// CreateInspection 为批次创建检验任务
func (s *InspectionService) CreateInspection(ctx context.Context, tenantID, lotID, userID string, req *CreateInspectionRequest) (*entity.Inspection, error) {
	lot, err := s.lotRepo.FindByID(ctx, tenantID, lotID)
	if err != nil {
		return nil, err
	}

	inspection := &entity.Inspection{
		ID:        uuid.New().String()[:32],
		TenantID:  tenantID,
		LotID:     lot.ID,
		SampleQty: req.SampleQty,
		Status:    entity.InspectionStatusPending,
		Notes:     req.Notes,
	}
	if err := s.repo.Create(ctx, inspection); err != nil {
		return nil, fmt.Errorf("创建检验失败: %w", err)
	}
	return inspection, nil
}

// DefectRecord 缺陷记录
type DefectRecord struct {
	DefectType string `json:"defect_type" binding:"required"`
	Severity   string `json:"severity"`
	Quantity   int    `json:"quantity"`
	Notes      string `json:"notes"`
}

// CompleteInspectionRequest 完成检验请求
type CompleteInspectionRequest struct {
	Result      string         `json:"result" binding:"required"` // passed/failed/conditional
	PassedQty   int            `json:"passed_qty"`
	RejectedQty int            `json:"rejected_qty"`
	Defects     []DefectRecord `json:"defects"`
	Notes       string         `json:"notes"`
}

// CompleteInspection 完成检验：记录结果与缺陷，回写批次不良率。
// 检验更新、缺陷写入与不良率回写在同一事务内，任一失败整体回滚。
func (s *InspectionService) CompleteInspection(ctx context.Context, tenantID, id, userID string, req *CompleteInspectionRequest) (*entity.Inspection, error) {
	inspection, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inspection.Status = entity.InspectionStatusCompleted
	inspection.Result = req.Result
	inspection.PassedQty = req.PassedQty
	inspection.RejectedQty = req.RejectedQty
	inspection.InspectorID = &userID
	inspection.InspectedAt = &now
	if req.Notes != "" {
		inspection.Notes = req.Notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(inspection).Error; err != nil {
			return err
		}

		for _, d := range req.Defects {
			qty := d.Quantity
			if qty <= 0 {
				qty = 1
			}
			defect := &entity.InspectionDefect{
				ID:           uuid.New().String()[:32],
				InspectionID: inspection.ID,
				DefectType:   d.DefectType,
				Severity:     d.Severity,
				Quantity:     qty,
				Notes:        d.Notes,
			}
			if err := tx.Create(defect).Error; err != nil {
				return fmt.Errorf("写入缺陷记录失败: %w", err)
			}
		}

		// 回写不良率（检验数量为0时跳过）
		total := req.PassedQty + req.RejectedQty
		if total > 0 {
			rate := float64(req.RejectedQty) / float64(total) * 100
			if err := tx.Model(&entity.Lot{}).
				Where("id = ? AND tenant_id = ?", inspection.LotID, tenantID).
				Update("defect_rate", rate).Error; err != nil {
				return fmt.Errorf("回写不良率失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, tenantID, id)
}

// UploadReport 上传检验报告到对象存储并记录存储key
func (s *InspectionService) UploadReport(ctx context.Context, tenantID, id, fileName string, reader io.Reader, size int64, contentType string) (*entity.Inspection, error) {
	inspection, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, fmt.Errorf("对象存储未配置")
	}

	objectKey := fmt.Sprintf("inspections/%s/%s/%s", tenantID, id, fileName)
	if err := s.storage.Upload(ctx, objectKey, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("上传检验报告失败: %w", err)
	}

	inspection.ReportURL = objectKey
	if err := s.repo.Update(ctx, inspection); err != nil {
		return nil, err
	}
	return inspection, nil
}
