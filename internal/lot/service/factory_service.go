package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/lot/repository"
)

// FactoryService 工厂服务
type FactoryService struct {
	repo *repository.FactoryRepository
}

// NewFactoryService 创建工厂服务
func NewFactoryService(repo *repository.FactoryRepository) *FactoryService {
	return &FactoryService{repo: repo}
}

// ListFactories 获取工厂列表
func (s *FactoryService) ListFactories(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Factory, int64, error) {
	return s.repo.FindAll(ctx, tenantID, page, pageSize, filters)
}

// GetFactory 获取工厂详情
func (s *FactoryService) GetFactory(ctx context.Context, tenantID, id string) (*entity.Factory, error) {
	return s.repo.FindByID(ctx, tenantID, id)
}

// CreateFactoryRequest 创建工厂请求
type CreateFactoryRequest struct {
	Name           string             `json:"name" binding:"required"`
	Country        string             `json:"country"`
	City           string             `json:"city"`
	Address        string             `json:"address"`
	ContactName    string             `json:"contact_name"`
	ContactEmail   string             `json:"contact_email"`
	ContactPhone   string             `json:"contact_phone"`
	Certifications *entity.JSONBArray `json:"certifications"`
	Notes          string             `json:"notes"`
}

// CreateFactory 创建工厂
func (s *FactoryService) CreateFactory(ctx context.Context, tenantID, userID string, req *CreateFactoryRequest) (*entity.Factory, error) {
	factory := &entity.Factory{
		ID:             uuid.New().String()[:32],
		TenantID:       tenantID,
		Name:           req.Name,
		Country:        req.Country,
		City:           req.City,
		Address:        req.Address,
		ContactName:    req.ContactName,
		ContactEmail:   req.ContactEmail,
		ContactPhone:   req.ContactPhone,
		Certifications: req.Certifications,
		Status:         entity.FactoryStatusActive,
		CreatedBy:      userID,
		Notes:          req.Notes,
	}
	if err := s.repo.Create(ctx, factory); err != nil {
		return nil, fmt.Errorf("创建工厂失败: %w", err)
	}
	return factory, nil
}

// UpdateFactoryRequest 更新工厂请求
type UpdateFactoryRequest struct {
	Name           *string            `json:"name"`
	Country        *string            `json:"country"`
	City           *string            `json:"city"`
	Address        *string            `json:"address"`
	ContactName    *string            `json:"contact_name"`
	ContactEmail   *string            `json:"contact_email"`
	ContactPhone   *string            `json:"contact_phone"`
	Certifications *entity.JSONBArray `json:"certifications"`
	Status         *string            `json:"status"`
	Notes          *string            `json:"notes"`
}

// UpdateFactory 更新工厂
func (s *FactoryService) UpdateFactory(ctx context.Context, tenantID, id string, req *UpdateFactoryRequest) (*entity.Factory, error) {
	factory, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		factory.Name = *req.Name
	}
	if req.Country != nil {
		factory.Country = *req.Country
	}
	if req.City != nil {
		factory.City = *req.City
	}
	if req.Address != nil {
		factory.Address = *req.Address
	}
	if req.ContactName != nil {
		factory.ContactName = *req.ContactName
	}
	if req.ContactEmail != nil {
		factory.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		factory.ContactPhone = *req.ContactPhone
	}
	if req.Certifications != nil {
		factory.Certifications = req.Certifications
	}
	if req.Status != nil {
		factory.Status = *req.Status
	}
	if req.Notes != nil {
		factory.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, factory); err != nil {
		return nil, err
	}
	return factory, nil
}

// DeleteFactory 删除工厂
func (s *FactoryService) DeleteFactory(ctx context.Context, tenantID, id string) error {
	if _, err := s.repo.FindByID(ctx, tenantID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, tenantID, id)
}
