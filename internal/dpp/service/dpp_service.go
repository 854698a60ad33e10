package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/weftlab/texpass/internal/dpp/entity"
	"github.com/weftlab/texpass/internal/dpp/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 错误定义
var (
	// ErrNotDraft 仅draft状态的护照可编辑/发布
	ErrNotDraft = errors.New("dpp is not in draft status")
)

const publicCacheTTL = 5 * time.Minute

// DppService 护照生命周期服务。draft → published → archived，archived为终态。
// 公共读仅暴露published护照，读取一律落访问审计。
type DppService struct {
	db            *gorm.DB
	repo          *repository.DppRepository
	eventRepo     *repository.EventRepository
	accessLogRepo *repository.AccessLogRepository
	rdb           *redis.Client
	logger        *zap.Logger
}

// NewDppService 创建护照服务
func NewDppService(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *DppService {
	return &DppService{
		db:            db,
		repo:          repos.Dpp,
		eventRepo:     repos.Event,
		accessLogRepo: repos.AccessLog,
		rdb:           rdb,
		logger:        logger,
	}
}

// ListDpps 获取护照列表
func (s *DppService) ListDpps(ctx context.Context, tenantID string, page, pageSize int, filters map[string]string) ([]entity.Dpp, int64, error) {
	return s.repo.FindAll(ctx, tenantID, page, pageSize, filters)
}

// CreateDppRequest 创建护照请求
type CreateDppRequest struct {
	ProductSku        string       `json:"product_sku"`
	GTIN              string       `json:"gtin"`
	Brand             string       `json:"brand"`
	StyleRef          string       `json:"style_ref" binding:"required"`
	SchemaVersion     string       `json:"schema_version"`
	PublicPayload     entity.JSONB `json:"public_payload"`
	RestrictedPayload entity.JSONB `json:"restricted_payload"`
}

// CreateDpp 创建护照（始终draft起步）并追加created事件
func (s *DppService) CreateDpp(ctx context.Context, tenantID, userID string, req *CreateDppRequest) (*entity.Dpp, error) {
	schemaVersion := req.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = "1.0"
	}

	dpp := &entity.Dpp{
		ID:                uuid.New().String()[:32],
		TenantID:          tenantID,
		SchemaVersion:     schemaVersion,
		ProductSku:        req.ProductSku,
		GTIN:              req.GTIN,
		Brand:             req.Brand,
		StyleRef:          req.StyleRef,
		PublicPayload:     req.PublicPayload,
		RestrictedPayload: req.RestrictedPayload,
		Status:            entity.DppStatusDraft,
		CreatedBy:         userID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dpp).Error; err != nil {
			return fmt.Errorf("创建护照失败: %w", err)
		}
		event := &entity.DppEvent{
			ID:        uuid.New().String()[:32],
			DppID:     dpp.ID,
			Type:      entity.DppEventCreated,
			Actor:     userID,
			Timestamp: time.Now(),
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}
	return dpp, nil
}

// UpdateDppRequest 更新护照请求
type UpdateDppRequest struct {
	ProductSku        *string      `json:"product_sku"`
	GTIN              *string      `json:"gtin"`
	Brand             *string      `json:"brand"`
	StyleRef          *string      `json:"style_ref"`
	PublicPayload     entity.JSONB `json:"public_payload"`
	RestrictedPayload entity.JSONB `json:"restricted_payload"`
}

// UpdateDpp 更新护照，仅draft可编辑。
// 写入带 status=draft 条件，与并发publish竞争时不会把已发布护照改回草稿内容
func (s *DppService) UpdateDpp(ctx context.Context, tenantID, id string, req *UpdateDppRequest) (*entity.Dpp, error) {
	dpp, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if dpp.Status != entity.DppStatusDraft {
		return nil, ErrNotDraft
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if req.ProductSku != nil {
		dpp.ProductSku = *req.ProductSku
		updates["product_sku"] = *req.ProductSku
	}
	if req.GTIN != nil {
		dpp.GTIN = *req.GTIN
		updates["gtin"] = *req.GTIN
	}
	if req.Brand != nil {
		dpp.Brand = *req.Brand
		updates["brand"] = *req.Brand
	}
	if req.StyleRef != nil {
		dpp.StyleRef = *req.StyleRef
		updates["style_ref"] = *req.StyleRef
	}
	if req.PublicPayload != nil {
		dpp.PublicPayload = req.PublicPayload
		updates["public_payload"] = req.PublicPayload
	}
	if req.RestrictedPayload != nil {
		dpp.RestrictedPayload = req.RestrictedPayload
		updates["restricted_payload"] = req.RestrictedPayload
	}

	res := s.db.WithContext(ctx).Model(&entity.Dpp{}).
		Where("id = ? AND tenant_id = ? AND status = ?", dpp.ID, tenantID, entity.DppStatusDraft).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotDraft
	}
	return dpp, nil
}

// PublishDpp 发布护照，仅draft可发布，同事务追加published事件
func (s *DppService) PublishDpp(ctx context.Context, tenantID, id, userID string) (*entity.Dpp, error) {
	dpp, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if dpp.Status != entity.DppStatusDraft {
		return nil, ErrNotDraft
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Dpp{}).
			Where("id = ? AND status = ?", dpp.ID, entity.DppStatusDraft).
			Updates(map[string]interface{}{
				"status":       entity.DppStatusPublished,
				"published_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotDraft
		}
		event := &entity.DppEvent{
			ID:        uuid.New().String()[:32],
			DppID:     dpp.ID,
			Type:      entity.DppEventPublished,
			Actor:     userID,
			Timestamp: now,
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return nil, err
	}

	dpp.Status = entity.DppStatusPublished
	dpp.PublishedAt = &now
	s.invalidatePublicCache(ctx, dpp.ID)
	return dpp, nil
}

// ArchiveDpp 归档护照。当前设计允许从任意状态归档
func (s *DppService) ArchiveDpp(ctx context.Context, tenantID, id string) (*entity.Dpp, error) {
	dpp, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	dpp.Status = entity.DppStatusArchived
	if err := s.repo.Update(ctx, dpp); err != nil {
		return nil, err
	}
	s.invalidatePublicCache(ctx, dpp.ID)
	return dpp, nil
}

// AppendEventRequest 追加事件请求
type AppendEventRequest struct {
	Type     string       `json:"type" binding:"required"`
	Location string       `json:"location"`
	Data     entity.JSONB `json:"data"`
}

// AppendEvent 追加生命周期事件
func (s *DppService) AppendEvent(ctx context.Context, tenantID, dppID, actor string, req *AppendEventRequest) (*entity.DppEvent, error) {
	if _, err := s.repo.FindByID(ctx, tenantID, dppID); err != nil {
		return nil, err
	}

	event := &entity.DppEvent{
		ID:        uuid.New().String()[:32],
		DppID:     dppID,
		Type:      req.Type,
		Actor:     actor,
		Location:  req.Location,
		Timestamp: time.Now(),
		Data:      req.Data,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("追加事件失败: %w", err)
	}
	return event, nil
}

// ListEvents 获取护照事件时间线
func (s *DppService) ListEvents(ctx context.Context, tenantID, dppID string) ([]entity.DppEvent, error) {
	if _, err := s.repo.FindByID(ctx, tenantID, dppID); err != nil {
		return nil, err
	}
	return s.eventRepo.FindByDpp(ctx, dppID)
}

// AccessMeta 访问审计上下文
type AccessMeta struct {
	IP        string
	UserAgent string
	UserID    *string
	Endpoint  string
}

// PublicView 公共读：仅published护照可见，返回publicPayload与标识字段的合并文档。
// draft/archived对公共调用方一律NotFound，不得泄露。
func (s *DppService) PublicView(ctx context.Context, id string, meta AccessMeta) (map[string]interface{}, error) {
	if doc := s.cachedPublicView(ctx, id); doc != nil {
		s.logAccess(ctx, id, entity.DppViewPublic, meta)
		return doc, nil
	}

	dpp, err := s.repo.FindPublished(ctx, id)
	if err != nil {
		return nil, err
	}

	doc := map[string]interface{}{
		"id":             dpp.ID,
		"schema_version": dpp.SchemaVersion,
		"product_sku":    dpp.ProductSku,
		"gtin":           dpp.GTIN,
		"brand":          dpp.Brand,
		"style_ref":      dpp.StyleRef,
		"published_at":   dpp.PublishedAt,
	}
	for k, v := range dpp.PublicPayload {
		doc[k] = v
	}

	s.cachePublicView(ctx, id, doc)
	s.logAccess(ctx, id, entity.DppViewPublic, meta)
	return doc, nil
}

// RestrictedView 内部读：不做状态门控，draft的受限视图对授权内部用户同样可读。
// 角色校验由调用方（路由守卫）完成。
func (s *DppService) RestrictedView(ctx context.Context, tenantID, id string, meta AccessMeta) (*entity.Dpp, error) {
	dpp, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.logAccess(ctx, id, entity.DppViewRestricted, meta)
	return dpp, nil
}

// ListAccessLogs 获取护照访问日志
func (s *DppService) ListAccessLogs(ctx context.Context, tenantID, dppID string, page, pageSize int) ([]entity.DppAccessLog, int64, error) {
	if _, err := s.repo.FindByID(ctx, tenantID, dppID); err != nil {
		return nil, 0, err
	}
	return s.accessLogRepo.FindByDpp(ctx, dppID, page, pageSize)
}

// AllAccessLogs 获取护照全部访问日志（导出用）
func (s *DppService) AllAccessLogs(ctx context.Context, tenantID, dppID string) ([]entity.DppAccessLog, error) {
	if _, err := s.repo.FindByID(ctx, tenantID, dppID); err != nil {
		return nil, err
	}
	return s.accessLogRepo.FindAllByDpp(ctx, dppID)
}

// logAccess 落访问审计。尽力而为：写入失败只记日志，绝不影响读取本身
func (s *DppService) logAccess(ctx context.Context, dppID, view string, meta AccessMeta) {
	log := &entity.DppAccessLog{
		ID:        uuid.New().String()[:32],
		DppID:     dppID,
		View:      view,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		UserID:    meta.UserID,
		Endpoint:  meta.Endpoint,
		Timestamp: time.Now(),
	}
	if err := s.accessLogRepo.Create(ctx, log); err != nil {
		if s.logger != nil {
			s.logger.Warn("dpp access log write failed",
				zap.String("dpp_id", dppID),
				zap.String("view", view),
				zap.Error(err))
		}
	}
}

func publicCacheKey(id string) string {
	return "dpp:public:" + id
}

func (s *DppService) cachedPublicView(ctx context.Context, id string) map[string]interface{} {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, publicCacheKey(id)).Bytes()
	if err != nil {
		return nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}

func (s *DppService) cachePublicView(ctx context.Context, id string, doc map[string]interface{}) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, publicCacheKey(id), data, publicCacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("dpp public cache set failed", zap.String("dpp_id", id), zap.Error(err))
	}
}

func (s *DppService) invalidatePublicCache(ctx context.Context, id string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, publicCacheKey(id)).Err(); err != nil && s.logger != nil {
		s.logger.Warn("dpp public cache invalidate failed", zap.String("dpp_id", id), zap.Error(err))
	}
}
