package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/weftlab/texpass/internal/dpp/entity"
	"github.com/weftlab/texpass/internal/dpp/repository"
	lotentity "github.com/weftlab/texpass/internal/lot/entity"
	lotrepo "github.com/weftlab/texpass/internal/lot/repository"
)

// IngestionService 护照摄取引擎。
// 将批次当前状态一次性合并进护照的双受众载荷：六条映射规则彼此独立，
// 单条缺数据只产生warning不中断其余规则；全部规则跑完后单次落库。
// 重复摄取按整体替换语义幂等。
type IngestionService struct {
	repo           *repository.DppRepository
	lotRepo        *lotrepo.LotRepository
	lotFactoryRepo *lotrepo.LotFactoryRepository
	inspectionRepo *lotrepo.InspectionRepository
}

// NewIngestionService 创建摄取引擎
func NewIngestionService(repo *repository.DppRepository, lotRepo *lotrepo.LotRepository,
	lotFactoryRepo *lotrepo.LotFactoryRepository, inspectionRepo *lotrepo.InspectionRepository) *IngestionService {
	return &IngestionService{
		repo:           repo,
		lotRepo:        lotRepo,
		lotFactoryRepo: lotFactoryRepo,
		inspectionRepo: inspectionRepo,
	}
}

// IngestLot 将批次数据合并进护照，返回更新后的护照与告警列表。
// 仅护照/批次本身缺失时报错；可选数据缺失只进warnings。
func (s *IngestionService) IngestLot(ctx context.Context, tenantID, dppID, lotID string) (*entity.Dpp, []string, error) {
	dpp, err := s.repo.FindByID(ctx, tenantID, dppID)
	if err != nil {
		return nil, nil, err
	}
	lot, err := s.lotRepo.FindByID(ctx, tenantID, lotID)
	if err != nil {
		return nil, nil, err
	}

	warnings := make([]string, 0)

	if dpp.PublicPayload == nil {
		dpp.PublicPayload = entity.JSONB{}
	}
	if dpp.RestrictedPayload == nil {
		dpp.RestrictedPayload = entity.JSONB{}
	}

	// 规则1：供应链 → restrictedPayload.supply_chain
	warnings = append(warnings, s.mapSupplyChain(ctx, tenantID, lot, dpp)...)

	// 规则2：质量 → restrictedPayload.quality.inspections
	warnings = append(warnings, s.mapQuality(ctx, tenantID, lot, dpp)...)

	// 规则3：材质 → publicPayload.materials
	if lot.MaterialComposition != nil && len(*lot.MaterialComposition) > 0 {
		dpp.PublicPayload["materials"] = []interface{}(*lot.MaterialComposition)
	} else {
		warnings = append(warnings, "lot has no material composition; materials left unchanged")
	}

	// 规则4：生产元数据 → publicPayload.production.dye_lot
	if lot.DyeLot != "" {
		production, _ := dpp.PublicPayload["production"].(map[string]interface{})
		if production == nil {
			production = map[string]interface{}{}
		}
		production["dye_lot"] = lot.DyeLot
		dpp.PublicPayload["production"] = production
	}

	// 规则5：认证 → publicPayload.certifications
	if lot.Certifications != nil && len(*lot.Certifications) > 0 {
		certs := make([]interface{}, 0, len(*lot.Certifications))
		for _, c := range *lot.Certifications {
			if m, ok := c.(map[string]interface{}); ok {
				certs = append(certs, map[string]interface{}{"type": m["type"]})
			}
		}
		dpp.PublicPayload["certifications"] = certs
	} else {
		warnings = append(warnings, "lot has no certifications")
	}

	// 规则6：自由元数据 → publicPayload.metadata 浅合并，新键胜出
	if len(lot.DppMetadata) > 0 {
		metadata, _ := dpp.PublicPayload["metadata"].(map[string]interface{})
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		for k, v := range lot.DppMetadata {
			metadata[k] = v
		}
		dpp.PublicPayload["metadata"] = metadata
	}

	// 全部规则跑完后单次落库
	if err := s.repo.Update(ctx, dpp); err != nil {
		return nil, nil, fmt.Errorf("保存护照失败: %w", err)
	}
	return dpp, warnings, nil
}

// mapSupplyChain 按供应商sequence展平工序条目，每道工序一条，携带所属工厂上下文。
// 零供应商时保留既有supply_chain（合并而非清空）。
func (s *IngestionService) mapSupplyChain(ctx context.Context, tenantID string, lot *lotentity.Lot, dpp *entity.Dpp) []string {
	var warnings []string

	suppliers, err := s.lotFactoryRepo.FindByLot(ctx, tenantID, lot.ID)
	if err != nil {
		return []string{fmt.Sprintf("supply chain lookup failed: %v", err)}
	}
	if len(suppliers) == 0 {
		return []string{"lot has no supplier assignments; supply_chain left unchanged"}
	}

	entries := make([]interface{}, 0)
	for _, supplier := range suppliers {
		factoryName := supplier.FactoryID
		factory := map[string]interface{}{}
		if supplier.Factory != nil {
			factoryName = supplier.Factory.Name
			factory["name"] = supplier.Factory.Name
			factory["country"] = supplier.Factory.Country
			factory["address"] = supplier.Factory.Address
		}

		if len(supplier.Roles) == 0 {
			warnings = append(warnings, fmt.Sprintf("supplier %s has no roles assigned; contributed no supply chain entries", factoryName))
			continue
		}
		for _, role := range supplier.Roles {
			roleKey := role.RoleID
			if role.Role != nil {
				roleKey = role.Role.Key
			}
			entries = append(entries, map[string]interface{}{
				"role":    strings.ToUpper(roleKey),
				"factory": factory,
			})
		}
	}

	if len(entries) > 0 {
		dpp.RestrictedPayload["supply_chain"] = entries
	}
	return warnings
}

// mapQuality 每次检验一条，携带批次当前不良率与该次检验的top缺陷。
// 缺陷计数固定为每条记录1，沿用来源系统的已知简化而非真实聚合。
func (s *IngestionService) mapQuality(ctx context.Context, tenantID string, lot *lotentity.Lot, dpp *entity.Dpp) []string {
	inspections, err := s.inspectionRepo.FindByLot(ctx, tenantID, lot.ID)
	if err != nil {
		return []string{fmt.Sprintf("quality lookup failed: %v", err)}
	}
	if len(inspections) == 0 {
		return []string{"lot has no inspections; quality left unchanged"}
	}

	entries := make([]interface{}, 0, len(inspections))
	for _, inspection := range inspections {
		topDefects := make([]interface{}, 0, len(inspection.Defects))
		for _, defect := range inspection.Defects {
			topDefects = append(topDefects, map[string]interface{}{
				"type":  defect.DefectType,
				"count": 1,
			})
		}
		entry := map[string]interface{}{
			"inspection_id": inspection.ID,
			"result":        inspection.Result,
			"defect_rate":   lot.DefectRate,
			"top_defects":   topDefects,
		}
		if inspection.InspectedAt != nil {
			entry["inspected_at"] = inspection.InspectedAt
		}
		entries = append(entries, entry)
	}

	quality, _ := dpp.RestrictedPayload["quality"].(map[string]interface{})
	if quality == nil {
		quality = map[string]interface{}{}
	}
	quality["inspections"] = entries
	dpp.RestrictedPayload["quality"] = quality
	return nil
}
