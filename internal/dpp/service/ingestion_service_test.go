package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weftlab/texpass/internal/dpp/entity"
	lotentity "github.com/weftlab/texpass/internal/lot/entity"
	lotsvc "github.com/weftlab/texpass/internal/lot/service"
	"github.com/weftlab/texpass/internal/lot/testutil"
	"gorm.io/gorm"
)

// TestIngestLotFullMapping runs a fully populated lot through every mapping
// rule and checks the resulting passport document.
func TestIngestLotFullMapping(t *testing.T) {
	db, svcs, lotServices := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	factory := testutil.SeedTestFactory(t, db, tenant, "Porto Mill", "PT")
	lot := seedIngestLot(t, db, tenant)

	seq := 0
	_, err := lotServices.Lot.AssignSuppliers(ctx, tenant, lot.ID, []lotsvc.AssignSupplierRequest{
		{
			FactoryID: factory.ID,
			Sequence:  &seq,
			Roles: []lotsvc.AssignRoleRequest{
				{RoleKey: lotentity.RoleKeyCutting},
				{RoleKey: lotentity.RoleKeySewing},
			},
		},
	})
	require.NoError(t, err)

	inspection, err := lotServices.Inspection.CreateInspection(ctx, tenant, lot.ID, "inspector-1",
		&lotsvc.CreateInspectionRequest{SampleQty: 50})
	require.NoError(t, err)
	_, err = lotServices.Inspection.CompleteInspection(ctx, tenant, inspection.ID, "inspector-1",
		&lotsvc.CompleteInspectionRequest{
			Result:      lotentity.InspectionResultPassed,
			PassedQty:   48,
			RejectedQty: 2,
			Defects: []lotsvc.DefectRecord{
				{DefectType: "loose_thread", Severity: "minor"},
				{DefectType: "stain", Severity: "major"},
			},
		})
	require.NoError(t, err)

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{
		StyleRef: "STYLE-ING-001",
		PublicPayload: entity.JSONB{
			"metadata": map[string]interface{}{"season": "SS26", "origin": "studio"},
		},
	})
	require.NoError(t, err)

	ingested, warnings, err := svcs.Ingestion.IngestLot(ctx, tenant, dpp.ID, lot.ID)
	require.NoError(t, err)
	require.Empty(t, warnings)

	// supply chain: one flattened entry per role, uppercase key, factory context
	chain, ok := ingested.RestrictedPayload["supply_chain"].([]interface{})
	require.True(t, ok)
	require.Len(t, chain, 2)
	first := chain[0].(map[string]interface{})
	require.Equal(t, "CUTTING", first["role"])
	factoryDoc := first["factory"].(map[string]interface{})
	require.Equal(t, "Porto Mill", factoryDoc["name"])
	require.Equal(t, "PT", factoryDoc["country"])
	second := chain[1].(map[string]interface{})
	require.Equal(t, "SEWING", second["role"])

	// quality: one entry per inspection with the lot defect rate snapshot
	quality := ingested.RestrictedPayload["quality"].(map[string]interface{})
	inspections := quality["inspections"].([]interface{})
	require.Len(t, inspections, 1)
	entry := inspections[0].(map[string]interface{})
	require.Equal(t, inspection.ID, entry["inspection_id"])
	require.Equal(t, lotentity.InspectionResultPassed, entry["result"])
	require.InDelta(t, 4.0, entry["defect_rate"], 0.01)
	topDefects := entry["top_defects"].([]interface{})
	require.Len(t, topDefects, 2)
	require.Equal(t, 1, topDefects[0].(map[string]interface{})["count"])

	// materials carried verbatim
	materials := ingested.PublicPayload["materials"].([]interface{})
	require.Len(t, materials, 2)

	// production context and certifications
	production := ingested.PublicPayload["production"].(map[string]interface{})
	require.Equal(t, "DL-778", production["dye_lot"])
	certs := ingested.PublicPayload["certifications"].([]interface{})
	require.Len(t, certs, 1)
	require.Equal(t, "GOTS", certs[0].(map[string]interface{})["type"])

	// metadata shallow merge: lot keys win, unrelated keys survive
	metadata := ingested.PublicPayload["metadata"].(map[string]interface{})
	require.Equal(t, "factory", metadata["origin"])
	require.Equal(t, "SS26", metadata["season"])
	require.Equal(t, "indigo", metadata["colorway"])
}

// TestIngestLotSparseDataWarnings verifies every missing optional input
// becomes a warning and leaves the existing passport data untouched.
func TestIngestLotSparseDataWarnings(t *testing.T) {
	db, svcs, _ := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	lot := testutil.SeedTestLot(t, db, tenant, "STYLE-ING-002")

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{
		StyleRef: "STYLE-ING-002",
		PublicPayload: entity.JSONB{
			"materials": []interface{}{map[string]interface{}{"fiber": "wool"}},
		},
		RestrictedPayload: entity.JSONB{
			"supply_chain": []interface{}{map[string]interface{}{"role": "SPINNING"}},
		},
	})
	require.NoError(t, err)

	ingested, warnings, err := svcs.Ingestion.IngestLot(ctx, tenant, dpp.ID, lot.ID)
	require.NoError(t, err)
	require.Equal(t, []string{
		"lot has no supplier assignments; supply_chain left unchanged",
		"lot has no inspections; quality left unchanged",
		"lot has no material composition; materials left unchanged",
		"lot has no certifications",
	}, warnings)

	// merge, not overwrite: pre-existing data survives the sparse ingest
	chain := ingested.RestrictedPayload["supply_chain"].([]interface{})
	require.Len(t, chain, 1)
	materials := ingested.PublicPayload["materials"].([]interface{})
	require.Len(t, materials, 1)
}

// TestIngestLotSupplierWithoutRoles verifies a role-less supplier contributes
// nothing but is called out by factory name in the warnings.
func TestIngestLotSupplierWithoutRoles(t *testing.T) {
	db, svcs, lotServices := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	factory := testutil.SeedTestFactory(t, db, tenant, "Idle Mill", "TR")
	lot := testutil.SeedTestLot(t, db, tenant, "STYLE-ING-003")

	_, err := lotServices.Lot.AssignSuppliers(ctx, tenant, lot.ID, []lotsvc.AssignSupplierRequest{
		{FactoryID: factory.ID},
	})
	require.NoError(t, err)

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{StyleRef: "STYLE-ING-003"})
	require.NoError(t, err)

	ingested, warnings, err := svcs.Ingestion.IngestLot(ctx, tenant, dpp.ID, lot.ID)
	require.NoError(t, err)
	require.Contains(t, warnings, "supplier Idle Mill has no roles assigned; contributed no supply chain entries")
	require.NotContains(t, ingested.RestrictedPayload, "supply_chain")
}

// TestIngestLotIdempotent verifies re-ingesting the same lot replaces the
// derived sections instead of accumulating duplicates.
func TestIngestLotIdempotent(t *testing.T) {
	db, svcs, lotServices := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	factory := testutil.SeedTestFactory(t, db, tenant, "Steady Mill", "PT")
	lot := seedIngestLot(t, db, tenant)

	_, err := lotServices.Lot.AssignSuppliers(ctx, tenant, lot.ID, []lotsvc.AssignSupplierRequest{
		{FactoryID: factory.ID, Roles: []lotsvc.AssignRoleRequest{{RoleKey: lotentity.RoleKeyWeaving}}},
	})
	require.NoError(t, err)

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{StyleRef: "STYLE-ING-004"})
	require.NoError(t, err)

	_, _, err = svcs.Ingestion.IngestLot(ctx, tenant, dpp.ID, lot.ID)
	require.NoError(t, err)
	ingested, _, err := svcs.Ingestion.IngestLot(ctx, tenant, dpp.ID, lot.ID)
	require.NoError(t, err)

	chain := ingested.RestrictedPayload["supply_chain"].([]interface{})
	require.Len(t, chain, 1)
	materials := ingested.PublicPayload["materials"].([]interface{})
	require.Len(t, materials, 2)
}

// seedIngestLot seeds a lot carrying data for every mapping rule
func seedIngestLot(t *testing.T, db *gorm.DB, tenantID string) *lotentity.Lot {
	t.Helper()
	lot := testutil.SeedTestLot(t, db, tenantID, "STYLE-ING")
	materials := lotentity.JSONBArray{
		map[string]interface{}{"fiber": "organic cotton", "percentage": 70},
		map[string]interface{}{"fiber": "recycled polyester", "percentage": 30},
	}
	certs := lotentity.JSONBArray{
		map[string]interface{}{"type": "GOTS", "number": "GOTS-2026-001"},
	}
	updates := map[string]interface{}{
		"material_composition": &materials,
		"certifications":       &certs,
		"dye_lot":              "DL-778",
		"dpp_metadata":         lotentity.JSONB{"colorway": "indigo", "origin": "factory"},
	}
	if err := db.Model(&lotentity.Lot{}).Where("id = ?", lot.ID).Updates(updates).Error; err != nil {
		t.Fatalf("Failed to enrich lot: %v", err)
	}
	return lot
}
