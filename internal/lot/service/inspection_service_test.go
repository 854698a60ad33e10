package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/lot/testutil"
	"gorm.io/gorm"
)

func setupInspectionTest(t *testing.T) (*gorm.DB, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, NewServices(db, repos, nil)
}

// TestCompleteInspectionRecordsDefects completes an inspection with defects
// and verifies the result, the defect rows and the lot defect-rate writeback.
func TestCompleteInspectionRecordsDefects(t *testing.T) {
	db, svcs := setupInspectionTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	lot := testutil.SeedTestLot(t, db, tenant, "STYLE-020")
	inspection, err := svcs.Inspection.CreateInspection(ctx, tenant, lot.ID, "qa-user", &CreateInspectionRequest{SampleQty: 50})
	require.NoError(t, err)

	completed, err := svcs.Inspection.CompleteInspection(ctx, tenant, inspection.ID, "qa-user", &CompleteInspectionRequest{
		Result:      entity.InspectionResultPassed,
		PassedQty:   48,
		RejectedQty: 2,
		Defects: []DefectRecord{
			{DefectType: "loose_thread", Severity: "minor", Quantity: 1},
			{DefectType: "stain", Severity: "major", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, entity.InspectionStatusCompleted, completed.Status)
	require.Equal(t, entity.InspectionResultPassed, completed.Result)
	require.NotNil(t, completed.InspectedAt)
	require.Len(t, completed.Defects, 2)

	var reloaded entity.Lot
	require.NoError(t, db.First(&reloaded, "id = ?", lot.ID).Error)
	require.InDelta(t, 4.0, reloaded.DefectRate, 0.01)
}

// TestCompleteInspectionRollsBackOnFailure forces a defect insert to fail
// mid-completion and verifies nothing is persisted: the inspection stays
// pending and the lot defect rate is untouched.
func TestCompleteInspectionRollsBackOnFailure(t *testing.T) {
	db, svcs := setupInspectionTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	lot := testutil.SeedTestLot(t, db, tenant, "STYLE-021")
	inspection, err := svcs.Inspection.CreateInspection(ctx, tenant, lot.ID, "qa-user", &CreateInspectionRequest{SampleQty: 50})
	require.NoError(t, err)

	// defect_type overflows its column, failing after the inspection update
	_, err = svcs.Inspection.CompleteInspection(ctx, tenant, inspection.ID, "qa-user", &CompleteInspectionRequest{
		Result:      entity.InspectionResultFailed,
		PassedQty:   40,
		RejectedQty: 10,
		Defects:     []DefectRecord{{DefectType: strings.Repeat("x", 150)}},
	})
	require.Error(t, err)

	reloaded, err := svcs.Inspection.GetInspection(ctx, tenant, inspection.ID)
	require.NoError(t, err)
	require.Equal(t, entity.InspectionStatusPending, reloaded.Status)
	require.Empty(t, reloaded.Defects)
	require.Nil(t, reloaded.InspectedAt)

	var reloadedLot entity.Lot
	require.NoError(t, db.First(&reloadedLot, "id = ?", lot.ID).Error)
	require.Zero(t, reloadedLot.DefectRate)
}
