package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weftlab/texpass/internal/dpp/entity"
	"github.com/weftlab/texpass/internal/dpp/repository"
	lotrepo "github.com/weftlab/texpass/internal/lot/repository"
	lotsvc "github.com/weftlab/texpass/internal/lot/service"
	"github.com/weftlab/texpass/internal/lot/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDppTest(t *testing.T) (*gorm.DB, *Services, *lotsvc.Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	lotRepos := lotrepo.NewRepositories(db)
	lotServices := lotsvc.NewServices(db, lotRepos, nil)
	if err := lotServices.Catalog.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("Failed to seed role catalog: %v", err)
	}
	svcs := NewServices(db, repository.NewRepositories(db), lotRepos, nil, zap.NewNop())
	return db, svcs, lotServices
}

// TestDppLifecycle walks draft → published → archived and checks the edit
// and publish guards along the way.
func TestDppLifecycle(t *testing.T) {
	_, svcs, _ := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{
		StyleRef:      "STYLE-100",
		Brand:         "Weft",
		PublicPayload: entity.JSONB{"care": "machine wash cold"},
	})
	require.NoError(t, err)
	require.Equal(t, entity.DppStatusDraft, dpp.Status)
	require.Equal(t, "1.0", dpp.SchemaVersion)

	// creation leaves a created event on the timeline
	events, err := svcs.Dpp.ListEvents(ctx, tenant, dpp.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, entity.DppEventCreated, events[0].Type)

	// drafts are editable
	sku := "SKU-100"
	updated, err := svcs.Dpp.UpdateDpp(ctx, tenant, dpp.ID, &UpdateDppRequest{ProductSku: &sku})
	require.NoError(t, err)
	require.Equal(t, "SKU-100", updated.ProductSku)

	published, err := svcs.Dpp.PublishDpp(ctx, tenant, dpp.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, entity.DppStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	// published passports are immutable and cannot be re-published
	_, err = svcs.Dpp.UpdateDpp(ctx, tenant, dpp.ID, &UpdateDppRequest{ProductSku: &sku})
	require.ErrorIs(t, err, ErrNotDraft)
	_, err = svcs.Dpp.PublishDpp(ctx, tenant, dpp.ID, "user-1")
	require.ErrorIs(t, err, ErrNotDraft)

	archived, err := svcs.Dpp.ArchiveDpp(ctx, tenant, dpp.ID)
	require.NoError(t, err)
	require.Equal(t, entity.DppStatusArchived, archived.Status)

	events, err = svcs.Dpp.ListEvents(ctx, tenant, dpp.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

// TestDppUpdatePublishRace races an update against a publish. Whatever the
// interleaving, the passport must end up published: the update either lands
// while the row is still draft or fails with ErrNotDraft, it never writes
// over a published row.
func TestDppUpdatePublishRace(t *testing.T) {
	db, svcs, _ := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{StyleRef: "STYLE-110"})
	require.NoError(t, err)

	styleRef := "STYLE-110-v2"
	var wg sync.WaitGroup
	var updateErr, publishErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, updateErr = svcs.Dpp.UpdateDpp(ctx, tenant, dpp.ID, &UpdateDppRequest{StyleRef: &styleRef})
	}()
	go func() {
		defer wg.Done()
		_, publishErr = svcs.Dpp.PublishDpp(ctx, tenant, dpp.ID, "user-1")
	}()
	wg.Wait()

	require.NoError(t, publishErr)
	if updateErr != nil {
		require.ErrorIs(t, updateErr, ErrNotDraft)
	}

	var reloaded entity.Dpp
	require.NoError(t, db.First(&reloaded, "id = ?", dpp.ID).Error)
	require.Equal(t, entity.DppStatusPublished, reloaded.Status)
	require.NotNil(t, reloaded.PublishedAt)
	if updateErr == nil {
		// the update won the race while the row was still a draft
		require.Equal(t, styleRef, reloaded.StyleRef)
	} else {
		require.Equal(t, "STYLE-110", reloaded.StyleRef)
	}
}

// TestPublicViewOnlyPublished verifies the public read is hard-gated on the
// published status and never leaks draft or archived passports.
func TestPublicViewOnlyPublished(t *testing.T) {
	_, svcs, _ := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID
	meta := AccessMeta{IP: "203.0.113.7", UserAgent: "test-agent", Endpoint: "/public/dpps"}

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{
		StyleRef:      "STYLE-101",
		PublicPayload: entity.JSONB{"materials": []interface{}{"cotton"}},
		RestrictedPayload: entity.JSONB{
			"supply_chain": []interface{}{"secret"},
		},
	})
	require.NoError(t, err)

	_, err = svcs.Dpp.PublicView(ctx, dpp.ID, meta)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svcs.Dpp.PublishDpp(ctx, tenant, dpp.ID, "user-1")
	require.NoError(t, err)

	doc, err := svcs.Dpp.PublicView(ctx, dpp.ID, meta)
	require.NoError(t, err)
	require.Equal(t, dpp.ID, doc["id"])
	require.Equal(t, "STYLE-101", doc["style_ref"])
	require.Contains(t, doc, "materials")
	// restricted payload must never appear in the public document
	require.NotContains(t, doc, "supply_chain")

	_, err = svcs.Dpp.ArchiveDpp(ctx, tenant, dpp.ID)
	require.NoError(t, err)

	_, err = svcs.Dpp.PublicView(ctx, dpp.ID, meta)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

// TestAccessAudit verifies both views leave audit rows with caller context.
func TestAccessAudit(t *testing.T) {
	_, svcs, _ := setupDppTest(t)
	ctx := context.Background()
	tenant := testutil.TestTenantID

	dpp, err := svcs.Dpp.CreateDpp(ctx, tenant, "user-1", &CreateDppRequest{StyleRef: "STYLE-102"})
	require.NoError(t, err)

	// restricted view is not status-gated: drafts are readable internally
	userID := "user-2"
	_, err = svcs.Dpp.RestrictedView(ctx, tenant, dpp.ID, AccessMeta{
		IP: "10.0.0.5", UserAgent: "qa-console", UserID: &userID, Endpoint: "/api/v1/dpps",
	})
	require.NoError(t, err)

	_, err = svcs.Dpp.PublishDpp(ctx, tenant, dpp.ID, "user-1")
	require.NoError(t, err)
	_, err = svcs.Dpp.PublicView(ctx, dpp.ID, AccessMeta{IP: "203.0.113.9", UserAgent: "scanner"})
	require.NoError(t, err)

	logs, err := svcs.Dpp.AllAccessLogs(ctx, tenant, dpp.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	views := map[string]entity.DppAccessLog{}
	for _, l := range logs {
		views[l.View] = l
	}
	restricted, ok := views[entity.DppViewRestricted]
	require.True(t, ok)
	require.Equal(t, "10.0.0.5", restricted.IP)
	require.NotNil(t, restricted.UserID)
	require.Equal(t, "user-2", *restricted.UserID)

	public, ok := views[entity.DppViewPublic]
	require.True(t, ok)
	require.Equal(t, "203.0.113.9", public.IP)
	require.Nil(t, public.UserID)
}

// TestDppTenantIsolation verifies passports are invisible across tenants.
func TestDppTenantIsolation(t *testing.T) {
	_, svcs, _ := setupDppTest(t)
	ctx := context.Background()

	dpp, err := svcs.Dpp.CreateDpp(ctx, testutil.TestTenantID, "user-1", &CreateDppRequest{StyleRef: "STYLE-103"})
	require.NoError(t, err)

	_, err = svcs.Dpp.RestrictedView(ctx, "tenant-other", dpp.ID, AccessMeta{})
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svcs.Dpp.PublishDpp(ctx, "tenant-other", dpp.ID, "user-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
