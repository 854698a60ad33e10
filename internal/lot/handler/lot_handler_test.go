package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/lot/service"
	"github.com/weftlab/texpass/internal/lot/testutil"
)

func setupLotTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	svcs := service.NewServices(db, repos, nil)
	if err := svcs.Catalog.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("Failed to seed role catalog: %v", err)
	}
	handlers := NewHandlers(svcs)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/factories", handlers.Factory.Create)
	api.POST("/lots", handlers.Lot.Create)
	api.GET("/lots/:id", handlers.Lot.Get)
	api.PUT("/lots/:id/suppliers", handlers.Lot.AssignSuppliers)
	api.GET("/lots/:id/chain", handlers.Lot.GetChain)
	api.POST("/lots/:id/chain/advance", handlers.Lot.AdvanceChain)
	api.POST("/lots/:id/approve", handlers.Lot.Approve)
	api.GET("/lots/:id/approvals", handlers.Lot.ListApprovals)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestLotChainFlow drives the full flow over HTTP: create lot and factory,
// assign suppliers, walk the chain to exhaustion, then approve.
func TestLotChainFlow(t *testing.T) {
	env := setupLotTest(t)
	token := testutil.DefaultTestToken()

	// create a factory
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/factories", map[string]interface{}{
		"name":    "Braga Cut&Sew",
		"country": "PT",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	factoryID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// create a lot
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/lots", map[string]interface{}{
		"style_ref":      "STYLE-H-001",
		"quantity_total": 500,
		"dye_lot":        "DL-42",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	lotID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// assign one supplier with two roles
	body := []map[string]interface{}{
		{
			"factory_id": factoryID,
			"roles": []map[string]interface{}{
				{"role_key": "cutting", "sequence": 10},
				{"role_key": "sewing", "sequence": 20},
			},
		},
	}
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/lots/"+lotID+"/suppliers", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// chain view shows the first role in progress
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/lots/"+lotID+"/chain", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	chain := testutil.ParseResponse(w)["data"].(map[string]interface{})
	current := chain["current_role"].(map[string]interface{})
	if current["status"] != "in_progress" {
		t.Fatalf("expected in_progress current role, got %v", current["status"])
	}

	// advance twice: cutting then sewing, second advance exhausts the chain
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/lots/"+lotID+"/chain/advance", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if result["exhausted"].(bool) {
		t.Fatalf("chain exhausted too early: %v", result)
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/lots/"+lotID+"/chain/advance", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if !result["exhausted"].(bool) {
		t.Fatalf("expected exhausted chain: %v", result)
	}

	// exhaustion parks the lot in pending_approval
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/lots/"+lotID, nil, token)
	lot := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if lot["status"] != "pending_approval" {
		t.Fatalf("expected pending_approval, got %v", lot["status"])
	}

	// approve and check history
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/lots/"+lotID+"/approve", map[string]interface{}{
		"note": "looks good",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/lots/"+lotID+"/approvals", nil, token)
	approvals := testutil.ParseResponse(w)["data"].([]interface{})
	if len(approvals) != 1 {
		t.Fatalf("expected 1 approval record, got %d", len(approvals))
	}
	if approvals[0].(map[string]interface{})["decision"] != "approve" {
		t.Fatalf("unexpected decision: %v", approvals[0])
	}
}

// TestLotTenantScoping verifies a token from another tenant cannot see the
// lot, and a token without a tenant claim is rejected outright.
// TestAssignSuppliersDuplicateRoleRejected verifies a request repeating the
// same role for one supplier is a validation error, not a server error.
func TestAssignSuppliersDuplicateRoleRejected(t *testing.T) {
	env := setupLotTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/factories", map[string]interface{}{
		"name":    "Dup Mill",
		"country": "PT",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	factoryID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/lots", map[string]interface{}{
		"style_ref": "STYLE-H-002",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	lotID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/lots/"+lotID+"/suppliers", []map[string]interface{}{
		{
			"factory_id": factoryID,
			"roles": []map[string]interface{}{
				{"role_key": "cutting"},
				{"role_key": "cutting"},
			},
		},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate role, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLotTenantScoping(t *testing.T) {
	env := setupLotTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/lots", map[string]interface{}{
		"style_ref": "STYLE-H-002",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	lotID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	otherToken := testutil.TenantToken("tenant-other")
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/lots/"+lotID, nil, otherToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign tenant, got %d: %s", w.Code, w.Body.String())
	}

	// token without a tenant claim never reaches the handler
	noTenant := testutil.GenerateTestToken("user-x", "", "No Tenant", "x@test.com", nil, nil)
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/lots/"+lotID, nil, noTenant)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tenantless token, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/lots/"+lotID, nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}
