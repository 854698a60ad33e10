package handler

import (
	"net/http"
	"testing"

	"github.com/weftlab/texpass/internal/dpp/repository"
	"github.com/weftlab/texpass/internal/dpp/service"
	lotrepo "github.com/weftlab/texpass/internal/lot/repository"
	"github.com/weftlab/texpass/internal/lot/testutil"
	"github.com/weftlab/texpass/internal/middleware"
	"go.uber.org/zap"
)

func setupDppTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	lotRepos := lotrepo.NewRepositories(db)
	svcs := service.NewServices(db, repos, lotRepos, nil, zap.NewNop())
	handlers := NewHandlers(svcs)

	router := testutil.SetupRouter()
	router.GET("/public/dpps/:id", handlers.Dpp.Public)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/dpps", handlers.Dpp.Create)
	api.POST("/dpps/:id/ingest", handlers.Dpp.Ingest)
	api.POST("/dpps/:id/publish", handlers.Dpp.Publish)
	api.POST("/dpps/:id/archive", handlers.Dpp.Archive)
	api.GET("/dpps/:id", middleware.RequireRole("dpp_viewer"), handlers.Dpp.Restricted)
	api.GET("/dpps/:id/access-logs", middleware.RequireRole("dpp_viewer"), handlers.Dpp.ListAccessLogs)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestPublicEndpointGating verifies the unauthenticated public endpoint only
// serves published passports and that reads are audited.
func TestPublicEndpointGating(t *testing.T) {
	env := setupDppTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/dpps", map[string]interface{}{
		"style_ref":      "STYLE-DPP-001",
		"brand":          "Weft",
		"public_payload": map[string]interface{}{"care": "do not bleach"},
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	dppID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// draft is invisible to the public
	w = testutil.DoRequest(env.Router, http.MethodGet, "/public/dpps/"+dppID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for draft, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/dpps/"+dppID+"/publish", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// published passport is readable without any token
	w = testutil.DoRequest(env.Router, http.MethodGet, "/public/dpps/"+dppID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	doc := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if doc["style_ref"] != "STYLE-DPP-001" {
		t.Fatalf("unexpected public doc: %v", doc)
	}
	if _, leaked := doc["restricted_payload"]; leaked {
		t.Fatalf("restricted payload leaked into public doc")
	}

	// archiving takes it off the public surface again
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/dpps/"+dppID+"/archive", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, http.MethodGet, "/public/dpps/"+dppID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for archived, got %d", w.Code)
	}

	// the public read left an audit trail
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/dpps/"+dppID+"/access-logs", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	logs := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(logs) != 1 {
		t.Fatalf("expected 1 access log, got %d", len(logs))
	}
	if logs[0].(map[string]interface{})["view"] != "public" {
		t.Fatalf("unexpected access log: %v", logs[0])
	}
}

// TestIngestErrorMapping verifies ingestion maps missing records to 404 while
// other failures surface as 500 instead of masquerading as not-found.
func TestIngestErrorMapping(t *testing.T) {
	env := setupDppTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/dpps", map[string]interface{}{
		"style_ref": "STYLE-DPP-003",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	dppID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// unknown lot is a 404
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/dpps/"+dppID+"/ingest", map[string]interface{}{
		"lot_id": "no-such-lot",
	}, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown lot, got %d: %s", w.Code, w.Body.String())
	}

	// sever the database connection; the resulting failure is a 500, not a 404
	sqlDB, err := env.DB.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.Close()

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/dpps/"+dppID+"/ingest", map[string]interface{}{
		"lot_id": "no-such-lot",
	}, token)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on database failure, got %d: %s", w.Code, w.Body.String())
	}
}

// TestRestrictedEndpointRoleGuard verifies the restricted view requires an
// internal role while drafts remain readable once authorized.
func TestRestrictedEndpointRoleGuard(t *testing.T) {
	env := setupDppTest(t)
	admin := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/dpps", map[string]interface{}{
		"style_ref":          "STYLE-DPP-002",
		"restricted_payload": map[string]interface{}{"supply_chain": []interface{}{}},
	}, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	dppID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// authenticated but without the viewer role
	plain := testutil.GenerateTestToken("user-p", testutil.TestTenantID, "Plain", "p@test.com", []string{"operator"}, nil)
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/dpps/"+dppID, nil, plain)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without role, got %d: %s", w.Code, w.Body.String())
	}

	viewer := testutil.GenerateTestToken("user-v", testutil.TestTenantID, "Viewer", "v@test.com", []string{"dpp_viewer"}, nil)
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/dpps/"+dppID, nil, viewer)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for draft restricted view, got %d: %s", w.Code, w.Body.String())
	}
	dpp := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if dpp["status"] != "draft" {
		t.Fatalf("unexpected status: %v", dpp["status"])
	}
}
