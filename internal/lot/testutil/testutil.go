package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	dppentity "github.com/weftlab/texpass/internal/dpp/entity"
	lotentity "github.com/weftlab/texpass/internal/lot/entity"
	"github.com/weftlab/texpass/internal/middleware"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema   = "test_texpass"
	JWTSecret    = "texpass-jwt-secret-key-2026"
	TestTenantID = "tenant-test-001"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB creates a test database connection using a dedicated test schema.
// Each test gets an isolated schema that is cleaned up after the test.
// Tests are skipped when no Postgres instance is reachable.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "texpass")
	password := getEnv("DB_PASSWORD", "texpass123")
	dbname := getEnv("DB_NAME", "texpass")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// Create a unique test schema for isolation
	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	// First: create schema using a temporary connection
	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("Skipping: test database unavailable: %v", err)
	}
	if err := setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)).Error; err != nil {
		t.Skipf("Skipping: test database unavailable: %v", err)
	}
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// Second: open connection with search_path in DSN so ALL pooled connections use test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Migrate test tables
	err = db.AutoMigrate(
		&lotentity.SupplyChainRole{},
		&lotentity.Factory{},
		&lotentity.Lot{},
		&lotentity.LotFactory{},
		&lotentity.LotFactoryRole{},
		&lotentity.LotApproval{},
		&lotentity.Inspection{},
		&lotentity.InspectionDefect{},
		&dppentity.Dpp{},
		&dppentity.DppEvent{},
		&dppentity.DppAccessLog{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	// Cleanup on test completion
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		// Reconnect to drop the schema
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, tenantID, name, email string, roles, permissions []string) string {
	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"tid":   tenantID,
		"name":  name,
		"email": email,
		"roles": roles,
		"perms": permissions,
		"iss":   "texpass",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default admin test user in TestTenantID
func DefaultTestToken() string {
	return GenerateTestToken(
		"test-user-001",
		TestTenantID,
		"Test Admin",
		"admin@test.com",
		[]string{"qa_admin"},
		[]string{"*"},
	)
}

// TenantToken returns an admin token scoped to the given tenant
func TenantToken(tenantID string) string {
	return GenerateTestToken(
		"test-user-001",
		tenantID,
		"Test Admin",
		"admin@test.com",
		[]string{"qa_admin"},
		[]string{"*"},
	)
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedTestRole creates a supply chain role in the catalog
func SeedTestRole(t *testing.T, db *gorm.DB, key, name string, sequence int, co2 float64) *lotentity.SupplyChainRole {
	t.Helper()
	role := &lotentity.SupplyChainRole{
		ID:              uuid.New().String()[:32],
		Key:             key,
		Name:            name,
		DefaultSequence: sequence,
		DefaultCo2Kg:    co2,
		CreatedAt:       time.Now(),
	}
	if err := db.Create(role).Error; err != nil {
		t.Fatalf("Failed to seed supply chain role: %v", err)
	}
	return role
}

// SeedTestFactory creates a factory for the given tenant
func SeedTestFactory(t *testing.T, db *gorm.DB, tenantID, name, country string) *lotentity.Factory {
	t.Helper()
	factory := &lotentity.Factory{
		ID:        uuid.New().String()[:32],
		TenantID:  tenantID,
		Name:      name,
		Country:   country,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(factory).Error; err != nil {
		t.Fatalf("Failed to seed factory: %v", err)
	}
	return factory
}

// SeedTestLot creates a lot for the given tenant
func SeedTestLot(t *testing.T, db *gorm.DB, tenantID, styleRef string) *lotentity.Lot {
	t.Helper()
	lot := &lotentity.Lot{
		ID:            uuid.New().String()[:32],
		TenantID:      tenantID,
		StyleRef:      styleRef,
		QuantityTotal: 1000,
		Status:        lotentity.LotStatusPlanned,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(lot).Error; err != nil {
		t.Fatalf("Failed to seed lot: %v", err)
	}
	return lot
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
