package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-scm/internal/middleware"
	"github.com/bitfantasy/nimo-scm/internal/scm/entity"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "nimo-scm-jwt-secret-key-2025"

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// SetupTestDB creates an isolated in-memory sqlite database per test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&entity.CustomerOrder{},
		&entity.OrderItem{},
		&entity.Supplier{},
		&entity.SupplierCapability{},
		&entity.SupplierPerformanceMetrics{},
		&entity.PurchaseOrder{},
		&entity.PurchaseOrderItem{},
		&entity.ActivityLog{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
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
func GenerateTestToken(userID, name, email string, roles, permissions []string) string {
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
		"name":  name,
		"email": email,
		"roles": roles,
		"perms": permissions,
		"iss":   "nimo-scm",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default admin test user
func DefaultTestToken() string {
	return GenerateTestToken(
		"test-user-001",
		"Test Admin",
		"admin@test.com",
		[]string{"scm_admin"},
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

// SeedSupplier creates a supplier with one capability and performance metrics.
func SeedSupplier(t *testing.T, db *gorm.DB, name, productType string, maxCapacity, commitments int, onTimeRate, qualityScore float64) *entity.Supplier {
	t.Helper()
	supplier := &entity.Supplier{
		ID:     uuid.New().String()[:32],
		Code:   "SUP-" + uuid.New().String()[:8],
		Name:   name,
		Active: true,
	}
	if err := db.Create(supplier).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}

	capability := &entity.SupplierCapability{
		ID:                 uuid.New().String()[:32],
		SupplierID:         supplier.ID,
		ProductType:        productType,
		MaxMonthlyCapacity: maxCapacity,
		CurrentCommitments: commitments,
		QualityRating:      qualityScore,
		Active:             true,
	}
	if err := db.Create(capability).Error; err != nil {
		t.Fatalf("Failed to seed capability: %v", err)
	}

	metrics := &entity.SupplierPerformanceMetrics{
		ID:           uuid.New().String()[:32],
		SupplierID:   supplier.ID,
		OnTimeRate:   onTimeRate,
		QualityScore: qualityScore,
	}
	if err := db.Create(metrics).Error; err != nil {
		t.Fatalf("Failed to seed performance metrics: %v", err)
	}

	supplier.Capabilities = []entity.SupplierCapability{*capability}
	supplier.Performance = metrics
	return supplier
}

// SeedOrder creates a customer order with items in the given status.
func SeedOrder(t *testing.T, db *gorm.DB, status, productType string, quantities ...int) *entity.CustomerOrder {
	t.Helper()
	order := &entity.CustomerOrder{
		ID:           uuid.New().String()[:32],
		OrderNo:      "SO-" + uuid.New().String()[:8],
		CustomerID:   "customer-001",
		CustomerName: "Test Customer",
		ProductType:  productType,
		Status:       status,
		RequiredDate: time.Now().AddDate(0, 1, 0),
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}

	for i, qty := range quantities {
		item := &entity.OrderItem{
			ID:          uuid.New().String()[:32],
			OrderID:     order.ID,
			ProductCode: fmt.Sprintf("PROD-%03d", i+1),
			Description: fmt.Sprintf("Product %d", i+1),
			Quantity:    qty,
			Unit:        "pcs",
			UnitPrice:   10,
			SortOrder:   i,
		}
		if err := db.Create(item).Error; err != nil {
			t.Fatalf("Failed to seed order item: %v", err)
		}
		order.Items = append(order.Items, *item)
	}
	return order
}
