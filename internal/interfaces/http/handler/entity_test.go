package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storefront/backend/internal/application"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/partner"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/engine"
	"github.com/storefront/backend/internal/engine/query"
	"github.com/storefront/backend/internal/engine/scope"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&partner.Company{}, &partner.Customer{}, &partner.Address{},
		&catalog.Category{}, &catalog.Product{}, &catalog.Review{},
		&trade.Order{}, &trade.OrderItem{}, &trade.OrderTag{},
	))

	resolver := scope.NewResolver(
		persistence.NewGormCompanyHierarchy(db),
		persistence.NewGormMappingStore(db),
	)
	engines, err := application.NewEngines(engine.Deps{
		DB:       db,
		Dialect:  query.NewPostgres(),
		Scope:    resolver,
		Identity: &auth.ContextIdentity{Fallback: "api"},
	})
	require.NoError(t, err)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "storefront-test",
		TokenExpiration: time.Hour,
	})
	token, err := jwtService.GenerateToken("acme", "u-1", "alice")
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(middleware.DefaultAuthConfig(jwtService)))
	handler.NewEntityHandler(engines.Products, func() *catalog.Product { return &catalog.Product{} }, "").
		Register(api.Group("/products"))

	return &testServer{router: r, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndGet(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/products",
		gin.H{"name": "Widget", "sku": "SKU-1", "price": "19.99"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decode(t, w)
	require.True(t, env.Success)
	var created catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.Code)
	assert.Equal(t, "acme", created.CompanyCode)
	// The actor comes from the authenticated user, not a default.
	assert.Equal(t, "alice", created.CreatedBy)

	w = s.do(t, http.MethodGet, "/api/v1/products/"+created.Code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decode(t, w)
	var got catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Widget", got.Name)
}

func TestGetMissingIs404(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCreateConflictIs409(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/products", gin.H{"name": "A", "sku": "SKU-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/products", gin.H{"name": "B", "sku": "SKU-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestListAndPagedList(t *testing.T) {
	s := newTestServer(t)

	for _, sku := range []string{"SKU-1", "SKU-2", "SKU-3"} {
		w := s.do(t, http.MethodPost, "/api/v1/products", gin.H{"name": "P " + sku, "sku": sku})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	var items []catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 3)

	w = s.do(t, http.MethodGet, "/api/v1/products?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decode(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(3), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t)

	for _, p := range []gin.H{
		{"name": "Red widget", "sku": "SKU-1"},
		{"name": "Blue widget", "sku": "SKU-2"},
		{"name": "Red gadget", "sku": "SKU-3"},
	} {
		w := s.do(t, http.MethodPost, "/api/v1/products", p)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	t.Run("conditions", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/products/search", gin.H{
			"conditions": []gin.H{{"field": "name", "op": "Contains", "value": "Red"}},
			"sort_field": "name",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := decode(t, w)
		var items []catalog.Product
		require.NoError(t, json.Unmarshal(env.Data, &items))
		require.Len(t, items, 2)
		assert.Equal(t, "Red gadget", items[0].Name)
	})

	t.Run("field projection", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/products/search", gin.H{
			"fields":     []string{"name", "sku"},
			"sort_field": "sku",
		})
		require.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &rows))
		require.Len(t, rows, 3)
		assert.Equal(t, "Red widget", rows[0]["name"])
	})

	t.Run("paged", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/products/search", gin.H{
			"page": 1, "page_size": 2, "sort_field": "sku",
		})
		require.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(3), env.Meta.Total)
	})

	t.Run("invalid operator rejected", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/products/search", gin.H{
			"conditions": []gin.H{{"field": "name", "op": "Between", "value": 1}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCountEndpoint(t *testing.T) {
	s := newTestServer(t)

	for _, sku := range []string{"SKU-1", "SKU-2"} {
		w := s.do(t, http.MethodPost, "/api/v1/products", gin.H{"name": sku, "sku": sku})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/products/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	var data map[string]int64
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(2), data["count"])

	w = s.do(t, http.MethodGet, "/api/v1/products/count?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = decode(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(1), data["count"])

	w = s.do(t, http.MethodGet, "/api/v1/products/count?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/products", gin.H{"name": "Widget", "sku": "SKU-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	env := decode(t, w)
	var created catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w = s.do(t, http.MethodPut, "/api/v1/products/"+created.Code,
		gin.H{"name": "Widget v2", "sku": "SKU-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/products/"+created.Code, nil)
	env = decode(t, w)
	var got catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Widget v2", got.Name)

	w = s.do(t, http.MethodDelete, "/api/v1/products/"+created.Code, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/products/"+created.Code, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Purge of an already soft-deleted row is NotFound too.
	w = s.do(t, http.MethodDelete, "/api/v1/products/"+created.Code+"/purge", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
