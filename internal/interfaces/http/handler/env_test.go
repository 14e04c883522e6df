package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appcatalog "github.com/distrib/backend/internal/application/catalog"
	appidentity "github.com/distrib/backend/internal/application/identity"
	appreporting "github.com/distrib/backend/internal/application/reporting"
	apptrade "github.com/distrib/backend/internal/application/trade"
	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/reconciliation"
	"github.com/distrib/backend/internal/infrastructure/auth"
	"github.com/distrib/backend/internal/infrastructure/config"
	"github.com/distrib/backend/internal/infrastructure/export"
	"github.com/distrib/backend/internal/infrastructure/persistence"
	"github.com/distrib/backend/internal/infrastructure/persistence/models"
	"github.com/distrib/backend/internal/interfaces/http/dto"
	"github.com/distrib/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		middleware.RegisterValidations(v)
	}
}

// Tuesday of the cycle anchored on Monday 2024-01-08
var testNow = time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC)

// testEnv wires the real services over an in-memory SQLite database
type testEnv struct {
	db        *gorm.DB
	jwt       *auth.JWTService
	blacklist *auth.InMemoryTokenBlacklist
	users     *appidentity.UserService
	products  *appcatalog.ProductService
	orders    *apptrade.OrderService
	reports   *appreporting.ReportService
	location  *time.Location
	router    *gin.Engine
}

// envOptions adjusts newTestEnvWith. Zero values mean UTC and no cycle lock.
type envOptions struct {
	location *time.Location
	locker   appreporting.CycleLocker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, envOptions{})
}

func newTestEnvWith(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	loc := opts.location
	if loc == nil {
		loc = time.UTC
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	userRepo := persistence.NewGormUserRepository(db)
	productRepo := persistence.NewGormProductRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	reportRepo := persistence.NewGormWeeklyReportRepository(db)

	env := &testEnv{
		db:       db,
		location: loc,
		jwt: auth.NewJWTService(config.JWTConfig{
			Secret:                 "handler-test-secret-at-least-32-chars",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: time.Hour,
			Issuer:                 "distrib-test",
			MaxRefreshCount:        5,
		}),
		blacklist: auth.NewInMemoryTokenBlacklist(),
		users:     appidentity.NewUserService(userRepo),
		products:  appcatalog.NewProductService(productRepo),
		orders:    apptrade.NewOrderService(orderRepo, productRepo, persistence.NewGormTransactionScope(db)),
	}
	env.orders.SetClock(func() time.Time { return testNow })

	engine := reconciliation.NewEngine(
		reconciliation.NewCalculator(loc),
		appreporting.NewOrderLedgerSource(orderRepo),
		appreporting.NewReportLedgerSource(reportRepo),
	)
	env.reports = appreporting.NewReportService(reportRepo, productRepo, engine, opts.locker)
	env.reports.SetClock(func() time.Time { return testNow })
	env.reports.SetExporter(export.NewReportWorkbook())

	authService := appidentity.NewAuthService(userRepo, env.jwt, env.blacklist, zap.NewNop())
	env.router = env.buildRouter(authService)
	return env
}

func (e *testEnv) buildRouter(authService *appidentity.AuthService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())

	authH := NewAuthHandler(authService)
	userH := NewUserHandler(e.users)
	productH := NewProductHandler(e.products)
	orderH := NewOrderHandler(e.orders, e.location)
	reportH := NewReportHandler(e.reports, e.location)

	r.POST("/auth/login", authH.Login)
	r.POST("/auth/refresh", authH.RefreshToken)

	api := r.Group("/", middleware.JWTAuth(middleware.JWTConfig{JWTService: e.jwt, Blacklist: e.blacklist}))
	api.POST("/auth/logout", authH.Logout)
	api.GET("/auth/me", authH.GetCurrentUser)
	api.PUT("/auth/password", authH.ChangePassword)

	admin := api.Group("/", middleware.RequireAdmin())
	admin.POST("/users", userH.Create)
	admin.GET("/users", userH.List)
	admin.POST("/users/:id/deactivate", userH.Deactivate)
	admin.POST("/products", productH.Create)
	admin.PUT("/products/:id", productH.Update)
	admin.POST("/products/:id/restock", productH.Restock)
	admin.DELETE("/products/:id", productH.Delete)

	api.GET("/products", productH.List)
	api.GET("/products/:id", productH.GetByID)

	api.POST("/orders", orderH.Create)
	api.GET("/orders", orderH.List)
	api.GET("/orders/:id", orderH.GetByID)
	api.POST("/orders/:id/approve", orderH.Approve)
	api.POST("/orders/:id/reject", orderH.Reject)
	api.POST("/orders/:id/receive", orderH.MarkReceived)
	api.DELETE("/orders/:id", orderH.Delete)

	api.GET("/reports/cycle", reportH.CurrentCycle)
	api.GET("/reports/availability", reportH.Availability)
	api.POST("/reports", reportH.Submit)
	api.GET("/reports", reportH.List)
	api.GET("/reports/:id", reportH.GetByID)
	api.PUT("/reports/:id", reportH.Revise)
	api.POST("/reports/:id/approve", reportH.Approve)
	api.POST("/reports/:id/reject", reportH.Reject)
	api.DELETE("/reports/:id", reportH.Delete)
	api.GET("/reports/:id/export", reportH.Export)
	return r
}

// account creates a user and returns an access token for it
func (e *testEnv) account(t *testing.T, username string, role identity.Role) (uuid.UUID, string) {
	t.Helper()
	user, err := identity.NewUser(username, username, "password-123", role)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormUserRepository(e.db).Save(t.Context(), user))
	pair, err := e.jwt.GenerateTokenPair(auth.GenerateTokenInput{UserID: user.ID, Username: username, Role: role})
	require.NoError(t, err)
	return user.ID, pair.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decode unwraps the success envelope into out
func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
		Meta    *dto.Meta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return dto.Response{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}

// createProduct adds a product as admin and returns its id
func (e *testEnv) createProduct(t *testing.T, adminToken, name, price string, stock int64) uuid.UUID {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/products", adminToken, map[string]any{
		"name": name, "unit_price": price, "stock": stock,
	})
	requireStatus(t, rec, http.StatusCreated)
	var p appcatalog.ProductResponse
	decode(t, rec, &p)
	return p.ID
}

// approvedOrder places an order as the distributor and approves it
func (e *testEnv) approvedOrder(t *testing.T, distributorToken, adminToken string, productID uuid.UUID, qty int64) uuid.UUID {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/orders", distributorToken, map[string]any{
		"items": []map[string]any{{"product_id": productID, "quantity": qty}},
	})
	requireStatus(t, rec, http.StatusCreated)
	var o apptrade.OrderResponse
	decode(t, rec, &o)

	rec = e.do(t, http.MethodPost, "/orders/"+o.ID.String()+"/approve", adminToken, nil)
	requireStatus(t, rec, http.StatusOK)
	return o.ID
}
