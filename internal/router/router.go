package router

import (
	"tablepos/internal/config"
	"tablepos/internal/handler"
	"tablepos/internal/infra"
	"tablepos/internal/middleware"
	"tablepos/internal/printing"
	"tablepos/internal/repository"
	"tablepos/internal/service"
	"tablepos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	roleStaff   = "staff"
	roleManager = "manager"
	roleAdmin   = "admin"
)

// Platform carries the infrastructure built by the composition root.
type Platform struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Dispatcher *printing.Dispatcher
	Profiles   printing.Profiles
	Jobs       *worker.Dispatcher
	// Kitchen is nil when the kitchen display feed is disabled.
	Kitchen service.KitchenFeed
}

// Services is the service layer; the worker pool shares it with the router.
type Services struct {
	Auth       service.AuthService
	Categories service.CategoryService
	Menu       service.MenuService
	Tables     service.TableService
	Settings   service.SettingsService
	Orders     service.OrderService
	Bills      service.BillService
	Reports    service.ReportService
	Cash       service.CashService
}

// NewServices wires Service ← Repository ← DB/Redis.
func NewServices(cfg *config.Config, p Platform) *Services {
	cache := infra.NewKVCache(p.Redis, 0)

	// ── Repositories ─────────────────────────────────────────────────────────
	staffRepo := repository.NewStaffRepository(p.DB)
	categoryRepo := repository.NewCategoryRepository(p.DB)
	menuRepo := repository.NewMenuRepository(p.DB)
	tableRepo := repository.NewTableRepository(p.DB)
	settingsRepo := repository.NewSettingsRepository(p.DB)
	billRepo := repository.NewBillRepository(p.DB)
	printJobRepo := repository.NewPrintJobRepository(p.DB)
	cashRepo := repository.NewCashEntryRepository(p.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	settingsSvc := service.NewSettingsService(settingsRepo, cache)
	printer := service.NewPrinter(service.PrinterConfig{
		Dispatcher:  p.Dispatcher,
		Profiles:    p.Profiles,
		RasterScale: cfg.RasterScale(),
		AutoDelay:   cfg.AutoPrintDelay(),
		Jobs:        printJobRepo,
	})

	var jobs service.JobQueue
	if p.Jobs != nil {
		jobs = p.Jobs
	}

	return &Services{
		Auth:       service.NewAuthService(staffRepo, cfg),
		Categories: service.NewCategoryService(categoryRepo, menuRepo, cache),
		Menu:       service.NewMenuService(menuRepo, categoryRepo, cache),
		Tables:     service.NewTableService(tableRepo, billRepo),
		Settings:   settingsSvc,
		Orders: service.NewOrderService(service.OrderDeps{
			Bills:    billRepo,
			Tables:   tableRepo,
			Menu:     menuRepo,
			Settings: settingsSvc,
			Printer:  printer,
			Kitchen:  p.Kitchen,
			Cache:    cache,
		}),
		Bills: service.NewBillService(service.BillDeps{
			Bills:    billRepo,
			Tables:   tableRepo,
			Settings: settingsSvc,
			Printer:  printer,
			Jobs:     jobs,
			Cache:    cache,
		}),
		Reports: service.NewReportService(billRepo, cashRepo, nil),
		Cash:    service.NewCashService(cashRepo, nil),
	}
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, p Platform, svc *Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(float64(cfg.RateLimitRPS), 2*cfg.RateLimitRPS))

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svc.Auth)
	staffH := handler.NewStaffHandler(svc.Auth)
	categoryH := handler.NewCategoryHandler(svc.Categories)
	menuH := handler.NewMenuHandler(svc.Menu)
	tableH := handler.NewTableHandler(svc.Tables)
	settingsH := handler.NewSettingsHandler(svc.Settings)
	orderH := handler.NewOrderHandler(svc.Orders)
	billH := handler.NewBillHandler(svc.Bills, svc.Reports)
	cashH := handler.NewCashHandler(svc.Cash)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(p.DB, p.Redis))
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	anyRole := middleware.RequireRole(roleStaff, roleManager, roleAdmin)
	managers := middleware.RequireRole(roleManager, roleAdmin)

	staff := v1.Group("/staff", middleware.RequireRole(roleAdmin))
	{
		staff.POST("", staffH.Create)
		staff.GET("", staffH.List)
		staff.PUT("/:id", staffH.Update)
		staff.DELETE("/:id", staffH.Deactivate)
	}

	// Catalog reads feed the order screen; writes are for managers.
	v1.GET("/categories", anyRole, categoryH.List)
	v1.POST("/categories", managers, categoryH.Create)
	v1.PUT("/categories/:id", managers, categoryH.Update)
	v1.DELETE("/categories/:id", managers, categoryH.Deactivate)

	v1.GET("/menu", anyRole, menuH.List)
	v1.GET("/menu/:id", anyRole, menuH.Get)
	v1.POST("/menu", managers, menuH.Create)
	v1.PUT("/menu/:id", managers, menuH.Update)
	v1.DELETE("/menu/:id", managers, menuH.Delete)

	v1.GET("/settings", anyRole, settingsH.Get)
	v1.PUT("/settings", managers, settingsH.Update)

	v1.GET("/tables", anyRole, tableH.List)
	v1.POST("/tables", managers, tableH.Create)
	v1.PUT("/tables/:id", managers, tableH.Update)
	v1.DELETE("/tables/:id", managers, tableH.Delete)

	table := v1.Group("/tables/:id", anyRole)
	{
		table.GET("/cart", orderH.Cart)
		table.POST("/cart/items", orderH.AddItem)
		table.PATCH("/cart/items/:itemId", orderH.UpdateItem)
		table.DELETE("/cart/items/:itemId", orderH.RemoveItem)

		table.POST("/kots", orderH.CutKOT)
		table.GET("/kots", orderH.ListKOTs)
		table.POST("/kots/print", orderH.PrintKOTs)

		table.POST("/bill/preview", billH.Preview)
		table.POST("/bill", billH.Save)
	}

	bills := v1.Group("/bills", anyRole)
	{
		bills.GET("", billH.List)
		bills.GET("/:id", billH.Get)
		bills.POST("/:id/print", billH.Print)
		bills.POST("/:id/reopen", managers, billH.Reopen)
	}

	cash := v1.Group("/cash", managers)
	{
		cash.POST("", cashH.Create)
		cash.GET("", cashH.List)
		cash.PUT("/:id", cashH.Update)
		cash.DELETE("/:id", cashH.Delete)
	}

	v1.GET("/reports/bills.xlsx", managers, billH.Report)
	v1.GET("/reports/summary", managers, billH.Summary)

	return r
}
