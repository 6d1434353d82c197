package main

import (
	"context"
	"fmt"
	"log"

	"github.com/agamariel/teastore/internal/auth"
	"github.com/agamariel/teastore/internal/config"
	"github.com/agamariel/teastore/internal/handlers"
	"github.com/agamariel/teastore/internal/migrations"
	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/pgtools"
	"github.com/agamariel/teastore/internal/services"
	"github.com/agamariel/teastore/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// App структура для управления приложением и его зависимостями.
type App struct {
	cfg       *config.Config
	dbPool    *pgxpool.Pool
	echo      *echo.Echo
	scheduler *services.BackupScheduler

	userStorage storage.UserStorage

	// Handlers
	orderHandler   *handlers.OrderHandler
	backupHandler  *handlers.BackupHandler
	restoreHandler *handlers.RestoreHandler
}

// NewApp создаёт и инициализирует новое приложение.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg: cfg,
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initDependencies(); err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	if err := app.seedServiceAccounts(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed service accounts: %w", err)
	}

	app.initServer()

	return app, nil
}

// initDatabase инициализирует подключение к базе данных и выполняет миграции.
func (app *App) initDatabase(ctx context.Context) error {
	if app.cfg.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}

	// Применение миграций
	log.Println("Running database migrations...")
	if err := migrations.RunURI(app.cfg.DatabaseURI); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Println("Migrations completed successfully")

	// Подключение к базе данных через pgxpool
	dbPool, err := pgxpool.New(ctx, app.cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	app.dbPool = dbPool
	log.Println("Successfully connected to database")

	return nil
}

// initDependencies инициализирует все зависимости приложения (storage, services, handlers).
func (app *App) initDependencies() error {
	// Storage layer
	userStorage := storage.NewPostgresUserStorage(app.dbPool)
	orderStorage := storage.NewPostgresOrderStorage(app.dbPool)
	productStorage := storage.NewPostgresProductStorage(app.dbPool)
	cartStorage := storage.NewPostgresCartStorage(app.dbPool)
	backupStorage := storage.NewPostgresBackupStorage(app.dbPool)
	settingsStorage := storage.NewPostgresSettingsStorage(app.dbPool)
	exportStorage := storage.NewPostgresExportStorage(app.dbPool)
	app.userStorage = userStorage

	tools := pgtools.NewCommandTools(app.cfg.PgDumpPath, app.cfg.PsqlPath, app.cfg.DatabaseURI)

	// Service layer
	orderService := services.NewOrderService(app.dbPool, orderStorage, productStorage, cartStorage, userStorage)
	backupService := services.NewBackupService(backupStorage, exportStorage, tools, app.cfg.BackupRoot, app.cfg.CriticalTables)
	restoreService := services.NewRestoreService(
		app.dbPool, exportStorage, userStorage, tools,
		func() error { return migrations.RunURI(app.cfg.DatabaseURI) },
		app.cfg.CriticalTables, app.cfg.RecoveryTables,
		app.serviceAccounts(), log.Default(),
	)
	app.scheduler = services.NewBackupScheduler(backupService, backupStorage, settingsStorage, app.cfg.SchedulerInterval, log.Default())

	// Handler layer
	app.orderHandler = handlers.NewOrderHandler(orderService)
	app.backupHandler = handlers.NewBackupHandler(backupService, app.scheduler)
	app.restoreHandler = handlers.NewRestoreHandler(restoreService, app.cfg.RestoreTmpDir, app.cfg.RestoreMaxBytes)

	return nil
}

// serviceAccounts описывает учётки, существование которых гарантируется
// на старте и после восстановления базы.
func (app *App) serviceAccounts() []services.AdminAccount {
	return []services.AdminAccount{
		{
			Email:    app.cfg.AdminEmail,
			Password: app.cfg.AdminPassword,
			Name:     "Administrator",
			Role:     models.RoleAdmin,
		},
		{
			Email:    app.cfg.SuperAdminEmail,
			Password: app.cfg.SuperAdminPassword,
			Name:     "Super Administrator",
			Role:     models.RoleSuperAdmin,
		},
	}
}

// seedServiceAccounts создаёт или чинит служебные учётки при старте.
func (app *App) seedServiceAccounts(ctx context.Context) error {
	for _, account := range app.serviceAccounts() {
		// Хеш bcrypt разный при каждом вызове: без проверки пароль
		// перезаписывался бы на каждом старте.
		if existing, err := app.userStorage.GetByEmail(ctx, account.Email); err == nil &&
			auth.CheckPassword(account.Password, existing.PasswordHash) {
			continue
		}

		hash, err := auth.HashPassword(account.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", account.Email, err)
		}
		if err := app.userStorage.EnsureAccount(ctx, account.Email, hash, account.Name, account.Role); err != nil {
			return fmt.Errorf("ensure account %s: %w", account.Email, err)
		}
	}
	return nil
}

// initServer инициализирует HTTP-сервер и настраивает маршруты.
func (app *App) initServer() {
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	api := e.Group("/api")
	api.Use(auth.JWTMiddleware(app.cfg.JWTSecret))

	// Заказы текущего пользователя
	api.POST("/orders", app.orderHandler.CreateOrder)
	api.POST("/orders/quick-buy", app.orderHandler.QuickBuy)
	api.GET("/orders", app.orderHandler.GetOrders)
	api.GET("/orders/:id", app.orderHandler.GetOrder)

	// Администрирование заказов
	admin := api.Group("/admin", auth.RequireAdmin)
	admin.GET("/orders", app.orderHandler.ListOrders)
	admin.PUT("/orders/:id/status", app.orderHandler.UpdateStatus)

	// Резервное копирование
	backup := api.Group("/backup", auth.RequireAdmin)
	backup.POST("/create", app.backupHandler.CreateBackup)
	backup.GET("/history", app.backupHandler.GetBackups)
	backup.GET("/drives", app.backupHandler.GetDrives)
	backup.GET("/auto-settings", app.backupHandler.GetAutoSettings)
	backup.POST("/auto-settings", app.backupHandler.UpdateAutoSettings)
	backup.GET("/:id", app.backupHandler.GetBackup)
	backup.GET("/:id/download", app.backupHandler.DownloadBackup)
	backup.DELETE("/:id", app.backupHandler.DeleteBackup)

	// Восстановление уничтожает текущие данные, доступ только
	// супер-администратору.
	api.POST("/restore", app.restoreHandler.Restore, auth.RequireSuperAdmin)

	app.echo = e
}

// Start запускает приложение.
func (app *App) Start(ctx context.Context) error {
	log.Println("Starting backup scheduler...")
	app.scheduler.Start(ctx)

	log.Printf("Starting server on %s", app.cfg.RunAddress)
	if err := app.echo.Start(app.cfg.RunAddress); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}

	return nil
}

// Shutdown корректно завершает работу приложения.
func (app *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if err := app.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	if app.dbPool != nil {
		app.dbPool.Close()
	}

	log.Println("Server gracefully stopped")
	return nil
}
