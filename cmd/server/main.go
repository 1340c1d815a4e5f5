package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/erimeilis/store-sub004/internal/application/services"
	"github.com/erimeilis/store-sub004/internal/bootstrap"
	"github.com/erimeilis/store-sub004/internal/infrastructure/database"
	"github.com/erimeilis/store-sub004/internal/interfaces/middleware"
	"github.com/erimeilis/store-sub004/internal/interfaces/rest"
)

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize database connection
	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Initialize service manager
	svcMgr, err := services.NewServiceManager(db, os.Getenv("SWEEP_SCHEDULE"))
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	log.Println("🔧 Service manager initialized")

	// Create Gin router
	router := gin.Default()

	router.Use(middleware.Cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"server": "golang",
		})
	})

	// Debug/pprof endpoints for goroutine debugging
	debug := router.Group("/debug/pprof")
	{
		debug.GET("/goroutine", gin.WrapH(http.DefaultServeMux))
		debug.GET("/heap", gin.WrapH(http.DefaultServeMux))
		debug.GET("/profile", gin.WrapH(http.DefaultServeMux))
		debug.GET("/trace", gin.WrapH(http.DefaultServeMux))
	}

	// Initialize handlers
	tableHandler := rest.NewTableHandler(svcMgr)
	rowHandler := rest.NewRowHandler(svcMgr)
	conversionHandler := rest.NewConversionHandler(svcMgr)
	inventoryHandler := rest.NewInventoryHandler(svcMgr)
	tokenHandler := rest.NewTokenHandler(svcMgr)
	consoleHandler := rest.NewConsoleHandler(svcMgr)
	publicHandler := rest.NewPublicHandler(svcMgr)

	// Public API: opaque bearer tokens, camelCase wire format
	public := router.Group("/api/public")
	public.Use(middleware.RequireAPIToken(svcMgr.Access))
	{
		public.GET("/tables", publicHandler.Tables)
		public.GET("/tables/search", publicHandler.Search)
		public.GET("/tables/:tableId/items", publicHandler.Items)
		public.GET("/tables/:tableId/items/:itemId", publicHandler.Item)
		public.GET("/tables/:tableId/items/:itemId/availability", publicHandler.Availability)
		public.GET("/records", publicHandler.Records)
		public.GET("/values/:column", publicHandler.Values)
		public.POST("/buy", publicHandler.Buy)
		public.POST("/rent", publicHandler.Rent)
		public.POST("/release", publicHandler.Release)
	}

	// Authenticated API: JWT users manage their tables and rows
	tables := router.Group("/api/tables")
	tables.Use(middleware.RequireUser())
	{
		tables.GET("", tableHandler.List)
		tables.POST("", tableHandler.Create)
		tables.GET("/:tableId", tableHandler.Get)
		tables.PUT("/:tableId", tableHandler.Update)
		tables.DELETE("/:tableId", tableHandler.Delete)

		tables.POST("/:tableId/columns", tableHandler.AddColumn)
		tables.PUT("/:tableId/columns/:columnId", tableHandler.UpdateColumn)
		tables.DELETE("/:tableId/columns/:columnId", tableHandler.DeleteColumn)

		tables.GET("/:tableId/rules", tableHandler.ListRules)
		tables.POST("/:tableId/rules", tableHandler.CreateRule)
		tables.PUT("/:tableId/rules/:ruleId", tableHandler.UpdateRule)
		tables.DELETE("/:tableId/rules/:ruleId", tableHandler.DeleteRule)

		tables.GET("/:tableId/rows", rowHandler.List)
		tables.POST("/:tableId/rows", rowHandler.Create)
		tables.GET("/:tableId/rows/:rowId", rowHandler.Get)
		tables.PUT("/:tableId/rows/:rowId", rowHandler.Update)
		tables.DELETE("/:tableId/rows/:rowId", rowHandler.Delete)
		tables.POST("/:tableId/rows/mass-delete", rowHandler.MassDelete)
		tables.GET("/:tableId/values/:column", rowHandler.Values)

		tables.GET("/:tableId/convert/preview", conversionHandler.Preview)
		tables.POST("/:tableId/convert", conversionHandler.Apply)
		tables.GET("/:tableId/rentals/overdue", inventoryHandler.Overdue)
	}

	// Admin API: sale/rental records, API tokens, SQL console
	admin := router.Group("/api/admin")
	admin.Use(middleware.RequireUser(), middleware.RequireAdmin())
	{
		admin.GET("/tokens", tokenHandler.List)
		admin.POST("/tokens", tokenHandler.Create)
		admin.GET("/tokens/:id", tokenHandler.Get)
		admin.PUT("/tokens/:id", tokenHandler.Update)
		admin.DELETE("/tokens/:id", tokenHandler.Delete)

		admin.GET("/sales", inventoryHandler.ListSales)
		admin.GET("/sales/:id", inventoryHandler.GetSale)
		admin.PUT("/sales/:id", inventoryHandler.UpdateSale)

		admin.GET("/rentals", inventoryHandler.ListRentals)
		admin.GET("/rentals/:id", inventoryHandler.GetRental)
		admin.PUT("/rentals/:id", inventoryHandler.UpdateRental)

		admin.POST("/query", consoleHandler.Query)
	}

	// Start background sweep loop
	svcMgr.StartSweeper()
	log.Println("⏰ Sweeper started")

	log.Printf("🚀 Server listening on http://localhost:%s", port)
	log.Printf("💚 Health check:   http://localhost:%s/health", port)

	// Create HTTP Server
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	svcMgr.StopSweeper()
	log.Println("🛑 Sweeper stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
