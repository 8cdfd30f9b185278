package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"manuscript-review-api/config"
	"manuscript-review-api/controllers"
	"manuscript-review-api/middleware"
	"manuscript-review-api/models"
	"manuscript-review-api/routes"
	"manuscript-review-api/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ Invalid configuration: ", err)
	}

	logFile, logWriter := config.InitLogging(cfg.Paths.LogDir)
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database
	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal("❌ ", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("❌ Failed to migrate database: ", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("❌ Failed to access database handle: ", err)
	}
	defer sqlDB.Close()

	// Create upload directory if not exists
	if err := os.MkdirAll(cfg.Paths.UploadDir, os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create upload directory: %v", err)
	}

	// Wire services
	var mailer services.MailSender
	if cfg.SMTP.Enabled() {
		mailer = config.NewMailer(cfg.SMTP)
	} else {
		log.Println("SMTP not configured; notification emails disabled")
	}
	users := services.NewUserDirectory(db)
	notifications := services.NewNotificationService(db, mailer).WithLinkBase(cfg.AppBaseURL)
	reviews := services.NewReviewLedger(db)
	files := services.NewFileStore(cfg.Paths.UploadDir, cfg.MaxUploadBytes)
	workflow := services.NewWorkflowService(db, users, reviews, notifications, files)
	auth := services.NewAuthService(users, cfg.JWT)

	handler := controllers.NewHandler(workflow, notifications, auth, users, sqlDB)

	// Set Gin mode
	if cfg.GinMode == gin.ReleaseMode || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logWriter
	gin.DefaultErrorWriter = logWriter

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	routes.SetupRoutes(router, handler, auth)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.ServerPort)
		if cfg.IsProduction() {
			log.Printf("🏭 Running in production mode")
		} else {
			log.Printf("🔧 Running in development mode")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	notifications.WaitForMail()
	log.Println("Server exited")
}
