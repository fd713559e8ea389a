package app

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pthanh137/pbl3-lms/api"
	"github.com/pthanh137/pbl3-lms/config"
	"github.com/pthanh137/pbl3-lms/database"
	"github.com/pthanh137/pbl3-lms/router"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/services/cron"
	"github.com/pthanh137/pbl3-lms/utils/auth"
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Scheduled maintenance jobs, enabled unless CRON_ENABLED=false
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		db := store.DB()
		cronManager = cron.NewCronManager(db, services.NewNotificationService(db), auth.NewBlacklistService(db))
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
		}
	}

	// Defer closing DB and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Setup routes
	router.SetupRoutes(app, store)

	return server.Run()
}
