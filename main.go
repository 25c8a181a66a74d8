package main

import (
	"log"

	"lms/config"
	controllers "lms/controllers/course"
	"lms/database"
	appLogger "lms/logger"
	courseRoutes "lms/routers/courseRoutes"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()

	zl, err := appLogger.New(config.AppConfig.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()
	appLogger.L = zl

	database.ConnectDb()

	controllers.Init(zl, utils.NewCompletionNotifier(config.AppConfig, zl))

	reconciler := utils.NewRollupReconciler(database.Database.Db, controllers.RollupService(), zl)
	scheduler, err := utils.StartRollupScheduler(reconciler, config.AppConfig.RollupReconcileSpec)
	if err != nil {
		zl.Fatal("Failed to start rollup scheduler", "error", err)
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	courseRoutes.SetupCourseRoutes(app)
	courseRoutes.SetupAdminCourseRoutes(app)

	zl.Info("Server is running", "port", config.AppConfig.Port)
	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		zl.Fatal("Server stopped", "error", err)
	}
}
