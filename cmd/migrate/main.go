package main

import (
	"log"
	"os"

	"storefront-chat-be/internal/model"
	"storefront-chat-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer database.CloseGormDB(db)

	// 3. AutoMigrate. The users table belongs to the auth service and is
	// only read from here.
	color.Cyan("Running AutoMigrate for chat tables...")
	if err := db.AutoMigrate(&model.ChatMessage{}); err != nil {
		color.Red("Error: AutoMigrate failed: %v", err)
		os.Exit(1)
	}

	color.Green("✅ Success: chat migration completed.")
}
