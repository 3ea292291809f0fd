package main

import (
	"log"
	"os"

	"github.com/odeyarrenukaradhya/placement-support/internals/initializers"
	"github.com/odeyarrenukaradhya/placement-support/internals/routes"

	"github.com/joho/godotenv"
)

func init() {
	// Check if .env exists before trying to load it, so the app doesn't crash
	// in environments where env vars are injected directly.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatal("Error loading .env file")
		}
	}

	initializers.ConnectToDb()
	initializers.SyncDatabase()

	initializers.StartOTPCleanup()
}

func main() {
	r := routes.SetupRouter(initializers.DB)
	r.Run()
}
