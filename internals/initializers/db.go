package initializers

import (
	"fmt"

	"github.com/odeyarrenukaradhya/placement-support/internals/config"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Global DB variable to be used across the application
var DB *gorm.DB

func ConnectToDb() {
	var err error
	dsn := config.GetEnvAsStr("DB_URL", "placement.db")
	fmt.Println("Connecting to database at:", dsn)

	DB, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("Failed to connect to DB")
	}
}
