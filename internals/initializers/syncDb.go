package initializers

import (
	"github.com/odeyarrenukaradhya/placement-support/internals/models"
)

func SyncDatabase() {
	err := DB.AutoMigrate(
		&models.User{},
		&models.LoginOTP{},
		&models.Exam{},
		&models.Question{},
		&models.Attempt{},
		&models.IntegrityLog{},
	)
	if err != nil {
		panic("Failed to migrate database")
	}
}
