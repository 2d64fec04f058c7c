package db

import (
	"github.com/gozba-na-klik/checkout-gateway/internal/app/model"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
)

// Migrate runs database migrations. The gateway only owns cart state;
// everything else lives in the Gozba core API.
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.CartLine{},
		&model.CartLineAddon{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
