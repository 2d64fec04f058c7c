package repository

import (
	"time"

	"github.com/gozba-na-klik/checkout-gateway/internal/app/model"
	"github.com/gozba-na-klik/checkout-gateway/pkg/logger"
	"gorm.io/gorm"
)

// CartRepository is durable per-customer, per-restaurant line storage. The
// composite (customer, restaurant) key is the unit of replacement: callers
// read the whole line list, mutate it, and write it back.
type CartRepository interface {
	FindByOwner(customerID, restaurantID uint) ([]model.CartLine, error)
	ReplaceLines(customerID, restaurantID uint, lines []model.CartLine) error
	Clear(customerID, restaurantID uint) error
	RestaurantIDs(customerID uint) ([]uint, error)
	DeleteStale(cutoff time.Time) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByOwner(customerID, restaurantID uint) ([]model.CartLine, error) {
	logger.Debug("Finding cart lines in database", map[string]interface{}{
		"customer_id":   customerID,
		"restaurant_id": restaurantID,
	})

	var lines []model.CartLine
	err := r.db.
		Where("customer_id = ? AND restaurant_id = ?", customerID, restaurantID).
		Preload("Addons", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_line_addons.position ASC")
		}).
		Order("cart_lines.id ASC").
		Find(&lines).Error
	if err != nil {
		logger.Error("Failed to find cart lines in database", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		return nil, err
	}

	return lines, nil
}

func (r *cartRepository) ReplaceLines(customerID, restaurantID uint, lines []model.CartLine) error {
	logger.Debug("Replacing cart lines in database", map[string]interface{}{
		"customer_id":   customerID,
		"restaurant_id": restaurantID,
		"line_count":    len(lines),
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteOwnerLines(tx, customerID, restaurantID); err != nil {
			return err
		}

		for i := range lines {
			lines[i].ID = 0
			lines[i].CustomerID = customerID
			lines[i].RestaurantID = restaurantID
			for j := range lines[i].Addons {
				lines[i].Addons[j].ID = 0
				lines[i].Addons[j].CartLineID = 0
				lines[i].Addons[j].Position = j
			}
		}

		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&lines).Error
	})
	if err != nil {
		logger.Error("Failed to replace cart lines in database", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		return err
	}

	return nil
}

func (r *cartRepository) Clear(customerID, restaurantID uint) error {
	logger.Debug("Clearing cart in database", map[string]interface{}{
		"customer_id":   customerID,
		"restaurant_id": restaurantID,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return deleteOwnerLines(tx, customerID, restaurantID)
	})
	if err != nil {
		logger.Error("Failed to clear cart in database", err, map[string]interface{}{
			"customer_id":   customerID,
			"restaurant_id": restaurantID,
		})
		return err
	}

	return nil
}

func (r *cartRepository) RestaurantIDs(customerID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.CartLine{}).
		Where("customer_id = ?", customerID).
		Distinct().
		Order("restaurant_id ASC").
		Pluck("restaurant_id", &ids).Error
	if err != nil {
		logger.Error("Failed to list cart restaurants in database", err, map[string]interface{}{
			"customer_id": customerID,
		})
		return nil, err
	}
	return ids, nil
}

func (r *cartRepository) DeleteStale(cutoff time.Time) (int64, error) {
	logger.Debug("Deleting stale cart lines from database", map[string]interface{}{
		"cutoff": cutoff,
	})

	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.CartLine{}).
			Where("updated_at < ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("cart_line_id IN ?", ids).
			Delete(&model.CartLineAddon{}).Error; err != nil {
			return err
		}

		res := tx.Where("id IN ?", ids).Delete(&model.CartLine{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete stale cart lines from database", err, map[string]interface{}{
			"cutoff": cutoff,
		})
		return 0, err
	}

	return deleted, nil
}

// deleteOwnerLines hard-deletes a cart and its addon rows. The addon rows go
// first because SQLite in tests does not enforce the cascade constraint.
func deleteOwnerLines(tx *gorm.DB, customerID, restaurantID uint) error {
	var ids []uint
	if err := tx.Model(&model.CartLine{}).
		Where("customer_id = ? AND restaurant_id = ?", customerID, restaurantID).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if err := tx.Where("cart_line_id IN ?", ids).
		Delete(&model.CartLineAddon{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&model.CartLine{}).Error
}
