package model

import (
	"sort"
	"time"
)

// CartLine is one entry in a customer's per-restaurant cart: a meal plus its
// chosen add-ons and a quantity. Name, image path and prices are snapshots
// taken at add time and never re-fetched.
type CartLine struct {
	ID            uint      `gorm:"primarykey" json:"-"`
	LineID        string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"line_id"`
	CustomerID    uint      `gorm:"not null;index:idx_cart_lines_owner" json:"customer_id"`
	RestaurantID  uint      `gorm:"not null;index:idx_cart_lines_owner" json:"restaurant_id"`
	MealID        uint      `gorm:"index" json:"meal_id"`
	MealName      string    `gorm:"size:200" json:"meal_name"`
	MealImagePath string    `gorm:"size:500" json:"meal_image_path"`
	UnitPrice     float64   `gorm:"not null" json:"unit_price"`
	Quantity      int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Addons []CartLineAddon `gorm:"foreignKey:CartLineID;constraint:OnDelete:CASCADE" json:"addons"`
}

func (CartLine) TableName() string {
	return "cart_lines"
}

// CartLineAddon is an add-on snapshot attached to a cart line. Position
// preserves the order the customer picked them in.
type CartLineAddon struct {
	ID         uint    `gorm:"primarykey" json:"-"`
	CartLineID uint    `gorm:"not null;index" json:"-"`
	AddonID    uint    `gorm:"not null" json:"addon_id"`
	Name       string  `gorm:"size:200" json:"name"`
	Price      float64 `gorm:"not null" json:"price"`
	Position   int     `gorm:"not null;default:0" json:"-"`
}

func (CartLineAddon) TableName() string {
	return "cart_line_addons"
}

// AddonIDs returns the add-on ids in selection order.
func (l *CartLine) AddonIDs() []uint {
	ids := make([]uint, 0, len(l.Addons))
	for _, a := range l.Addons {
		ids = append(ids, a.AddonID)
	}
	return ids
}

// MatchesSelection reports whether the line holds the same meal with the
// same add-on selection. Add-on ids are compared as sorted lists, so
// duplicate picks of the same add-on are significant.
func (l *CartLine) MatchesSelection(mealID uint, addonIDs []uint) bool {
	if l.MealID != mealID {
		return false
	}
	mine := sortedIDs(l.AddonIDs())
	theirs := sortedIDs(addonIDs)
	if len(mine) != len(theirs) {
		return false
	}
	for i := range mine {
		if mine[i] != theirs[i] {
			return false
		}
	}
	return true
}

func sortedIDs(ids []uint) []uint {
	out := make([]uint, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
