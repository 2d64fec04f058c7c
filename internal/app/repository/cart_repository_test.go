package repository

import (
	"testing"
	"time"

	"github.com/gozba-na-klik/checkout-gateway/internal/app/model"
	"github.com/gozba-na-klik/checkout-gateway/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartRepositoryTest(t *testing.T) (CartRepository, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	return NewCartRepository(testDB), testDB
}

func testLine(lineID string, mealID uint, quantity int, addons ...model.CartLineAddon) model.CartLine {
	return model.CartLine{
		LineID:    lineID,
		MealID:    mealID,
		MealName:  "Test Meal",
		UnitPrice: 450,
		Quantity:  quantity,
		Addons:    addons,
	}
}

func TestCartRepository_FindByOwner_Empty(t *testing.T) {
	repo, _ := setupCartRepositoryTest(t)

	lines, err := repo.FindByOwner(1, 10)
	assert.NoError(t, err)
	assert.Len(t, lines, 0)
}

func TestCartRepository_ReplaceLines_RoundTrip(t *testing.T) {
	repo, _ := setupCartRepositoryTest(t)

	err := repo.ReplaceLines(1, 10, []model.CartLine{
		testLine("line-a", 7, 2,
			model.CartLineAddon{AddonID: 9, Name: "Extra cheese", Price: 50},
			model.CartLineAddon{AddonID: 3, Name: "Ketchup", Price: 20},
		),
		testLine("line-b", 8, 1),
	})
	require.NoError(t, err)

	lines, err := repo.FindByOwner(1, 10)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "line-a", lines[0].LineID)
	assert.Equal(t, uint(7), lines[0].MealID)
	require.Len(t, lines[0].Addons, 2)
	// Add-ons come back in selection order, not id order
	assert.Equal(t, uint(9), lines[0].Addons[0].AddonID)
	assert.Equal(t, uint(3), lines[0].Addons[1].AddonID)

	assert.Equal(t, "line-b", lines[1].LineID)
	assert.Len(t, lines[1].Addons, 0)
}

func TestCartRepository_ReplaceLines_ReplacesNotAppends(t *testing.T) {
	repo, _ := setupCartRepositoryTest(t)

	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{
		testLine("line-a", 7, 2, model.CartLineAddon{AddonID: 9, Name: "Extra cheese", Price: 50}),
	}))
	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{
		testLine("line-b", 8, 1),
	}))

	lines, err := repo.FindByOwner(1, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "line-b", lines[0].LineID)
}

func TestCartRepository_ReplaceLines_EmptyClearsCart(t *testing.T) {
	repo, _ := setupCartRepositoryTest(t)

	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{testLine("line-a", 7, 2)}))
	require.NoError(t, repo.ReplaceLines(1, 10, nil))

	lines, err := repo.FindByOwner(1, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 0)
}

func TestCartRepository_ReplaceLines_DeletesOrphanAddons(t *testing.T) {
	repo, testDB := setupCartRepositoryTest(t)

	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{
		testLine("line-a", 7, 2, model.CartLineAddon{AddonID: 9, Name: "Extra cheese", Price: 50}),
	}))
	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{
		testLine("line-b", 8, 1),
	}))

	var addonCount int64
	require.NoError(t, testDB.Model(&model.CartLineAddon{}).Count(&addonCount).Error)
	assert.Equal(t, int64(0), addonCount)
}

func TestCartRepository_OwnerIsolation(t *testing.T) {
	repo, _ := setupCartRepositoryTest(t)

	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{testLine("line-a", 7, 1)}))
	require.NoError(t, repo.ReplaceLines(1, 20, []model.CartLine{testLine("line-b", 8, 1)}))
	require.NoError(t, repo.ReplaceLines(2, 10, []model.CartLine{testLine("line-c", 9, 1)}))

	// Replacing customer 1's cart at restaurant 10 touches nothing else
	require.NoError(t, repo.ReplaceLines(1, 10, nil))

	lines, err := repo.FindByOwner(1, 20)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	lines, err = repo.FindByOwner(2, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCartRepository_Clear(t *testing.T) {
	repo, _ := setupCartRepositoryTest(t)

	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{
		testLine("line-a", 7, 2, model.CartLineAddon{AddonID: 9, Name: "Extra cheese", Price: 50}),
	}))

	require.NoError(t, repo.Clear(1, 10))

	lines, err := repo.FindByOwner(1, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 0)
}

func TestCartRepository_RestaurantIDs(t *testing.T) {
	repo, _ := setupCartRepositoryTest(t)

	require.NoError(t, repo.ReplaceLines(1, 20, []model.CartLine{testLine("line-a", 7, 1)}))
	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{testLine("line-b", 8, 1)}))
	require.NoError(t, repo.ReplaceLines(2, 30, []model.CartLine{testLine("line-c", 9, 1)}))

	ids, err := repo.RestaurantIDs(1)
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 20}, ids)
}

func TestCartRepository_DeleteStale(t *testing.T) {
	repo, testDB := setupCartRepositoryTest(t)

	require.NoError(t, repo.ReplaceLines(1, 10, []model.CartLine{
		testLine("line-old", 7, 1, model.CartLineAddon{AddonID: 9, Name: "Extra cheese", Price: 50}),
	}))
	require.NoError(t, repo.ReplaceLines(1, 20, []model.CartLine{
		testLine("line-fresh", 8, 1),
	}))

	// Age the first cart past the cutoff
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, testDB.Model(&model.CartLine{}).
		Where("line_id = ?", "line-old").
		Update("updated_at", old).Error)

	deleted, err := repo.DeleteStale(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	lines, err := repo.FindByOwner(1, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 0)

	lines, err = repo.FindByOwner(1, 20)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	var addonCount int64
	require.NoError(t, testDB.Model(&model.CartLineAddon{}).Count(&addonCount).Error)
	assert.Equal(t, int64(0), addonCount)
}
