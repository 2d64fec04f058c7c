package service

import (
	"context"
	"errors"
	"testing"

	"github.com/gozba-na-klik/checkout-gateway/internal/app/model"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/repository"
	"github.com/gozba-na-klik/checkout-gateway/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRecorder is an in-memory ActiveCartRecorder. Set failSet to simulate a
// Redis outage.
type fakeRecorder struct {
	active  map[uint]uint
	failSet bool
	sets    int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{active: make(map[uint]uint)}
}

func (r *fakeRecorder) SetActiveCart(ctx context.Context, customerID, restaurantID uint) error {
	r.sets++
	if r.failSet {
		return errors.New("redis unavailable")
	}
	r.active[customerID] = restaurantID
	return nil
}

func (r *fakeRecorder) GetActiveCart(ctx context.Context, customerID uint) (uint, bool, error) {
	id, ok := r.active[customerID]
	return id, ok, nil
}

func setupCartServiceTest(t *testing.T) (CartService, *fakeRecorder, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	recorder := newFakeRecorder()
	cartService := NewCartService(repository.NewCartRepository(testDB), recorder)
	return cartService, recorder, testDB
}

func burger(price float64) MealSnapshot {
	return MealSnapshot{ID: 7, Name: "Pljeskavica", ImagePath: "/img/pljeskavica.jpg", Price: price}
}

func cheese() AddonSnapshot {
	return AddonSnapshot{ID: 9, Name: "Extra cheese", Price: 50}
}

func TestCartService_AddLine_NewLine(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	err := svc.AddLine(ctx, 1, 10, burger(450), 2, []AddonSnapshot{cheese()})
	require.NoError(t, err)

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, uint(7), lines[0].MealID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, 450.0, lines[0].UnitPrice)
	assert.NotEmpty(t, lines[0].LineID)
	require.Len(t, lines[0].Addons, 1)
	assert.Equal(t, uint(9), lines[0].Addons[0].AddonID)
}

func TestCartService_AddLine_MergesSameSelection(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 2, []AddonSnapshot{cheese()}))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 3, []AddonSnapshot{cheese()}))

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestCartService_AddLine_DifferentAddonsMakeNewLine(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	// Same meal id 7: plain, with add-on 9, and with add-on 9 picked twice.
	// All three are distinct selections.
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, []AddonSnapshot{cheese()}))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, []AddonSnapshot{cheese(), cheese()}))

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestCartService_AddLine_AddonOrderDoesNotMatter(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	ketchup := AddonSnapshot{ID: 3, Name: "Ketchup", Price: 20}

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, []AddonSnapshot{cheese(), ketchup}))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, []AddonSnapshot{ketchup, cheese()}))

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCartService_AddLine_MissingMealIDIsNoOp(t *testing.T) {
	svc, recorder, _ := setupCartServiceTest(t)
	ctx := context.Background()

	err := svc.AddLine(ctx, 1, 10, MealSnapshot{Name: "Ghost meal"}, 1, nil)
	assert.NoError(t, err)

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 0)
	assert.Equal(t, 0, recorder.sets)
}

func TestCartService_AddLine_QuantityBelowOneDefaultsToOne(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 0, nil))

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestCartService_AddLine_RecorderFailureDoesNotFailAdd(t *testing.T) {
	svc, recorder, _ := setupCartServiceTest(t)
	recorder.failSet = true
	ctx := context.Background()

	err := svc.AddLine(ctx, 1, 10, burger(450), 1, nil)
	assert.NoError(t, err)

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCartService_AddLine_RecordsLastActiveCart(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))
	require.NoError(t, svc.AddLine(ctx, 1, 20, MealSnapshot{ID: 8, Name: "Sarma", Price: 380}, 1, nil))

	id, ok, err := svc.LastActiveCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(20), id)
}

func TestCartService_UpdateQuantity(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 2, nil))
	lines, _ := svc.GetCart(ctx, 1, 10)
	require.Len(t, lines, 1)

	err := svc.UpdateQuantity(ctx, 1, 10, lines[0].LineID, 5)
	require.NoError(t, err)

	lines, _ = svc.GetCart(ctx, 1, 10)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestCartService_UpdateQuantity_UnknownLine(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	err := svc.UpdateQuantity(ctx, 1, 10, "no-such-line", 5)
	assert.ErrorIs(t, err, ErrCartLineNotFound)
}

func TestCartService_RemoveLine(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, []AddonSnapshot{cheese()}))
	lines, _ := svc.GetCart(ctx, 1, 10)
	require.Len(t, lines, 2)

	err := svc.RemoveLine(ctx, 1, 10, lines[0].LineID)
	require.NoError(t, err)

	lines, _ = svc.GetCart(ctx, 1, 10)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Addons, 1)
}

func TestCartService_RemoveLine_UnknownLine(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)

	err := svc.RemoveLine(context.Background(), 1, 10, "no-such-line")
	assert.ErrorIs(t, err, ErrCartLineNotFound)
}

func TestCartService_PositionalAdapters(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, []AddonSnapshot{cheese()}))

	require.NoError(t, svc.UpdateQuantityAt(ctx, 1, 10, 1, 4))
	require.NoError(t, svc.RemoveLineAt(ctx, 1, 10, 0))

	lines, _ := svc.GetCart(ctx, 1, 10)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	require.Len(t, lines[0].Addons, 1)
}

func TestCartService_PositionalAdapters_OutOfRangeIsNoOp(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))

	assert.NoError(t, svc.UpdateQuantityAt(ctx, 1, 10, 5, 2))
	assert.NoError(t, svc.RemoveLineAt(ctx, 1, 10, -1))
	assert.NoError(t, svc.RemoveLineAt(ctx, 1, 10, 3))

	lines, _ := svc.GetCart(ctx, 1, 10)
	assert.Len(t, lines, 1)
}

func TestCartService_ClearCart_IsolatedPerRestaurant(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))
	require.NoError(t, svc.AddLine(ctx, 1, 20, MealSnapshot{ID: 8, Name: "Sarma", Price: 380}, 1, nil))

	require.NoError(t, svc.ClearCart(ctx, 1, 10))

	lines, _ := svc.GetCart(ctx, 1, 10)
	assert.Len(t, lines, 0)
	lines, _ = svc.GetCart(ctx, 1, 20)
	assert.Len(t, lines, 1)
}

func TestCartService_ItemCount(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	count, err := svc.ItemCount(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 2, nil))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 3, []AddonSnapshot{cheese()}))

	count, err = svc.ItemCount(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCartService_GetCart_HealsLinesWithoutMealID(t *testing.T) {
	svc, _, testDB := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))

	// Inject a corrupt row straight into the store
	require.NoError(t, testDB.Create(&model.CartLine{
		LineID:       "corrupt-line",
		CustomerID:   1,
		RestaurantID: 10,
		MealID:       0,
		MealName:     "Ghost meal",
		Quantity:     1,
	}).Error)

	lines, err := svc.GetCart(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, uint(7), lines[0].MealID)

	// The corrupt row was removed from storage, not just filtered
	var count int64
	require.NoError(t, testDB.Model(&model.CartLine{}).
		Where("customer_id = ? AND restaurant_id = ?", 1, 10).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCartService_CartRestaurants(t *testing.T) {
	svc, _, _ := setupCartServiceTest(t)
	ctx := context.Background()

	require.NoError(t, svc.AddLine(ctx, 1, 20, burger(450), 1, nil))
	require.NoError(t, svc.AddLine(ctx, 1, 10, burger(450), 1, nil))

	ids, err := svc.CartRestaurants(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 20}, ids)
}
