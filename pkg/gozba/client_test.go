package gozba

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "test-api-key",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClient_PreviewOrder(t *testing.T) {
	var gotPath, gotAuth, gotKey string
	var gotDraft OrderDraft

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDraft))

		json.NewEncoder(w).Encode(OrderPreview{
			SubtotalPrice: 950,
			DeliveryFee:   150,
			TotalPrice:    1100,
			HasAllergens:  true,
			Allergens:     []string{"gluten"},
		})
	})

	draft := OrderDraft{
		AddressID: 1,
		Items: []DraftItem{
			{MealID: 7, Quantity: 2, SelectedAddonIDs: []uint{9}},
		},
	}
	preview, err := client.PreviewOrder(context.Background(), "customer-token", 10, draft)
	require.NoError(t, err)

	assert.Equal(t, "/restaurants/10/orders/preview", gotPath)
	assert.Equal(t, "Bearer customer-token", gotAuth)
	assert.Equal(t, "test-api-key", gotKey)
	assert.Equal(t, uint(7), gotDraft.Items[0].MealID)

	assert.Equal(t, 1100.0, preview.TotalPrice)
	assert.True(t, preview.HasAllergens)
	assert.Equal(t, []string{"gluten"}, preview.Allergens)
}

func TestClient_CreateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restaurants/10/orders", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(Order{ID: 555, Status: "pending", TotalPrice: 1100})
	})

	order, err := client.CreateOrder(context.Background(), "customer-token", 10, OrderDraft{AddressID: 1})
	require.NoError(t, err)
	assert.Equal(t, uint(555), order.ID)
	assert.Equal(t, "pending", order.Status)
}

func TestClient_CreateOrder_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(errorEnvelope{
			Error:   CodeRestaurantSuspended,
			Message: "restaurant cannot take orders",
		})
	})

	_, err := client.CreateOrder(context.Background(), "customer-token", 10, OrderDraft{AddressID: 1})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, CodeRestaurantSuspended, apiErr.Code)
}

func TestClient_ListAddresses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/addresses", r.URL.Path)
		json.NewEncoder(w).Encode([]Address{
			{ID: 1, Street: "Knez Mihailova 5", City: "Beograd", PostalCode: "11000", IsDefault: true},
			{ID: 2, Street: "Bulevar oslobodjenja 12", City: "Novi Sad", PostalCode: "21000"},
		})
	})

	addresses, err := client.ListAddresses(context.Background(), "customer-token")
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.True(t, addresses[0].IsDefault)
}

func TestClient_CreateAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var fields AddressFields
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		json.NewEncoder(w).Encode(Address{
			ID: 100, Street: fields.Street, City: fields.City, PostalCode: fields.PostalCode,
		})
	})

	addr, err := client.CreateAddress(context.Background(), "customer-token", AddressFields{
		Street: "Nova ulica 1", City: "Beograd", PostalCode: "11000",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(100), addr.ID)
	assert.Equal(t, "Nova ulica 1", addr.Street)
}

func TestClient_GetRestaurant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restaurants/10", r.URL.Path)
		json.NewEncoder(w).Encode(Restaurant{ID: 10, Name: "Kod Mike", IsOpen: true})
	})

	restaurant, err := client.GetRestaurant(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Kod Mike", restaurant.Name)
}

func TestClient_NetworkError(t *testing.T) {
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"})
	require.NoError(t, err)

	_, err = client.GetRestaurant(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestIsRestaurantSuspended(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "typed code",
			err:  &APIError{StatusCode: 409, Code: CodeRestaurantSuspended, Message: "blocked"},
			want: true,
		},
		{
			name: "legacy message fallback",
			err:  &APIError{StatusCode: 400, Message: "Restaurant is suspended until further notice"},
			want: true,
		},
		{
			name: "legacy message needs bad request status",
			err:  &APIError{StatusCode: 500, Message: "restaurant is suspended"},
			want: false,
		},
		{
			name: "other api error",
			err:  &APIError{StatusCode: 400, Code: "VALIDATION_INVALID_INPUT", Message: "bad draft"},
			want: false,
		},
		{
			name: "not an api error",
			err:  errors.New("restaurant is suspended"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRestaurantSuspended(tt.err))
		})
	}
}
