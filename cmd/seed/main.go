package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gozba-na-klik/checkout-gateway/config"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/model"
	"github.com/gozba-na-klik/checkout-gateway/internal/app/repository"
	"github.com/gozba-na-klik/checkout-gateway/internal/db"
	"github.com/xuri/excelize/v2"
)

// Imports demo cart fixtures from an XLSX sheet into the gateway database.
// Used to prepare QA environments with realistic open carts.
//
// Expected columns:
//
//	customer_id | restaurant_id | meal_id | meal_name | unit_price | quantity | addons
//
// The addons column holds a semicolon-separated list of "id:name:price"
// triples and may be empty.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	cartRepo := repository.NewCartRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	carts, err := readCartsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	total := 0
	for _, lines := range carts {
		total += len(lines)
	}
	fmt.Printf("Carts to import: %d (%d lines)\n", len(carts), total)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	for owner, lines := range carts {
		if err := cartRepo.ReplaceLines(owner.customerID, owner.restaurantID, lines); err != nil {
			log.Fatal("Failed to import cart:", err)
		}
	}

	fmt.Println("Import completed successfully!")
}

type cartOwner struct {
	customerID   uint
	restaurantID uint
}

func readCartsFromXLSX(filePath string) (map[cartOwner][]model.CartLine, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	carts := make(map[cartOwner][]model.CartLine)
	skipped := 0

	for i, row := range rows {
		// First row is the header
		if i == 0 {
			continue
		}
		if len(row) < 6 {
			skipped++
			continue
		}

		customerID, err1 := parseUintCell(row[0])
		restaurantID, err2 := parseUintCell(row[1])
		mealID, err3 := parseUintCell(row[2])
		unitPrice, err4 := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		quantity, err5 := strconv.Atoi(strings.TrimSpace(row[5]))
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			skipped++
			continue
		}
		if mealID == 0 || quantity < 1 {
			skipped++
			continue
		}

		line := model.CartLine{
			LineID:       uuid.NewString(),
			CustomerID:   customerID,
			RestaurantID: restaurantID,
			MealID:       mealID,
			MealName:     strings.TrimSpace(row[3]),
			UnitPrice:    unitPrice,
			Quantity:     quantity,
		}

		if len(row) > 6 {
			addons, err := parseAddons(row[6])
			if err != nil {
				skipped++
				continue
			}
			line.Addons = addons
		}

		owner := cartOwner{customerID: customerID, restaurantID: restaurantID}
		carts[owner] = append(carts[owner], line)
	}

	if skipped > 0 {
		fmt.Printf("Skipped %d invalid rows\n", skipped)
	}
	return carts, nil
}

func parseUintCell(cell string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(cell), 10, 64)
	return uint(n), err
}

// parseAddons parses "id:name:price" triples separated by semicolons.
func parseAddons(cell string) ([]model.CartLineAddon, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	var addons []model.CartLineAddon
	for i, part := range strings.Split(cell, ";") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed addon %q", part)
		}
		id, err := parseUintCell(fields[0])
		if err != nil {
			return nil, err
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, err
		}
		addons = append(addons, model.CartLineAddon{
			AddonID:  id,
			Name:     strings.TrimSpace(fields[1]),
			Price:    price,
			Position: i,
		})
	}
	return addons, nil
}
