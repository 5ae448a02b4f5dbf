package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&Product{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createProduct(t *testing.T, repo *Repository, name string, stock int, active bool) *Product {
	t.Helper()
	p := &Product{
		ID:     uuid.New().String(),
		Name:   name,
		Price:  decimal.RequireFromString("1999.90"),
		Stock:  stock,
		Active: active,
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return p
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	p := createProduct(t, repo, "Mug", 4, true)

	found, err := repo.FindByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if found.Name != "Mug" || found.Stock != 4 || !found.Active {
		t.Errorf("FindByID() = %+v", found)
	}
	if !found.Price.Equal(decimal.RequireFromString("1999.90")) {
		t.Errorf("price = %s, want 1999.90", found.Price)
	}

	_, err = repo.FindByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_ListFiltersInactive(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	createProduct(t, repo, "B active", 1, true)
	createProduct(t, repo, "A hidden", 1, false)

	active, err := repo.List(context.Background(), false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(active) != 1 || active[0].Name != "B active" {
		t.Errorf("List(false) = %d products", len(active))
	}

	all, err := repo.List(context.Background(), true)
	if err != nil {
		t.Fatalf("List(true) error = %v", err)
	}
	if len(all) != 2 || all[0].Name != "A hidden" {
		t.Errorf("List(true) not ordered by name: %+v", all)
	}
}

func TestRepository_SetStockBumpsRevision(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	p := createProduct(t, repo, "Mug", 4, true)
	ctx := context.Background()

	first, err := repo.SetStock(ctx, p.ID, 9)
	if err != nil {
		t.Fatalf("SetStock() error = %v", err)
	}
	second, err := repo.SetStock(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("SetStock() error = %v", err)
	}
	if first.Revision != 1 || second.Revision != 2 || second.Stock != 2 {
		t.Errorf("revisions = %d, %d; stock = %d", first.Revision, second.Revision, second.Stock)
	}

	if _, err := repo.SetStock(ctx, p.ID, -1); !errors.Is(err, ErrInvalidStock) {
		t.Errorf("SetStock(-1) error = %v, want ErrInvalidStock", err)
	}
	if _, err := repo.SetStock(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStock(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRepository_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements every line", func(t *testing.T) {
		repo := NewRepository(setupTestDB(t))
		a := createProduct(t, repo, "A", 5, true)
		b := createProduct(t, repo, "B", 2, true)

		updated, err := repo.Reserve(ctx, []ReserveLine{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 2},
			{ProductID: a.ID, Quantity: 1},
		})
		if err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
		if len(updated) != 2 {
			t.Fatalf("Reserve() updated %d products, want 2", len(updated))
		}

		gotA, _ := repo.FindByID(ctx, a.ID)
		gotB, _ := repo.FindByID(ctx, b.ID)
		if gotA.Stock != 2 || gotB.Stock != 0 {
			t.Errorf("stocks = %d, %d; want 2, 0", gotA.Stock, gotB.Stock)
		}
		if gotA.Revision != 1 {
			t.Errorf("revision = %d, want 1", gotA.Revision)
		}
	})

	t.Run("shortage changes nothing", func(t *testing.T) {
		repo := NewRepository(setupTestDB(t))
		a := createProduct(t, repo, "A", 5, true)
		b := createProduct(t, repo, "B", 1, true)
		c := createProduct(t, repo, "C", 9, false)

		_, err := repo.Reserve(ctx, []ReserveLine{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 3},
			{ProductID: c.ID, Quantity: 1},
			{ProductID: "missing", Quantity: 1},
		})
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("Reserve() error = %v, want ErrInsufficientStock", err)
		}
		var shortage *ShortageError
		if !errors.As(err, &shortage) || len(shortage.Shortages) != 3 {
			t.Fatalf("Reserve() shortages = %+v", shortage)
		}
		if s := shortage.Shortages[0]; s.ProductID != b.ID || s.Requested != 3 || s.Available != 1 {
			t.Errorf("first shortage = %+v", s)
		}
		if s := shortage.Shortages[1]; s.Available != 0 {
			t.Errorf("inactive product reported %d available", s.Available)
		}

		gotA, _ := repo.FindByID(ctx, a.ID)
		if gotA.Stock != 5 || gotA.Revision != 0 {
			t.Errorf("A changed after failed reservation: stock %d revision %d", gotA.Stock, gotA.Revision)
		}
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		repo := NewRepository(setupTestDB(t))
		a := createProduct(t, repo, "A", 4, true)
		b := createProduct(t, repo, "B", 4, true)

		tests := []struct {
			name  string
			lines []ReserveLine
		}{
			{"negative", []ReserveLine{{ProductID: a.ID, Quantity: -10}}},
			{"zero", []ReserveLine{{ProductID: a.ID, Quantity: 0}}},
			{"offset by a repeat", []ReserveLine{{ProductID: a.ID, Quantity: 3}, {ProductID: a.ID, Quantity: -2}}},
			{"mixed with a valid line", []ReserveLine{{ProductID: b.ID, Quantity: 1}, {ProductID: a.ID, Quantity: -1}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := repo.Reserve(ctx, tt.lines)
				if !errors.Is(err, ErrInvalidQuantity) {
					t.Fatalf("Reserve() error = %v, want ErrInvalidQuantity", err)
				}
			})
		}

		for _, p := range []*Product{a, b} {
			got, _ := repo.FindByID(ctx, p.ID)
			if got.Stock != 4 || got.Revision != 0 {
				t.Errorf("%s changed after rejected reservations: stock %d revision %d", p.Name, got.Stock, got.Revision)
			}
		}
	})
}

func TestSeed_OnlyFillsEmptyCatalog(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	if err := Seed(ctx, repo); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if err := Seed(ctx, repo); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != int64(len(demoProducts)) {
		t.Errorf("Count() = %d, want %d", n, len(demoProducts))
	}
}
