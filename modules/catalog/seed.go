package catalog

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var demoProducts = []struct {
	name  string
	price string
	stock int
	image string
}{
	{"Ceramic Mug", "4990", 12, "https://images.example.com/mug.jpg"},
	{"Cold Brew Bottle", "8990", 5, "https://images.example.com/bottle.jpg"},
	{"Espresso Beans 1kg", "15990", 20, "https://images.example.com/beans.jpg"},
	{"Pour-over Kettle", "32990", 3, "https://images.example.com/kettle.jpg"},
	{"Paper Filters x100", "2490", 40, "https://images.example.com/filters.jpg"},
}

// Seed fills an empty catalog with demo products.
func Seed(ctx context.Context, repo *Repository) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, d := range demoProducts {
		p := &Product{
			ID:       uuid.New().String(),
			Name:     d.name,
			Price:    decimal.RequireFromString(d.price),
			Stock:    d.stock,
			Active:   true,
			ImageURL: d.image,
		}
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
	}
	log.Printf("[catalog] Seeded %d demo products", len(demoProducts))
	return nil
}
