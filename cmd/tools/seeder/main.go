package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mossery/storefront-api/internal/config"
	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
	"github.com/mossery/storefront-api/internal/pricing"
)

func main() {
	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	seedProducts(ctx, pool, cfg.Currency)
	seedZones(ctx, pool)
	seedDiscounts(ctx, pool)

	log.Println("seeding completed")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, currency string) {
	products := []struct {
		title       string
		description string
		price       float64
	}{
		{"Merino Wool Scarf", "Lightweight merino wool scarf, woven in small batches.", 25.50},
		{"Ribbed Wool Beanie", "Chunky ribbed beanie in pure wool.", 24.50},
		{"Linen Tote Bag", "Natural linen tote with reinforced handles.", 30.00},
		{"Ceramic Travel Mug", "Double-walled ceramic mug, 350ml.", 29.99},
		{"Cotton Crew Socks", "Three-pack of combed cotton socks.", 14.00},
	}
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, title, description, price, currency, published)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			ON CONFLICT (title) DO UPDATE SET
				description = EXCLUDED.description,
				price = EXCLUDED.price,
				currency = EXCLUDED.currency,
				published = TRUE`,
			uuid.NewString(), p.title, p.description, p.price, currency)
		if err != nil {
			log.Fatalf("seed product %q: %v", p.title, err)
		}
	}
	log.Printf("seeded %d products", len(products))
}

func seedZones(ctx context.Context, pool *pgxpool.Pool) {
	store := &delivery.PGStore{Pool: pool}
	zones := []delivery.Zone{
		{
			Country:       "NZ",
			Currency:      "NZD",
			FreeThreshold: 150.00,
			Methods: []delivery.Method{
				{ID: "nz_tracked", Label: "Tracked Courier", Price: 14.00, FreeEligible: true, Active: true, SortOrder: 1},
				{ID: "nz_overnight", Label: "Overnight Courier", Price: 25.00, Active: true, SortOrder: 2},
			},
		},
		{
			Country:  "AU",
			Currency: "AUD",
			Methods: []delivery.Method{
				{ID: "au_standard", Label: "Standard International", Price: 29.00, Active: true, SortOrder: 1},
				{ID: "au_express", Label: "Express International", Price: 45.00, Active: true, SortOrder: 2},
			},
		},
	}
	for _, zone := range zones {
		if err := store.UpsertZone(ctx, zone); err != nil {
			log.Fatalf("seed zone %s: %v", zone.Country, err)
		}
		for _, method := range zone.Methods {
			if err := store.UpsertMethod(ctx, zone.Country, method); err != nil {
				log.Fatalf("seed method %s/%s: %v", zone.Country, method.ID, err)
			}
		}
	}
	log.Printf("seeded %d delivery zones", len(zones))
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) {
	store := &discount.PGStore{Pool: pool}
	expiry := time.Now().AddDate(1, 0, 0)
	maxUsage := int32(500)
	codes := []discount.Record{
		{Code: "SAVE10", Published: true, IsPercentage: true, Value: 10, ExpiresAt: &expiry},
		{Code: "WELCOME5", Published: true, Value: 5, MinSubtotal: pricing.ToMinorUnits(50), MaxUsage: &maxUsage},
	}
	for _, rec := range codes {
		if err := store.Upsert(ctx, rec); err != nil {
			log.Fatalf("seed discount %s: %v", rec.Code, err)
		}
	}
	log.Printf("seeded %d discount codes", len(codes))
}
