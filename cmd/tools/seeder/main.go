package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedCatalog(ctx, pool)
	seedDiscounts(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	statements := []string{
		`INSERT INTO categories (id, name) VALUES
			('11111111-1111-1111-1111-111111111111', 'Electronics')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO categories (id, parent_id, name) VALUES
			('22222222-2222-2222-2222-222222222222', '11111111-1111-1111-1111-111111111111', 'Phones'),
			('33333333-3333-3333-3333-333333333333', '11111111-1111-1111-1111-111111111111', 'Audio')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO products (id, title, price, tax_class) VALUES
			('aaaaaaaa-0000-0000-0000-000000000001', 'Handset X', 49900, 'standard'),
			('aaaaaaaa-0000-0000-0000-000000000002', 'Earbuds Pro', 12900, 'standard'),
			('aaaaaaaa-0000-0000-0000-000000000003', 'Charging Dock', 3900, 'standard')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO product_variants (id, product_id, title, price) VALUES
			('bbbbbbbb-0000-0000-0000-000000000001', 'aaaaaaaa-0000-0000-0000-000000000001', '256GB', 59900)
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO product_categories (product_id, category_id) VALUES
			('aaaaaaaa-0000-0000-0000-000000000001', '22222222-2222-2222-2222-222222222222'),
			('aaaaaaaa-0000-0000-0000-000000000002', '33333333-3333-3333-3333-333333333333'),
			('aaaaaaaa-0000-0000-0000-000000000003', '11111111-1111-1111-1111-111111111111')
		 ON CONFLICT DO NOTHING`,
	}
	execAll(ctx, pool, "catalog", statements)
}

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) {
	statements := []string{
		`INSERT INTO discounts (id, code, kind, amount, status) VALUES
			('cccccccc-0000-0000-0000-000000000001', 'SAVE20', 'percent', 2000, 'active')
		 ON CONFLICT (code) DO NOTHING`,
		`INSERT INTO discounts (id, code, kind, amount, status, min_charge) VALUES
			('cccccccc-0000-0000-0000-000000000002', 'TENOFF', 'flat', 1000, 'active', 5000)
		 ON CONFLICT (code) DO NOTHING`,
		`INSERT INTO discounts (id, code, kind, amount, status, once_per_customer, max_uses) VALUES
			('cccccccc-0000-0000-0000-000000000003', 'WELCOME', 'flat', 500, 'active', TRUE, 1000)
		 ON CONFLICT (code) DO NOTHING`,
		`INSERT INTO discounts (id, code, kind, amount, status, product_condition) VALUES
			('cccccccc-0000-0000-0000-000000000004', 'PHONEDEAL', 'percent', 1000, 'active', 'any')
		 ON CONFLICT (code) DO NOTHING`,
		`INSERT INTO discount_categories (discount_id, category_id) VALUES
			('cccccccc-0000-0000-0000-000000000004', '22222222-2222-2222-2222-222222222222')
		 ON CONFLICT DO NOTHING`,
	}
	execAll(ctx, pool, "discounts", statements)
}

func execAll(ctx context.Context, pool *pgxpool.Pool, label string, statements []string) {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalf("Failed to seed %s: %v", label, err)
		}
	}
	log.Printf("Seeded %s", label)
}
