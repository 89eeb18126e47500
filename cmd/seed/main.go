package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a couple of demo accounts with starting cash and a sample position so
// the leaderboard and portfolio endpoints have something to show.
func main() {
	godotenv.Load()
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	demoUsers := []string{"demoalice", "demobob"}
	hash, err := bcrypt.GenerateFromPassword([]byte("demopass"), 12)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	for _, name := range demoUsers {
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (id, username, password_hash, cash, created_at)
			VALUES (gen_random_uuid(), $1, $2, 10000, now())
			ON CONFLICT (username) DO NOTHING`, name, string(hash))
		if err != nil {
			fmt.Printf("Warning: could not insert user %s: %v\n", name, err)
		}
	}

	// Give the first demo user a position: 10 shares of AAPL at $150.
	var userID string
	if err := db.GetContext(ctx, &userID, `SELECT id FROM users WHERE username = $1`, demoUsers[0]); err != nil {
		log.Fatalf("look up %s: %v", demoUsers[0], err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO holdings (user_id, symbol, num_shares, weighted_avg_price, total_cost, first_purchased)
		VALUES ($1, 'AAPL', 10, 150, 1500, now())
		ON CONFLICT (user_id, symbol) DO NOTHING`, userID)
	if err != nil {
		fmt.Printf("Warning: could not insert holding: %v\n", err)
	}
	_, err = db.ExecContext(ctx, `UPDATE users SET cash = 8500 WHERE id = $1 AND cash = 10000`, userID)
	if err != nil {
		fmt.Printf("Warning: could not adjust cash: %v\n", err)
	}

	fmt.Println("Successfully seeded demo accounts!")
	fmt.Println("Log in with demoalice / demopass")
}
