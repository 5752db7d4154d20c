package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"interpretation-broker/internal/config"
	pg "interpretation-broker/internal/infra/db/postgres"
)

// Seeds the user directory schema and a handful of development accounts so
// the broker has someone to deliver to. Safe to run repeatedly.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	for _, ddl := range schema {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			log.Fatalf("schema: %v", err)
		}
	}

	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM users;`).Scan(&existing); err != nil {
		log.Fatalf("count users: %v", err)
	}
	if existing > 0 {
		fmt.Printf("%d users already present. No changes.\n", existing)
		return
	}

	seed := []struct {
		ID, Email, First, Last, Role string
		Approved                     bool
	}{
		{"u-admin", "admin@example.com", "Ada", "Admin", "admin", true},
		{"u-analyst", "analyst@example.com", "Noor", "Analyst", "analyst", true},
		{"u-pending", "pending@example.com", "Pat", "Pending", "viewer", false},
	}

	for _, s := range seed {
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, email, first_name, last_name, role, approved)
			 VALUES ($1, $2, $3, $4, $5, $6);`,
			s.ID, s.Email, s.First, s.Last, s.Role, s.Approved)
		if err != nil {
			log.Fatalf("insert user %q: %v", s.Email, err)
		}
		fmt.Printf("seeded: %s (id=%s, role=%s, approved=%v)\n", s.Email, s.ID, s.Role, s.Approved)
	}

	fmt.Println("Seeding complete.")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT 'viewer',
		approved   BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE TABLE IF NOT EXISTS group_tags (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS interest_tags (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS user_group_tags (
		user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		group_tag_id INT  NOT NULL REFERENCES group_tags(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, group_tag_id)
	);`,
	`CREATE TABLE IF NOT EXISTS user_interest_tags (
		user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		interest_tag_id INT  NOT NULL REFERENCES interest_tags(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, interest_tag_id)
	);`,
}
