//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"interpretation-broker/internal/domain"
)

// Runs against a real database: set TEST_DATABASE_URL and pass -tags integration.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := NewPgxPool(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY, email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '', last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'viewer', approved BOOLEAN NOT NULL DEFAULT FALSE);`,
		`CREATE TABLE IF NOT EXISTS group_tags (id SERIAL PRIMARY KEY, name TEXT NOT NULL UNIQUE);`,
		`CREATE TABLE IF NOT EXISTS interest_tags (id SERIAL PRIMARY KEY, name TEXT NOT NULL UNIQUE);`,
		`CREATE TABLE IF NOT EXISTS user_group_tags (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_tag_id INT NOT NULL REFERENCES group_tags(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, group_tag_id));`,
		`CREATE TABLE IF NOT EXISTS user_interest_tags (
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			interest_tag_id INT NOT NULL REFERENCES interest_tags(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, interest_tag_id));`,
		`TRUNCATE users, group_tags, interest_tags, user_group_tags, user_interest_tags CASCADE;`,
	} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	t.Cleanup(pool.Close)
	return pool
}

func mustExec(t *testing.T, pool *pgxpool.Pool, sql string) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), sql); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func TestUserDirectoryFindByID(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	mustExec(t, pool, `INSERT INTO users (id, email, first_name, last_name, role, approved)
		VALUES ('u-1', 'one@example.com', 'One', 'User', 'analyst', TRUE);`)
	mustExec(t, pool, `INSERT INTO group_tags (name) VALUES ('north-fleet');`)
	mustExec(t, pool, `INSERT INTO user_group_tags (user_id, group_tag_id) SELECT 'u-1', id FROM group_tags;`)

	dir := NewUserDirectory(pool)

	u, err := dir.FindByID(ctx, "u-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if u.Email != "one@example.com" || !u.Approved {
		t.Fatalf("unexpected user: %+v", u)
	}
	if len(u.GroupTags) != 1 || u.GroupTags[0] != "north-fleet" {
		t.Fatalf("group tags: %v", u.GroupTags)
	}
	if len(u.InterestTags) != 0 {
		t.Fatalf("interest tags: %v", u.InterestTags)
	}
}

func TestUserDirectoryFindByEmailMissing(t *testing.T) {
	pool := testPool(t)
	dir := NewUserDirectory(pool)

	_, err := dir.FindByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}
