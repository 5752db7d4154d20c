// File: internal/infra/db/postgres/user_directory.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interpretation-broker/internal/domain"
	"interpretation-broker/internal/domain/model"
	"interpretation-broker/internal/domain/ports/repository"
)

var _ repository.UserDirectory = (*UserDirectory)(nil)

// UserDirectory is the read-only Postgres lookup behind the broker's user
// resolution. User management happens elsewhere; the broker only reads.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

const userColumns = `
SELECT u.id, u.email, u.first_name, u.last_name, u.role, u.approved,
       COALESCE(array_agg(DISTINCT gt.name) FILTER (WHERE gt.name IS NOT NULL), '{}'),
       COALESCE(array_agg(DISTINCT it.name) FILTER (WHERE it.name IS NOT NULL), '{}')
  FROM users u
  LEFT JOIN user_group_tags ugt ON ugt.user_id = u.id
  LEFT JOIN group_tags gt ON gt.id = ugt.group_tag_id
  LEFT JOIN user_interest_tags uit ON uit.user_id = u.id
  LEFT JOIN interest_tags it ON it.id = uit.interest_tag_id
`

func (d *UserDirectory) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = userColumns + ` WHERE u.id = $1 GROUP BY u.id;`
	return d.scanUser(d.pool.QueryRow(ctx, q, id))
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = userColumns + ` WHERE u.email = $1 GROUP BY u.id;`
	return d.scanUser(d.pool.QueryRow(ctx, q, email))
}

func (d *UserDirectory) scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.Approved, &u.GroupTags, &u.InterestTags); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
