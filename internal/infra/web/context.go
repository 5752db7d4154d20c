package web

import (
	"context"

	"interpretation-broker/internal/domain/model"
)

type ctxKey int

const ctxUserKey ctxKey = iota

func withUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

// UserFromContext returns the resolved caller, or nil when the request was
// not authenticated.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(ctxUserKey).(*model.User)
	return u
}
