package port

import "context"

type RequestGuard interface {
	// Claim sets key if absent, returns false if it already exists.
	Claim(ctx context.Context, key string) (bool, error)

	// Release frees a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
