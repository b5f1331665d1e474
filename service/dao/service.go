package dao

import (
	"context"
)

// Service abstracts entity persistence. Implementations must be safe for
// concurrent use; Load returns (nil, nil) when the entity does not exist so
// that callers can map absence onto their own typed error.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
