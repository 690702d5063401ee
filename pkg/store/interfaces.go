package store

import (
	"context"
)

// StateStore handles persistent application state. It is the settings source
// the config provider reads runtime overrides from.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
