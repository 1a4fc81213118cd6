package ports

import "context"

// RoleRegistry is the set of named roles that may be assigned to identities.
type RoleRegistry interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}
