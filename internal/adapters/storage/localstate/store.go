// Package localstate persists small JSON documents the dashboard keeps between restarts:
// the customer cache, locally registered users and alimtalk templates.
package localstate

import (
	"context"
	"errors"

	"groomdesk/internal/domain/account"
	"groomdesk/internal/domain/alimtalk"
	"groomdesk/internal/domain/customer"
)

// Well-known keys.
const (
	KeyCustomers = "customers"
	KeyUsers     = "users"
	KeyTemplates = "alimtalkTemplates"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("local state not found")

// Store persists JSON values under string keys.
type Store interface {
	Load(ctx context.Context, key string, v any) error
	Save(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error

	Customers(ctx context.Context) ([]customer.Customer, error)
	SaveCustomers(ctx context.Context, list []customer.Customer) error
	Users(ctx context.Context) ([]account.Account, error)
	SaveUsers(ctx context.Context, list []account.Account) error
	Templates(ctx context.Context) ([]alimtalk.Template, error)
	SaveTemplates(ctx context.Context, list []alimtalk.Template) error
}
