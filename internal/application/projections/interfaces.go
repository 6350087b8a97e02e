package projections

import (
	"context"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/customer"
	"groomdesk/internal/domain/sale"
)

// SalesLister interface for sales queries.
type SalesLister interface {
	ListSales(ctx context.Context, from, to string) ([]sale.Sale, error)
}

// CustomerPager interface for paged customer queries against the API.
type CustomerPager interface {
	ListCustomers(ctx context.Context, in api.CustomerQuery) (api.CustomerPage, error)
}

// LocalCustomerList interface for the locally cached customer list.
type LocalCustomerList interface {
	Customers(ctx context.Context) ([]customer.Customer, error)
}
