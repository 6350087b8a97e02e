package projections

import (
	"context"
	"errors"
	"log/slog"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/application/listutil"
	"groomdesk/internal/domain/customer"
)

// DefaultCustomerPageSize is the page length of the customer list.
const DefaultCustomerPageSize = listutil.DefaultLimit

// CustomerPageQuery carries list parameters.
type CustomerPageQuery struct {
	Page   int
	Limit  int
	Search string
}

// CustomerPage is one page of the customer list.
// Offline is set when the API failed and the local cache was paged instead.
type CustomerPage struct {
	Customers  []customer.Customer `json:"customers"`
	Pagination api.Pagination      `json:"pagination"`
	Search     string              `json:"search"`
	Offline    bool                `json:"offline"`
}

// CustomerPageDeps holds dependencies for CustomerPage.
type CustomerPageDeps struct {
	Remote CustomerPager
	Local  LocalCustomerList
}

// QueryCustomerPage retrieves a page of customers from the API, falling back to the local cache.
// PRE: none; a page below 1 is treated as 1
// POST: an unauthorized API response is returned as an error, never masked by local data
func QueryCustomerPage(ctx context.Context, query CustomerPageQuery, deps CustomerPageDeps) (CustomerPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = DefaultCustomerPageSize
	}

	page, err := deps.Remote.ListCustomers(ctx, api.CustomerQuery{Page: query.Page, Limit: query.Limit, Search: query.Search})
	if err == nil {
		if page.Pagination.Page == 0 {
			total := page.Pagination.Total
			if total == 0 {
				total = len(page.Customers)
			}
			page.Pagination = paginate(total, query.Page, query.Limit)
		}
		return CustomerPage{Customers: page.Customers, Pagination: page.Pagination, Search: query.Search}, nil
	}
	if deps.Local == nil || errors.Is(err, api.ErrUnauthorized) {
		return CustomerPage{}, err
	}
	slog.Warn("customer_list_remote_failed", "err", err)

	all, lerr := deps.Local.Customers(ctx)
	if lerr != nil {
		return CustomerPage{}, err
	}
	if query.Search != "" {
		all = customer.Filter(all, query.Search)
	}
	info := listutil.NewPageInfo(query.Page, query.Limit, len(all))
	return CustomerPage{
		Customers:  all[info.Offset():info.End()],
		Pagination: toPagination(info),
		Search:     query.Search,
		Offline:    true,
	}, nil
}

func paginate(total, page, limit int) api.Pagination {
	return toPagination(listutil.NewPageInfo(page, limit, total))
}

func toPagination(info listutil.PageInfo) api.Pagination {
	return api.Pagination{Page: info.Page, Limit: info.Limit, Total: info.Total, TotalPages: info.TotalPages}
}
