package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/customer"
)

// DefaultLookupLimit caps the suggestions returned for one query.
const DefaultLookupLimit = 10

// Lookup result sources
const (
	LookupSourceRemote = "remote"
	LookupSourceLocal  = "local"
)

// LookupSequencer issues and arbitrates request tokens.
type LookupSequencer interface {
	Next() uint64
	Observe(token uint64)
	Apply(token uint64) bool
}

// CustomerSearcher searches customers on the API.
type CustomerSearcher interface {
	ListCustomers(ctx context.Context, in api.CustomerQuery) (api.CustomerPage, error)
}

// LocalCustomers reads the locally cached customer list.
type LocalCustomers interface {
	Customers(ctx context.Context) ([]customer.Customer, error)
}

// CustomerLookupDeps holds dependencies for CustomerLookup.
type CustomerLookupDeps struct {
	Sequencer LookupSequencer
	Remote    CustomerSearcher
	Local     LocalCustomers
	MinChars  int
	Limit     int
}

// LookupResult is the outcome of one resolved lookup.
// Stale results must be discarded by the caller; Customers is nil for them.
type LookupResult struct {
	Token     uint64              `json:"seq"`
	Query     string              `json:"query"`
	Customers []customer.Customer `json:"customers"`
	Source    string              `json:"source,omitempty"`
	Stale     bool                `json:"stale"`
}

// CustomerLookup runs guardian searches typed into the form.
// INVARIANT: a result is applied only if no higher-numbered lookup has been applied
type CustomerLookup struct {
	deps CustomerLookupDeps
}

// NewCustomerLookup returns a lookup bound to a session's sequencer.
func NewCustomerLookup(deps CustomerLookupDeps) *CustomerLookup {
	if deps.MinChars < 1 {
		deps.MinChars = 1
	}
	if deps.Limit < 1 {
		deps.Limit = DefaultLookupLimit
	}
	return &CustomerLookup{deps: deps}
}

// Begin issues the token for a new query.
func (l *CustomerLookup) Begin() uint64 {
	return l.deps.Sequencer.Next()
}

// Resolve runs the lookup for token and arbitrates it against newer lookups.
// Tokens issued elsewhere (the browser's keystroke counter) are observed first.
// PRE: token > 0
// POST: Stale is true if a newer lookup was issued or applied; the remote search
// falls back to the local customer list when the API fails
func (l *CustomerLookup) Resolve(ctx context.Context, token uint64, query string) (LookupResult, error) {
	l.deps.Sequencer.Observe(token)
	query = strings.TrimSpace(query)
	res := LookupResult{Token: token, Query: query}

	if utf8.RuneCountInString(query) >= l.deps.MinChars {
		found, source, err := l.search(ctx, query)
		if err != nil {
			return LookupResult{}, err
		}
		res.Customers, res.Source = found, source
	}

	if !l.deps.Sequencer.Apply(token) {
		slog.Debug("customer_lookup_stale", "seq", token, "query", query)
		return LookupResult{Token: token, Query: query, Stale: true}, nil
	}
	return res, nil
}

func (l *CustomerLookup) search(ctx context.Context, query string) ([]customer.Customer, string, error) {
	if l.deps.Remote != nil {
		page, err := l.deps.Remote.ListCustomers(ctx, api.CustomerQuery{Page: 1, Limit: l.deps.Limit, Search: query})
		if err == nil {
			return page.Customers, LookupSourceRemote, nil
		}
		if l.deps.Local == nil || errors.Is(err, api.ErrUnauthorized) {
			return nil, "", err
		}
		slog.Warn("customer_lookup_remote_failed", "err", err)
	}
	list, err := l.deps.Local.Customers(ctx)
	if err != nil {
		return nil, "", err
	}
	found := customer.Filter(list, query)
	if len(found) > l.deps.Limit {
		found = found[:l.deps.Limit]
	}
	return found, LookupSourceLocal, nil
}
