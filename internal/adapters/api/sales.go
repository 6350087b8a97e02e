package api

import (
	"context"
	"net/http"
	"net/url"

	"groomdesk/internal/domain/sale"
	"groomdesk/internal/domain/staff"
)

type saleList struct {
	Sales []sale.Sale `json:"sales"`
}

type saleOne struct {
	Sale sale.Sale `json:"sale"`
}

type staffList struct {
	Staff []staff.Staff `json:"staff"`
}

// CreateSale records a sale.
func (c *Client) CreateSale(ctx context.Context, s sale.Sale) (sale.Sale, error) {
	body, err := jsonBody(s)
	if err != nil {
		return sale.Sale{}, err
	}
	var out saleOne
	if err := c.do(ctx, request{method: http.MethodPost, route: "/sales", path: "/sales", body: body}, &out); err != nil {
		return sale.Sale{}, err
	}
	if out.Sale.ID == "" {
		out.Sale = s
	}
	return out.Sale, nil
}

// ListSales fetches sales between two dates inclusive (YYYY-MM-DD).
func (c *Client) ListSales(ctx context.Context, from, to string) ([]sale.Sale, error) {
	q := url.Values{"startDate": {from}, "endDate": {to}}
	var out saleList
	if err := c.do(ctx, request{method: http.MethodGet, route: "/sales", path: "/sales", query: q}, &out); err != nil {
		return nil, err
	}
	return out.Sales, nil
}

// ListStaff fetches every staff member including admins.
func (c *Client) ListStaff(ctx context.Context) ([]staff.Staff, error) {
	var out staffList
	if err := c.do(ctx, request{method: http.MethodGet, route: "/staff", path: "/staff"}, &out); err != nil {
		return nil, err
	}
	return out.Staff, nil
}
