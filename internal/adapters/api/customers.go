package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"groomdesk/internal/domain/customer"
)

// CustomerQuery selects one page of customers.
type CustomerQuery struct {
	Page   int
	Limit  int
	Search string
}

// Pagination is the page metadata returned with list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// CustomerPage is one page of the customer list.
type CustomerPage struct {
	Customers  []customer.Customer `json:"customers"`
	Pagination Pagination          `json:"pagination"`
}

// ImportResult summarizes a bulk customer import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

type customerOne struct {
	Customer customer.Customer `json:"customer"`
}

// ListCustomers fetches a page of customers, optionally filtered by search text.
func (c *Client) ListCustomers(ctx context.Context, in CustomerQuery) (CustomerPage, error) {
	q := url.Values{}
	if in.Page > 0 {
		q.Set("page", strconv.Itoa(in.Page))
	}
	if in.Limit > 0 {
		q.Set("limit", strconv.Itoa(in.Limit))
	}
	if in.Search != "" {
		q.Set("search", in.Search)
	}
	var out CustomerPage
	err := c.do(ctx, request{method: http.MethodGet, route: "/customers", path: "/customers", query: q}, &out)
	return out, err
}

// GetCustomerByPhone looks a customer up by phone number. Unknown numbers fail with ErrNotFound.
func (c *Client) GetCustomerByPhone(ctx context.Context, phone string) (customer.Customer, error) {
	var out customerOne
	err := c.do(ctx, request{
		method: http.MethodGet,
		route:  "/customers/phone/{phone}",
		path:   "/customers/phone/" + url.PathEscape(customer.NormalizePhone(phone)),
	}, &out)
	return out.Customer, err
}

// ImportCustomers uploads a CSV file as multipart field "file".
func (c *Client) ImportCustomers(ctx context.Context, filename string, csvData []byte) (ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return ImportResult{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(csvData); err != nil {
		return ImportResult{}, fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return ImportResult{}, fmt.Errorf("build upload: %w", err)
	}
	var out ImportResult
	err = c.do(ctx, request{
		method:      http.MethodPost,
		route:       "/customers/import",
		path:        "/customers/import",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	return out, err
}
