package projections

import (
	"context"
	"errors"
	"sort"
	"time"

	"groomdesk/internal/domain/sale"
)

// ErrInvalidRange is returned when a report range is malformed or reversed.
var ErrInvalidRange = errors.New("report range must be two YYYY-MM-DD dates with from <= to")

// SalesReportQuery carries the inclusive date range.
type SalesReportQuery struct {
	From string
	To   string
}

// StaffTotal is one row of the per-staff breakdown.
type StaffTotal struct {
	Staff  string `json:"staff"`
	Amount int    `json:"amount"`
}

// DayTotal is one row of the per-day breakdown.
type DayTotal struct {
	Date   string `json:"date"`
	Count  int    `json:"count"`
	Amount int    `json:"amount"`
}

// SalesReport carries the sales list and its totals.
type SalesReport struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Sales    []sale.Sale    `json:"sales"`
	Count    int            `json:"count"`
	Total    int            `json:"total"`
	ByMethod map[string]int `json:"byMethod"`
	ByStaff  []StaffTotal   `json:"byStaff"`
	ByDay    []DayTotal     `json:"byDay"`
}

// SalesReportDeps holds dependencies for SalesReport.
type SalesReportDeps struct {
	Sales SalesLister
}

// QuerySalesReport retrieves sales in a date range and totals them.
// PRE: query.From and query.To are YYYY-MM-DD; an empty range defaults to the current month
// POST: Sales are ordered by date, ByStaff by amount descending, ByDay by date
func QuerySalesReport(ctx context.Context, query SalesReportQuery, deps SalesReportDeps, now time.Time) (SalesReport, error) {
	if query.From == "" && query.To == "" {
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		query.From = first.Format(dateLayout)
		query.To = first.AddDate(0, 1, -1).Format(dateLayout)
	}
	from, err1 := time.Parse(dateLayout, query.From)
	to, err2 := time.Parse(dateLayout, query.To)
	if err1 != nil || err2 != nil || to.Before(from) {
		return SalesReport{}, ErrInvalidRange
	}

	sales, err := deps.Sales.ListSales(ctx, query.From, query.To)
	if err != nil {
		return SalesReport{}, err
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Date < sales[j].Date })

	sum := sale.Summarize(sales)
	report := SalesReport{
		From:     query.From,
		To:       query.To,
		Sales:    sales,
		Count:    sum.Count,
		Total:    sum.Total,
		ByMethod: sum.ByMethod,
	}
	for name, amount := range sum.ByStaff {
		report.ByStaff = append(report.ByStaff, StaffTotal{Staff: name, Amount: amount})
	}
	sort.Slice(report.ByStaff, func(i, j int) bool {
		if report.ByStaff[i].Amount != report.ByStaff[j].Amount {
			return report.ByStaff[i].Amount > report.ByStaff[j].Amount
		}
		return report.ByStaff[i].Staff < report.ByStaff[j].Staff
	})

	byDay := make(map[string]*DayTotal)
	for _, s := range sales {
		d, ok := byDay[s.Date]
		if !ok {
			d = &DayTotal{Date: s.Date}
			byDay[s.Date] = d
		}
		d.Count++
		d.Amount += s.Amount
	}
	for _, d := range byDay {
		report.ByDay = append(report.ByDay, *d)
	}
	sort.Slice(report.ByDay, func(i, j int) bool { return report.ByDay[i].Date < report.ByDay[j].Date })
	return report, nil
}

const dateLayout = "2006-01-02"
