package web

import (
	"net/http"

	"groomdesk/internal/adapters/http/middleware"
	"groomdesk/internal/application/orchestrators"
	"groomdesk/internal/application/projections"
	"groomdesk/internal/domain/sale"
)

func salesReport(r *http.Request, sess middleware.Session) (projections.SalesReport, error) {
	q := r.URL.Query()
	return projections.QuerySalesReport(r.Context(), projections.SalesReportQuery{
		From: q.Get("from"),
		To:   q.Get("to"),
	}, projections.SalesReportDeps{Sales: userClient(sess)}, timeNow())
}

// handleSalesPage renders the sales report for ?from=&to= (default: current month).
func handleSalesPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	report, err := salesReport(r, sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	renderTemplate(w, r, "sales.html", map[string]any{
		"Report":  report,
		"Methods": sale.ValidPaymentMethods,
	})
}

// handleSales handles GET (report) and POST (record) for /api/sales
func handleSales(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		report, err := salesReport(r, sess)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	case http.MethodPost:
		var input orchestrators.RecordSaleInput
		if err := strictDecode(r, &input); err != nil {
			badRequest(w, "invalid JSON")
			return
		}
		client := userClient(sess)
		created, err := orchestrators.ExecuteRecordSale(r.Context(), input, orchestrators.RecordSaleDeps{
			Cache:        calendarFor(sess).Cache(),
			Appointments: client,
			Customers:    client,
			Sales:        client,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
