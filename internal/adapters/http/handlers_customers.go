package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"groomdesk/internal/adapters/http/middleware"
	"groomdesk/internal/application/listutil"
	"groomdesk/internal/application/orchestrators"
	"groomdesk/internal/application/projections"
	"groomdesk/internal/domain/customer"
)

// maxImportBytes caps an uploaded customer CSV.
const maxImportBytes = 5 << 20

// maxPageNonce caps the length of the per-page lookup key.
const maxPageNonce = 64

// handleCustomerSearch handles GET /api/customers/search?q=&seq=&page=.
// seq is the browser's keystroke counter and page the nonce of the page load that owns it;
// results for superseded queries on the same page come back with stale=true.
func handleCustomerSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	page := r.URL.Query().Get("page")
	if len(page) > maxPageNonce {
		badRequest(w, "page nonce too long")
		return
	}
	cal := calendarFor(sess)
	lookup := orchestrators.NewCustomerLookup(orchestrators.CustomerLookupDeps{
		Sequencer: cal.Lookups(page),
		Remote:    userClient(sess),
		Local:     deps.Local,
		MinChars:  deps.SearchMinChars,
	})

	var token uint64
	if v := r.URL.Query().Get("seq"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			badRequest(w, "seq must be a positive integer")
			return
		}
		token = n
	} else {
		token = lookup.Begin()
	}

	result, err := lookup.Resolve(r.Context(), token, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if result.Customers == nil {
		result.Customers = []customer.Customer{}
	}
	writeJSON(w, http.StatusOK, result)
}

// selectCustomerRequest applies a lookup pick (or a pet pick) to the open form.
type selectCustomerRequest struct {
	Form     orchestrators.AppointmentForm `json:"form"`
	Customer *customer.Customer            `json:"customer,omitempty"`
	PetIndex *int                          `json:"petIndex,omitempty"`
}

// handleCustomerSelect handles POST /api/customers/select.
func handleCustomerSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if _, ok := requireSession(w, r); !ok {
		return
	}
	var req selectCustomerRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.Customer == nil && req.PetIndex == nil {
		badRequest(w, "customer or petIndex is required")
		return
	}
	form := req.Form
	if req.Customer != nil {
		form = orchestrators.ExecuteSelectCustomer(form, *req.Customer)
	}
	if req.PetIndex != nil {
		var err error
		if form, err = orchestrators.ExecuteSelectPet(form, *req.PetIndex); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, form)
}

func customerPage(r *http.Request, sess middleware.Session) (projections.CustomerPage, error) {
	params := listutil.ParseListParams(r.URL.Query())
	return projections.QueryCustomerPage(r.Context(), projections.CustomerPageQuery{
		Page:   params.Page,
		Limit:  params.Limit,
		Search: params.Search,
	}, projections.CustomerPageDeps{
		Remote: userClient(sess),
		Local:  deps.Local,
	})
}

// handleCustomersPage renders the customer list with pagination.
func handleCustomersPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	page, err := customerPage(r, sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	renderTemplate(w, r, "customers.html", map[string]any{
		"Page": page,
	})
}

// handleCustomers handles GET /api/customers (JSON page).
func handleCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	page, err := customerPage(r, sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleCustomerImport handles POST /api/customers/import (multipart "file", optional "dryRun").
func handleCustomerImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		badRequest(w, "upload a CSV file of at most 5 MB")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file is required")
		return
	}
	defer file.Close()

	dryRun, _ := strconv.ParseBool(r.FormValue("dryRun"))
	result, err := orchestrators.ExecuteImportCustomers(r.Context(), orchestrators.ImportCustomersInput{
		Reader:   file,
		Filename: header.Filename,
		DryRun:   dryRun,
	}, orchestrators.ImportCustomersDeps{
		Local:      deps.Local,
		Remote:     userClient(sess),
		GenerateID: generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("customers_imported", "file", header.Filename, "imported", result.Imported, "skipped", result.Skipped, "dry_run", dryRun)
	writeJSON(w, http.StatusOK, result)
}

// handleCustomerTemplate serves the import template CSV.
func handleCustomerTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if _, ok := requireSession(w, r); !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="customer_template.csv"`)
	w.Write(orchestrators.CustomerTemplateCSV())
}
