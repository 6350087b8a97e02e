package orchestrators

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/customer"
)

// customerColumns is the canonical header of the customer CSV, required columns first.
var customerColumns = []string{"NAME", "PHONE", "PET", "BREED", "WEIGHT", "AGE", "MEMO", "CONSENT"}

// CustomerTemplateCSV returns the downloadable import template: the header and one example row.
func CustomerTemplateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(customerColumns)
	_ = w.Write([]string{"Kim Minji", "010-1234-5678", "Bori", "Maltese", "3.2", "4", "Sensitive ears", "Y"})
	w.Flush()
	return buf.Bytes()
}

// CustomerStoreForImport reads and replaces the locally cached customer list.
type CustomerStoreForImport interface {
	Customers(ctx context.Context) ([]customer.Customer, error)
	SaveCustomers(ctx context.Context, list []customer.Customer) error
}

// CustomerImporter forwards accepted rows to the API bulk import.
type CustomerImporter interface {
	ImportCustomers(ctx context.Context, filename string, csvData []byte) (api.ImportResult, error)
}

// ImportCustomersInput carries the uploaded CSV and import options.
// PRE: Reader is a CSV stream with a header row
// POST: returns counts and per-row errors; no writes occur when DryRun=true
// INVARIANT: existing customers are never replaced; the first record per phone wins
type ImportCustomersInput struct {
	Reader   io.Reader
	Filename string
	DryRun   bool
}

// ImportCustomersResult holds aggregate counts and per-row errors from an import run.
type ImportCustomersResult struct {
	Total        int                      `json:"total"`
	Imported     int                      `json:"imported"`
	Skipped      int                      `json:"skipped"`
	Errors       []ImportCustomerRowError `json:"errors,omitempty"`
	RemoteErrors []string                 `json:"remoteErrors,omitempty"`
	Unknown      []string                 `json:"unknownColumns,omitempty"`
	DryRun       bool                     `json:"dryRun"`
}

// ImportCustomerRowError describes a problem with a single CSV row.
// Row counts the header as row 1.
type ImportCustomerRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportCustomersDeps holds external dependencies for the import orchestrator.
type ImportCustomersDeps struct {
	Local      CustomerStoreForImport
	Remote     CustomerImporter
	GenerateID func() string
}

// ExecuteImportCustomers parses a customer CSV, drops invalid and duplicate rows,
// forwards the accepted rows to the API and merges them into the local cache.
// PRE: Input.Reader contains a CSV with at least NAME and PHONE columns
// POST: rows whose phone is already known (in the file or the local cache) are skipped
func ExecuteImportCustomers(ctx context.Context, input ImportCustomersInput, deps ImportCustomersDeps) (ImportCustomersResult, error) {
	cr := csv.NewReader(input.Reader)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportCustomersResult{}, &ImportCustomersValidationError{Message: "CSV file is empty"}
	}
	if err != nil {
		return ImportCustomersResult{}, &ImportCustomersValidationError{Message: "CSV header could not be read: " + err.Error()}
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[headerKey(h)] = i
	}
	for _, required := range customerColumns[:2] {
		if _, ok := colIdx[required]; !ok {
			return ImportCustomersResult{}, &ImportCustomersValidationError{Message: "CSV missing required column: " + required}
		}
	}

	known := make(map[string]bool, len(customerColumns))
	for _, c := range customerColumns {
		known[c] = true
	}
	result := ImportCustomersResult{DryRun: input.DryRun}
	for _, h := range header {
		if !known[headerKey(h)] {
			result.Unknown = append(result.Unknown, h)
		}
	}

	getCol := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	existing, err := deps.Local.Customers(ctx)
	if err != nil {
		return ImportCustomersResult{}, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[customer.NormalizePhone(c.Phone)] = true
	}

	var accepted []customer.Customer
	rowNum := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, ImportCustomerRowError{Row: rowNum, Message: "unreadable row: " + err.Error()})
			continue
		}
		if blankRow(row) {
			continue
		}
		result.Total++

		c, msg := parseCustomerRow(row, getCol)
		if msg != "" {
			result.Errors = append(result.Errors, ImportCustomerRowError{Row: rowNum, Message: msg})
			continue
		}
		key := customer.NormalizePhone(c.Phone)
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true
		if deps.GenerateID != nil {
			c.ID = deps.GenerateID()
		}
		accepted = append(accepted, c)
	}
	result.Imported = len(accepted)

	if !input.DryRun && len(accepted) > 0 {
		if deps.Remote != nil {
			remote, err := deps.Remote.ImportCustomers(ctx, importFilename(input.Filename), encodeCustomers(accepted))
			if err != nil {
				slog.Error("customers_import_remote_failed", "rows", len(accepted), "err", err)
				return ImportCustomersResult{}, err
			}
			result.RemoteErrors = remote.Errors
		}
		merged, _ := customer.DedupByPhone(existing, accepted)
		if err := deps.Local.SaveCustomers(ctx, merged); err != nil {
			slog.Error("customers_import_save_failed", "rows", len(accepted), "err", err)
			return ImportCustomersResult{}, err
		}
	}

	slog.Info("customers_import",
		"dry_run", input.DryRun,
		"total", result.Total,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

func parseCustomerRow(row []string, getCol func([]string, string) string) (customer.Customer, string) {
	c := customer.Customer{
		Name:    getCol(row, "NAME"),
		Phone:   getCol(row, "PHONE"),
		Memo:    getCol(row, "MEMO"),
		Consent: parseConsent(getCol(row, "CONSENT")),
	}
	if err := c.Validate(); err != nil {
		return customer.Customer{}, err.Error()
	}

	petName := getCol(row, "PET")
	if petName == "" {
		return c, ""
	}
	pet := appointment.Pet{Name: petName, Breed: getCol(row, "BREED")}
	if raw := getCol(row, "WEIGHT"); raw != "" {
		w, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(raw), "kg"), 64)
		if err != nil || w < 0 {
			return customer.Customer{}, "invalid weight: " + raw
		}
		pet.Weight = w
	}
	if raw := getCol(row, "AGE"); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil || age < 0 {
			return customer.Customer{}, "invalid age: " + raw
		}
		pet.Age = age
	}
	c.Pets = []appointment.Pet{pet}
	return c, ""
}

func parseConsent(v string) bool {
	switch strings.ToLower(v) {
	case "y", "yes", "true", "1", "o":
		return true
	}
	return false
}

// headerKey normalizes a header cell, dropping a UTF-8 byte order mark left by spreadsheet exports.
func headerKey(h string) string {
	return strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func importFilename(name string) string {
	if strings.TrimSpace(name) == "" {
		return "customers.csv"
	}
	return name
}

// encodeCustomers writes accepted customers back out in the canonical column order.
func encodeCustomers(list []customer.Customer) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(customerColumns)
	for _, c := range list {
		rec := []string{c.Name, c.Phone, "", "", "", "", c.Memo, "N"}
		if c.Consent {
			rec[7] = "Y"
		}
		if len(c.Pets) > 0 {
			p := c.Pets[0]
			rec[2], rec[3] = p.Name, p.Breed
			if p.Weight > 0 {
				rec[4] = strconv.FormatFloat(p.Weight, 'f', -1, 64)
			}
			if p.Age > 0 {
				rec[5] = strconv.Itoa(p.Age)
			}
		}
		_ = w.Write(rec)
	}
	w.Flush()
	return buf.Bytes()
}

// ImportCustomersValidationError is returned when the CSV structure is invalid (e.g. missing required columns).
type ImportCustomersValidationError struct {
	Message string
}

// Error implements the error interface.
func (e *ImportCustomersValidationError) Error() string {
	return e.Message
}
