package customer

import (
	"errors"
	"strings"
	"unicode"

	"groomdesk/internal/domain/appointment"
)

// Domain errors
var (
	ErrEmptyName  = errors.New("customer name cannot be empty")
	ErrEmptyPhone = errors.New("customer phone cannot be empty")
	ErrBadPhone   = errors.New("customer phone must contain 9 to 11 digits")
)

// Customer is a guardian record with one or more pets.
// Phone is the dedup key during import.
type Customer struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	Pets      []appointment.Pet `json:"pets"`
	Visits    int               `json:"visits"`
	LastVisit string            `json:"lastVisit,omitempty"` // YYYY-MM-DD, empty if never visited
	Consent   bool              `json:"consent"`
	Memo      string            `json:"memo,omitempty"`
}

// Validate checks if the Customer has valid data.
// PRE: Customer struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Phone) == "" {
		return ErrEmptyPhone
	}
	if n := len(NormalizePhone(c.Phone)); n < 9 || n > 11 {
		return ErrBadPhone
	}
	return nil
}

// Guardian returns the appointment snapshot of this customer.
func (c *Customer) Guardian() appointment.Guardian {
	return appointment.Guardian{
		Name:            c.Name,
		Phone:           c.Phone,
		Memo:            c.Memo,
		AlimtalkConsent: c.Consent,
	}
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Matches reports whether the customer matches a lookup query by partial name,
// phone prefix (digits only) or partial pet name. Matching is case-insensitive.
func (c *Customer) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(c.Name), q) {
		return true
	}
	if digits := NormalizePhone(q); digits != "" && strings.HasPrefix(NormalizePhone(c.Phone), digits) {
		return true
	}
	for _, p := range c.Pets {
		if strings.Contains(strings.ToLower(p.Name), q) {
			return true
		}
	}
	return false
}

// Filter returns the customers matching query, preserving order.
func Filter(list []Customer, query string) []Customer {
	var out []Customer
	for _, c := range list {
		if c.Matches(query) {
			out = append(out, c)
		}
	}
	return out
}

// DedupByPhone merges incoming into existing, keeping the first record per normalized phone.
// POST: returns the merged list and the incoming records that were dropped as duplicates
func DedupByPhone(existing, incoming []Customer) (merged, duplicates []Customer) {
	seen := make(map[string]bool, len(existing)+len(incoming))
	merged = make([]Customer, 0, len(existing)+len(incoming))
	for _, c := range existing {
		key := NormalizePhone(c.Phone)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, c)
	}
	for _, c := range incoming {
		key := NormalizePhone(c.Phone)
		if seen[key] {
			duplicates = append(duplicates, c)
			continue
		}
		seen[key] = true
		merged = append(merged, c)
	}
	return merged, duplicates
}
