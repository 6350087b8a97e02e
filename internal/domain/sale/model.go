package sale

import (
	"errors"
	"strings"
	"time"
)

// Payment method constants
const (
	PaymentCard     = "card"
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
)

// ValidPaymentMethods contains all valid payment method values.
var ValidPaymentMethods = []string{PaymentCard, PaymentCash, PaymentTransfer}

// Domain errors
var (
	ErrEmptyCustomerID = errors.New("sale customer is required")
	ErrEmptyStaffID    = errors.New("sale staff is required")
	ErrInvalidDate     = errors.New("sale date must be in YYYY-MM-DD format")
	ErrInvalidAmount   = errors.New("sale amount must be a positive integer")
	ErrInvalidPayment  = errors.New("payment method must be one of: card, cash, transfer")
)

// Sale is a recorded payment for a grooming service.
// INVARIANT: CustomerID, StaffID and Date resolve before submission.
type Sale struct {
	ID            string `json:"id,omitempty"`
	AppointmentID string `json:"appointmentId,omitempty"`
	CustomerID    string `json:"customerId"`
	CustomerName  string `json:"customerName,omitempty"`
	StaffID       string `json:"staffId"`
	StaffName     string `json:"staffName,omitempty"`
	Date          string `json:"date"`
	Service       string `json:"service"`
	Amount        int    `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Memo          string `json:"memo,omitempty"`
}

// Validate checks the sale's invariants.
// PRE: none
// POST: returns nil if valid, the first violation otherwise
func (s *Sale) Validate() error {
	if strings.TrimSpace(s.CustomerID) == "" {
		return ErrEmptyCustomerID
	}
	if strings.TrimSpace(s.StaffID) == "" {
		return ErrEmptyStaffID
	}
	if _, err := time.Parse("2006-01-02", s.Date); err != nil {
		return ErrInvalidDate
	}
	if s.Amount <= 0 {
		return ErrInvalidAmount
	}
	valid := false
	for _, m := range ValidPaymentMethods {
		if s.PaymentMethod == m {
			valid = true
			break
		}
	}
	if !valid {
		return ErrInvalidPayment
	}
	return nil
}

// Summary aggregates a list of sales.
type Summary struct {
	Count    int
	Total    int
	ByMethod map[string]int
	ByStaff  map[string]int
}

// Summarize totals sales overall, by payment method and by staff name (falling back to staff ID).
func Summarize(sales []Sale) Summary {
	sum := Summary{
		ByMethod: make(map[string]int),
		ByStaff:  make(map[string]int),
	}
	for _, s := range sales {
		sum.Count++
		sum.Total += s.Amount
		sum.ByMethod[s.PaymentMethod] += s.Amount
		key := s.StaffName
		if key == "" {
			key = s.StaffID
		}
		sum.ByStaff[key] += s.Amount
	}
	return sum
}
