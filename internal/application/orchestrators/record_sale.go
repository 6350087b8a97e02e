package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"groomdesk/internal/adapters/api"
	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/customer"
	"groomdesk/internal/domain/sale"
)

// CustomerByPhone resolves a guardian phone to a customer record on the API.
type CustomerByPhone interface {
	GetCustomerByPhone(ctx context.Context, phone string) (customer.Customer, error)
}

// SaleCreator records a sale on the API.
type SaleCreator interface {
	CreateSale(ctx context.Context, s sale.Sale) (sale.Sale, error)
}

// RecordSaleInput carries the sale form. Fields left empty are inferred from the
// linked appointment when AppointmentID is set.
type RecordSaleInput struct {
	AppointmentID string `json:"appointmentId"`
	CustomerID    string `json:"customerId"`
	StaffID       string `json:"staffId"`
	Date          string `json:"date"`
	Service       string `json:"service"`
	Amount        int    `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Memo          string `json:"memo"`
}

// saleForm is the post-inference shape checked by struct validation.
type saleForm struct {
	CustomerID    string `json:"customerId" validate:"required"`
	StaffID       string `json:"staffId" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Service       string `json:"service" validate:"max=100"`
	Amount        int    `json:"amount" validate:"gt=0"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=card cash transfer"`
	Memo          string `json:"memo" validate:"max=500"`
}

// RecordSaleDeps holds dependencies for RecordSale.
type RecordSaleDeps struct {
	Cache        CachedAppointments
	Appointments AppointmentReader
	Customers    CustomerByPhone
	Sales        SaleCreator
}

// ExecuteRecordSale infers missing sale fields from the linked appointment, validates and creates the sale.
// PRE: deps.Sales is non-nil
// POST: customer is resolved by the appointment guardian's phone; staff, date and service
// default to the appointment's
// POST: returns *ValidationError before the create call when required fields cannot be resolved
func ExecuteRecordSale(ctx context.Context, input RecordSaleInput, deps RecordSaleDeps) (sale.Sale, error) {
	s := sale.Sale{
		AppointmentID: strings.TrimSpace(input.AppointmentID),
		CustomerID:    strings.TrimSpace(input.CustomerID),
		StaffID:       strings.TrimSpace(input.StaffID),
		Date:          strings.TrimSpace(input.Date),
		Service:       strings.TrimSpace(input.Service),
		Amount:        input.Amount,
		PaymentMethod: strings.ToLower(strings.TrimSpace(input.PaymentMethod)),
		Memo:          input.Memo,
	}

	if s.AppointmentID != "" {
		a, err := linkedAppointment(ctx, s.AppointmentID, deps)
		if err != nil {
			return sale.Sale{}, err
		}
		if err := inferSale(ctx, &s, a, deps.Customers); err != nil {
			return sale.Sale{}, err
		}
	}

	verr := validateStruct(saleForm{
		CustomerID: s.CustomerID, StaffID: s.StaffID, Date: s.Date, Service: s.Service,
		Amount: s.Amount, PaymentMethod: s.PaymentMethod, Memo: s.Memo,
	})
	if len(verr.Fields) == 0 {
		if err := s.Validate(); err != nil {
			verr.Add(saleErrorField(err), err.Error())
		}
	}
	if err := verr.OrNil(); err != nil {
		return sale.Sale{}, err
	}

	created, err := deps.Sales.CreateSale(ctx, s)
	if err != nil {
		slog.Warn("sale_create_failed", "appointment_id", s.AppointmentID, "err", err)
		return sale.Sale{}, err
	}
	if created.ID == "" {
		return s, nil
	}
	slog.Info("sale_recorded", "sale_id", created.ID, "appointment_id", s.AppointmentID, "amount", s.Amount, "method", s.PaymentMethod)
	return created, nil
}

func linkedAppointment(ctx context.Context, id string, deps RecordSaleDeps) (appointment.Appointment, error) {
	if deps.Cache != nil {
		if a, ok := deps.Cache.FindByID(id); ok {
			return a, nil
		}
	}
	if deps.Appointments == nil {
		return appointment.Appointment{}, ErrAppointmentNotFound
	}
	a, err := deps.Appointments.GetAppointment(ctx, id)
	if errors.Is(err, api.ErrNotFound) {
		return appointment.Appointment{}, ErrAppointmentNotFound
	}
	return a, err
}

func inferSale(ctx context.Context, s *sale.Sale, a appointment.Appointment, customers CustomerByPhone) error {
	if s.StaffID == "" {
		s.StaffID = a.StaffID
		s.StaffName = a.StaffName
	}
	if s.Date == "" {
		s.Date = a.Date
	}
	if s.Service == "" {
		s.Service = a.Service
	}
	if s.CustomerID != "" || customers == nil || a.Guardian.Phone == "" {
		return nil
	}
	c, err := customers.GetCustomerByPhone(ctx, a.Guardian.Phone)
	switch {
	case errors.Is(err, api.ErrNotFound):
		slog.Info("sale_customer_unresolved", "appointment_id", a.ID)
		return nil
	case err != nil:
		return err
	}
	s.CustomerID = c.ID
	s.CustomerName = c.Name
	return nil
}

func saleErrorField(err error) string {
	switch {
	case errors.Is(err, sale.ErrEmptyCustomerID):
		return "customerId"
	case errors.Is(err, sale.ErrEmptyStaffID):
		return "staffId"
	case errors.Is(err, sale.ErrInvalidDate):
		return "date"
	case errors.Is(err, sale.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, sale.ErrInvalidPayment):
		return "paymentMethod"
	}
	return "form"
}
