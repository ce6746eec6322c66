package core

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SalaryStatus tracks whether a payment went out.
type SalaryStatus string

const (
	SalaryPaid    SalaryStatus = "paid"
	SalaryPending SalaryStatus = "pending"
)

// SalaryStatuses lists the statuses in form order.
func SalaryStatuses() []SalaryStatus {
	return []SalaryStatus{SalaryPaid, SalaryPending}
}

func (s SalaryStatus) Label() string {
	switch s {
	case SalaryPaid:
		return "Paid"
	case SalaryPending:
		return "Pending"
	default:
		return string(s)
	}
}

type SalaryRecord struct {
	ID            string          `json:"_id"`
	EmployeeEmail string          `json:"employee_email"`
	Amount        decimal.Decimal `json:"amount"`
	Month         string          `json:"month"`
	Notes         string          `json:"notes"`
	Status        SalaryStatus    `json:"status"`
}

func (s *SalaryRecord) UnmarshalJSON(data []byte) error {
	type alias SalaryRecord
	if err := json.Unmarshal(data, (*alias)(s)); err != nil {
		return err
	}
	return fallbackID(data, &s.ID)
}

// Headline is the list line, e.g. "ann@corp.io - $3000 (2025-01)".
func (s SalaryRecord) Headline() string {
	return s.EmployeeEmail + " - $" + s.Amount.String() + " (" + s.Month + ")"
}

// Detail is the status followed by notes if any.
func (s SalaryRecord) Detail() string {
	if s.Notes == "" {
		return string(s.Status)
	}
	return string(s.Status) + " • " + s.Notes
}

// NewSalaryRecord is the body of POST /salary.
type NewSalaryRecord struct {
	EmployeeEmail string          `json:"employee_email" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Month         string          `json:"month" validate:"required"`
	Notes         string          `json:"notes"`
	Status        SalaryStatus    `json:"status" validate:"required,oneof=paid pending"`
}

func (n NewSalaryRecord) Validate() error {
	err := validateStruct(n)
	if n.Amount.IsNegative() {
		err = merge(err, FieldError{Field: "amount", Message: "must be at least 0"})
	}
	return err
}
