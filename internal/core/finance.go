package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// FinanceKind separates income from spending.
type FinanceKind string

const (
	KindRevenue FinanceKind = "revenue"
	KindExpense FinanceKind = "expense"
)

// FinanceKinds lists the kinds in form order.
func FinanceKinds() []FinanceKind {
	return []FinanceKind{KindRevenue, KindExpense}
}

// Label is the capitalized option text.
func (k FinanceKind) Label() string {
	switch k {
	case KindRevenue:
		return "Revenue"
	case KindExpense:
		return "Expense"
	default:
		return string(k)
	}
}

type FinanceEntry struct {
	ID          string          `json:"_id"`
	Kind        FinanceKind     `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

func (f *FinanceEntry) UnmarshalJSON(data []byte) error {
	type alias FinanceEntry
	if err := json.Unmarshal(data, (*alias)(f)); err != nil {
		return err
	}
	return fallbackID(data, &f.ID)
}

// Headline is the list line, e.g. "REVENUE - $1200 • consulting".
func (f FinanceEntry) Headline() string {
	return strings.ToUpper(string(f.Kind)) + " - $" + f.Amount.String() + " • " + f.Category
}

// Detail is the secondary list line: description, then the reference if any.
func (f FinanceEntry) Detail() string {
	if f.Reference == "" {
		return f.Description
	}
	return f.Description + " • " + f.Reference
}

// NewFinanceEntry is the body of POST /finance.
type NewFinanceEntry struct {
	Kind        FinanceKind     `json:"kind" validate:"required,oneof=revenue expense"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

func (n NewFinanceEntry) Validate() error {
	err := validateStruct(n)
	if n.Amount.IsNegative() {
		err = merge(err, FieldError{Field: "amount", Message: "must be at least 0"})
	}
	return err
}
