package core

import (
	"encoding/json"
	"math"
	"strconv"
)

// DefaultHoursWorked prefills the report form.
const DefaultHoursWorked = 8.0

type Report struct {
	ID          string  `json:"_id"`
	Date        string  `json:"date"`
	ReportDate  string  `json:"report_date,omitempty"`
	Summary     string  `json:"summary"`
	HoursWorked float64 `json:"hours_worked"`
}

func (r *Report) UnmarshalJSON(data []byte) error {
	type alias Report
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return err
	}
	return fallbackID(data, &r.ID)
}

// DisplayDate prefers the server-normalized report_date.
func (r Report) DisplayDate() string {
	if r.ReportDate != "" {
		return r.ReportDate
	}
	return r.Date
}

// HoursLabel renders hours without trailing zeros, e.g. "7.5h".
func (r Report) HoursLabel() string {
	return strconv.FormatFloat(r.HoursWorked, 'f', -1, 64) + "h"
}

// NewReport is the body of POST /reports.
type NewReport struct {
	Date        string  `json:"date" validate:"required"`
	Summary     string  `json:"summary" validate:"required"`
	HoursWorked float64 `json:"hours_worked" validate:"gte=0,lte=24"`
}

// Validate checks required fields and the 0-24 range in half hour steps.
func (n NewReport) Validate() error {
	err := validateStruct(n)
	if math.Mod(n.HoursWorked*2, 1) != 0 {
		err = merge(err, FieldError{Field: "hours_worked", Message: "must be a multiple of 0.5"})
	}
	return err
}
