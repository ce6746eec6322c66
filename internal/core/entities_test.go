package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskDecodeID(t *testing.T) {
	var tasks []Task
	body := `[{"_id":"a1","title":"Ship","status":"pending"},{"id":42,"title":"Fix","status":"done"}]`
	require.NoError(t, json.Unmarshal([]byte(body), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "a1", tasks[0].ID)
	assert.Equal(t, "42", tasks[1].ID)
	assert.Equal(t, TaskDone, tasks[1].Status)
}

func TestParseTaskStatus(t *testing.T) {
	for _, s := range TaskStatuses() {
		got, err := ParseTaskStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseTaskStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNewTaskValidate(t *testing.T) {
	require.NoError(t, NewTask{Title: "Ship", AssigneeEmail: "ann@corp.io"}.Validate())

	err := NewTask{Description: "no title"}.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	msg, ok := verr.Field("title")
	assert.True(t, ok)
	assert.Equal(t, "is required", msg)
	_, ok = verr.Field("assignee_email")
	assert.True(t, ok)
}

func TestNewReportValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      NewReport
		field   string
		wantErr bool
	}{
		{"valid", NewReport{Date: "2025-01-02", Summary: "done", HoursWorked: 7.5}, "", false},
		{"zero hours", NewReport{Date: "2025-01-02", Summary: "off", HoursWorked: 0}, "", false},
		{"missing date", NewReport{Summary: "x", HoursWorked: 8}, "date", true},
		{"too many hours", NewReport{Date: "2025-01-02", Summary: "x", HoursWorked: 25}, "hours_worked", true},
		{"negative hours", NewReport{Date: "2025-01-02", Summary: "x", HoursWorked: -1}, "hours_worked", true},
		{"off step", NewReport{Date: "2025-01-02", Summary: "x", HoursWorked: 7.25}, "hours_worked", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			_, ok := verr.Field(tt.field)
			assert.True(t, ok, "expected %s to be rejected: %v", tt.field, err)
		})
	}
}

func TestReportDisplay(t *testing.T) {
	r := Report{Date: "2025-01-02", HoursWorked: 7.5}
	assert.Equal(t, "2025-01-02", r.DisplayDate())
	assert.Equal(t, "7.5h", r.HoursLabel())
	r.ReportDate = "2025-01-03"
	assert.Equal(t, "2025-01-03", r.DisplayDate())
	assert.Equal(t, "8h", Report{HoursWorked: 8}.HoursLabel())
}

func TestFinanceEntryValidateAndLines(t *testing.T) {
	in := NewFinanceEntry{Kind: KindRevenue, Amount: decimal.NewFromInt(1200), Category: "consulting"}
	require.NoError(t, in.Validate())

	bad := NewFinanceEntry{Kind: "gift", Amount: decimal.NewFromInt(-1)}
	var verr *ValidationError
	require.ErrorAs(t, bad.Validate(), &verr)
	for _, f := range []string{"kind", "category", "amount"} {
		_, ok := verr.Field(f)
		assert.True(t, ok, "field %s", f)
	}

	e := FinanceEntry{Kind: KindExpense, Amount: decimal.RequireFromString("99.5"), Category: "rent", Description: "office", Reference: "INV-7"}
	assert.Equal(t, "EXPENSE - $99.5 • rent", e.Headline())
	assert.Equal(t, "office • INV-7", e.Detail())
	e.Reference = ""
	assert.Equal(t, "office", e.Detail())
}

func TestFinancePayloadEncodesNumbers(t *testing.T) {
	b, err := json.Marshal(NewFinanceEntry{Kind: KindExpense, Amount: decimal.RequireFromString("12.5"), Category: "rent"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"amount":12.5`)
}

func TestSalaryRecordLines(t *testing.T) {
	s := SalaryRecord{EmployeeEmail: "ann@corp.io", Amount: decimal.NewFromInt(3000), Month: "2025-01", Status: SalaryPaid}
	assert.Equal(t, "ann@corp.io - $3000 (2025-01)", s.Headline())
	assert.Equal(t, "paid", s.Detail())
	s.Notes = "bonus"
	assert.Equal(t, "paid • bonus", s.Detail())

	require.NoError(t, NewSalaryRecord{EmployeeEmail: "ann@corp.io", Month: "2025-01", Status: SalaryPending}.Validate())
	assert.ErrorIs(t, NewSalaryRecord{EmployeeEmail: "ann@corp.io", Month: "2025-01", Status: "late"}.Validate(), ErrInvalidInput)
}
