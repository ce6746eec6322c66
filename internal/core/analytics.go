package core

import "github.com/shopspring/decimal"

// DefaultAnalyticsMonths is the window the finance panel requests.
const DefaultAnalyticsMonths = 6

// AnalyticsSummary is the server-computed monthly aggregation. Every series
// is index-aligned to Months.
type AnalyticsSummary struct {
	Months  []string      `json:"months"`
	Finance FinanceSeries `json:"finance"`
	Salary  SalarySeries  `json:"salary"`
}

type FinanceSeries struct {
	Revenue []float64 `json:"revenue"`
	Expense []float64 `json:"expense"`
	Net     []float64 `json:"net"`
}

type SalarySeries struct {
	Total []float64 `json:"total"`
}

// Totals are the sums shown on the finance cards.
type Totals struct {
	Revenue decimal.Decimal
	Expense decimal.Decimal
	Salary  decimal.Decimal
	Net     decimal.Decimal
}

// Totals sums each series. An empty summary yields zeros.
func (a AnalyticsSummary) Totals() Totals {
	return Totals{
		Revenue: sum(a.Finance.Revenue),
		Expense: sum(a.Finance.Expense),
		Salary:  sum(a.Salary.Total),
		Net:     sum(a.Finance.Net),
	}
}

// Aligned reports whether every series has one value per month.
func (a AnalyticsSummary) Aligned() bool {
	n := len(a.Months)
	for _, s := range [][]float64{a.Finance.Revenue, a.Finance.Expense, a.Finance.Net, a.Salary.Total} {
		if len(s) != n {
			return false
		}
	}
	return true
}

func sum(values []float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}
