package http

import (
	"strconv"

	"companyops/internal/chart"
	"companyops/internal/core"
)

// Finance chart palette.
const (
	colorRevenue = "#22c55e"
	colorExpense = "#ef4444"
	colorNet     = "#60a5fa"
	colorSalary  = "#a78bfa"
)

type loginView struct {
	Register bool
	Error    string
	Notice   string
	Name     string
	Email    string
	Role     core.Role
	Roles    []core.Role
}

type tabView struct {
	Tab    core.Tab
	Title  string
	Active bool
}

type dashboardView struct {
	User   core.User
	Tabs   []tabView
	Active core.Tab
}

type tasksView struct {
	Items        []core.Task
	Statuses     []core.TaskStatus
	Assignee     string
	CanFilter    bool
	CanCreate    bool
	ShowAssignee bool
	CanUpdate    bool
	Error        string
}

type reportsView struct {
	Items        []core.Report
	CanSubmit    bool
	DefaultHours float64
	Error        string
}

type salaryView struct {
	Items     []core.SalaryRecord
	Statuses  []core.SalaryStatus
	CanCreate bool
	Error     string
}

type financeView struct {
	Items     []core.FinanceEntry
	Kinds     []core.FinanceKind
	Analytics analyticsView
	CanCreate bool
	Error     string
}

type totalCard struct {
	Label string
	Value string
}

type analyticsView struct {
	Months int
	Totals []totalCard
	Charts []chartView
	Error  string
}

// chartView is a chart.Chart positioned for inline SVG.
type chartView struct {
	Title  string
	Width  int
	Height int
	Base   float64
	Bars   []barRect
	Labels []axisLabel
	Legend []chart.LegendEntry
}

type barRect struct {
	X, Y, W, H float64
	Color      string
	Title      string
}

type axisLabel struct {
	X    float64
	Text string
}

const (
	labelGutter = 18
	groupGap    = 4
)

// newChartView lays the groups of c side by side, each BarWidth wide, with
// the group's bars splitting that width.
func newChartView(title string, c chart.Chart) chartView {
	v := chartView{
		Title:  title,
		Width:  c.BarWidth * len(c.Groups),
		Height: int(c.Height) + labelGutter,
		Base:   c.Height,
		Legend: c.Legend,
	}
	for gi, g := range c.Groups {
		x0 := float64(gi * c.BarWidth)
		inner := float64(c.BarWidth - groupGap)
		if inner < 1 {
			inner = 1
		}
		w := inner
		if n := len(g.Bars); n > 0 {
			w = inner / float64(n)
		}
		for bi, b := range g.Bars {
			v.Bars = append(v.Bars, barRect{
				X:     x0 + float64(groupGap)/2 + float64(bi)*w,
				Y:     c.Height - b.Height,
				W:     w,
				H:     b.Height,
				Color: b.Color,
				Title: b.Title,
			})
		}
		v.Labels = append(v.Labels, axisLabel{X: x0 + float64(c.BarWidth)/2, Text: g.Label})
	}
	return v
}

// financeCharts builds the two dashboard charts from one summary.
func financeCharts(a core.AnalyticsSummary) (revenueVsExpenses, salary chart.Chart) {
	opts := chart.DefaultOptions()
	revenueVsExpenses = chart.Compute(a.Months, []chart.Series{
		{Name: "Revenue", Data: a.Finance.Revenue},
		{Name: "Expense", Data: a.Finance.Expense},
		{Name: "Net", Data: a.Finance.Net},
	}, []string{colorRevenue, colorExpense, colorNet}, opts)
	salary = chart.Compute(a.Months, []chart.Series{
		{Name: "Salary", Data: a.Salary.Total},
	}, []string{colorSalary}, opts)
	return revenueVsExpenses, salary
}

func newAnalyticsView(a core.AnalyticsSummary, months int) analyticsView {
	t := a.Totals()
	suffix := " (" + strconv.Itoa(months) + " mo)"
	rve, sal := financeCharts(a)
	return analyticsView{
		Months: months,
		Totals: []totalCard{
			{Label: "Revenue" + suffix, Value: core.FormatUSD(t.Revenue)},
			{Label: "Expenses" + suffix, Value: core.FormatUSD(t.Expense)},
			{Label: "Salary" + suffix, Value: core.FormatUSD(t.Salary)},
			{Label: "Net" + suffix, Value: core.FormatUSD(t.Net)},
		},
		Charts: []chartView{
			newChartView("Revenue vs Expenses", rve),
			newChartView("Salary", sal),
		},
	}
}
