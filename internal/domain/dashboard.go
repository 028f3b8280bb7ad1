package domain

import "math"

// MonthlyFinancialSnapshot is a read-time projection of one calendar month.
// Amounts are in the smallest currency unit.
type MonthlyFinancialSnapshot struct {
	Month             int   `json:"month"`
	Year              int   `json:"year"`
	MembershipRevenue int64 `json:"membership_revenue"`
	ServiceRevenue    int64 `json:"service_revenue"`
	TotalRevenue      int64 `json:"total_revenue"`
	Expenses          int64 `json:"expenses"`
	NetProfit         int64 `json:"net_profit"`
	NewMemberships    int64 `json:"new_memberships"`
	Visits            int64 `json:"visits"`
}

// MonthOverMonthGrowth holds growth percentages against the previous month.
type MonthOverMonthGrowth struct {
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
	Members float64 `json:"members"`
	Visits  float64 `json:"visits"`
}

// DashboardSnapshot is the owner's landing view.
type DashboardSnapshot struct {
	ActiveMembers              int64                `json:"active_members"`
	TotalMembers               int64                `json:"total_members"`
	VisitsToday                int64                `json:"visits_today"`
	VisitsThisMonth            int64                `json:"visits_this_month"`
	NewMembershipsThisMonth    int64                `json:"new_memberships_this_month"`
	RevenueThisMonth           int64                `json:"revenue_this_month"`
	ExpensesThisMonth          int64                `json:"expenses_this_month"`
	NetProfitThisMonth         int64                `json:"net_profit_this_month"`
	NetProfitLastMonth         int64                `json:"net_profit_last_month"`
	EndingSoon                 []*Membership        `json:"ending_soon"`
	MembershipTypeDistribution map[PlanCode]int64   `json:"membership_type_distribution"`
	MonthOverMonthGrowth       MonthOverMonthGrowth `json:"month_over_month_growth"`
}

// GrowthPercentage returns the change from previous to current in percent,
// rounded half-to-even to two decimals. A zero baseline yields 100 when there
// is any current activity and 0 otherwise.
func GrowthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	growth := (current - previous) / previous * 100
	return math.RoundToEven(growth*100) / 100
}
