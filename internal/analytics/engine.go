// Package analytics turns an already access-scoped slice of payment requests
// into the summary collections the dashboard renders. Every transform is a
// pure function: no I/O, no clock reads, and identical input always produces
// identical output. All calendar bucketing is done in UTC.
package analytics

import (
	"sort"
	"time"

	"clubfunds/internal/database"

	"github.com/google/uuid"
)

type MonthlyPoint struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type StatusPoint struct {
	Status string  `json:"status"`
	Value  float64 `json:"value"`
	Count  int     `json:"count"`
}

type GroupPoint struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

type TimeframePoint struct {
	Timeframe     string  `json:"timeframe"`
	AverageAmount float64 `json:"averageAmount"`
	Count         int     `json:"count"`
}

type BudgetLinePoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

type DayOfWeekPoint struct {
	Day   string  `json:"day"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type RequesterPoint struct {
	Email       string  `json:"email"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

type ComparisonPoint struct {
	Name            string  `json:"name"`
	ActualSpent     float64 `json:"actualSpent"`
	Allocated       float64 `json:"allocated"`
	UtilizationRate float64 `json:"utilizationRate"`
}

type SeasonPoint struct {
	Season      string  `json:"season"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
}

type TimelinePoint struct {
	Date            string  `json:"date"`
	Amount          float64 `json:"amount"`
	CumulativeTotal float64 `json:"cumulativeTotal"`
}

// Summary bundles every transform over one scoped request slice. This is the
// body of GET /api/analytics.
type Summary struct {
	Monthly          []MonthlyPoint    `json:"monthlyData"`
	Status           []StatusPoint     `json:"statusData"`
	Group            []GroupPoint      `json:"groupData"`
	Timeframe        []TimeframePoint  `json:"timeframeData"`
	BudgetLine       []BudgetLinePoint `json:"budgetLineData"`
	DayOfWeek        []DayOfWeekPoint  `json:"dayOfWeekData"`
	TopRequesters    []RequesterPoint  `json:"topRequesters"`
	BudgetComparison []ComparisonPoint `json:"budgetComparison"`
	Seasonal         []SeasonPoint     `json:"seasonalAnalysis"`
	Timeline         []TimelinePoint   `json:"budgetTimeline"`
}

// Build runs every transform. groupNames maps group ids to display names for
// the group distribution; rows supplies allocations for the budget comparison.
func Build(requests []database.PaymentRequest, groupNames map[uuid.UUID]string, rows []database.BudgetFormRow) Summary {
	return Summary{
		Monthly:          MonthlyData(requests),
		Status:           StatusData(requests),
		Group:            GroupData(requests, groupNames),
		Timeframe:        TimeframeData(requests),
		BudgetLine:       BudgetLineData(requests),
		DayOfWeek:        DayOfWeekData(requests),
		TopRequesters:    TopRequesters(requests),
		BudgetComparison: BudgetComparison(requests, rows),
		Seasonal:         SeasonalAnalysis(requests),
		Timeline:         BudgetTimeline(requests),
	}
}

// MonthlyData groups by UTC calendar month and sorts ascending by the
// YYYY-MM key.
func MonthlyData(requests []database.PaymentRequest) []MonthlyPoint {
	totals := map[string]*MonthlyPoint{}
	for _, req := range requests {
		month := req.Timestamp.UTC().Format("2006-01")
		point, ok := totals[month]
		if !ok {
			point = &MonthlyPoint{Month: month}
			totals[month] = point
		}
		point.Total += req.AmountRequestedCAD
		point.Count++
	}

	out := make([]MonthlyPoint, 0, len(totals))
	for _, point := range totals {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// StatusData groups by status, sorted ascending by status name.
func StatusData(requests []database.PaymentRequest) []StatusPoint {
	totals := map[string]*StatusPoint{}
	for _, req := range requests {
		status := string(req.Status)
		point, ok := totals[status]
		if !ok {
			point = &StatusPoint{Status: status}
			totals[status] = point
		}
		point.Value += req.AmountRequestedCAD
		point.Count++
	}

	out := make([]StatusPoint, 0, len(totals))
	for _, point := range totals {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

// GroupData groups by resolved group name; requests without a group land in
// "Unassigned". Sorted descending by value, name breaks ties.
func GroupData(requests []database.PaymentRequest, groupNames map[uuid.UUID]string) []GroupPoint {
	totals := map[string]*GroupPoint{}
	for _, req := range requests {
		name := "Unassigned"
		if req.GroupID.IsSet {
			if resolved, ok := groupNames[req.GroupID.Val]; ok {
				name = resolved
			}
		}
		point, ok := totals[name]
		if !ok {
			point = &GroupPoint{Group: name}
			totals[name] = point
		}
		point.Value += req.AmountRequestedCAD
		point.Count++
	}

	out := make([]GroupPoint, 0, len(totals))
	for _, point := range totals {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// TimeframeData averages amounts per payment timeframe, skipping requests
// with no timeframe or a non-positive amount. Sorted ascending by timeframe.
func TimeframeData(requests []database.PaymentRequest) []TimeframePoint {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, req := range requests {
		if !req.PaymentTimeframe.IsSet || req.AmountRequestedCAD <= 0 {
			continue
		}
		sums[req.PaymentTimeframe.Val] += req.AmountRequestedCAD
		counts[req.PaymentTimeframe.Val]++
	}

	out := make([]TimeframePoint, 0, len(sums))
	for timeframe, sum := range sums {
		out = append(out, TimeframePoint{
			Timeframe:     timeframe,
			AverageAmount: sum / float64(counts[timeframe]),
			Count:         counts[timeframe],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timeframe < out[j].Timeframe })
	return out
}

// BudgetLineData groups by budget line; missing lines land in "Unspecified".
// Sorted descending by value, name breaks ties.
func BudgetLineData(requests []database.PaymentRequest) []BudgetLinePoint {
	totals := map[string]*BudgetLinePoint{}
	for _, req := range requests {
		name := req.BudgetLine.UnwrapOr("Unspecified")
		point, ok := totals[name]
		if !ok {
			point = &BudgetLinePoint{Name: name}
			totals[name] = point
		}
		point.Value += req.AmountRequestedCAD
		point.Count++
	}

	out := make([]BudgetLinePoint, 0, len(totals))
	for _, point := range totals {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DayOfWeekData groups by UTC weekday. Output runs Sunday through Saturday,
// omitting days with no requests.
func DayOfWeekData(requests []database.PaymentRequest) []DayOfWeekPoint {
	var totals [7]DayOfWeekPoint
	for _, req := range requests {
		day := req.Timestamp.UTC().Weekday()
		totals[day].Count++
		totals[day].Value += req.AmountRequestedCAD
	}

	out := make([]DayOfWeekPoint, 0, 7)
	for day, point := range totals {
		if point.Count == 0 {
			continue
		}
		point.Day = time.Weekday(day).String()
		out = append(out, point)
	}
	return out
}

// TopRequesters ranks requesters by submission count, descending, keeping the
// top ten. Requests without an email land in "Unknown". Email breaks ties.
func TopRequesters(requests []database.PaymentRequest) []RequesterPoint {
	totals := map[string]*RequesterPoint{}
	for _, req := range requests {
		email := req.EmailAddress
		if email == "" {
			email = "Unknown"
		}
		point, ok := totals[email]
		if !ok {
			point = &RequesterPoint{Email: email}
			totals[email] = point
		}
		point.Count++
		point.TotalAmount += req.AmountRequestedCAD
	}

	out := make([]RequesterPoint, 0, len(totals))
	for _, point := range totals {
		out = append(out, *point)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Email < out[j].Email
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// BudgetComparison matches spending per budget line against the allocated
// figure of the budget row with the same label. A line with no matching
// allocation reports a zero utilization rate rather than dividing by zero.
// Sorted descending by utilization rate, name breaks ties.
func BudgetComparison(requests []database.PaymentRequest, rows []database.BudgetFormRow) []ComparisonPoint {
	allocations := map[string]float64{}
	for _, row := range rows {
		if row.RowType != database.BudgetRowTypeData {
			continue
		}
		allocations[row.Label] += row.AllocatedCAD
	}

	spent := map[string]float64{}
	for _, req := range requests {
		spent[req.BudgetLine.UnwrapOr("Unspecified")] += req.AmountRequestedCAD
	}

	out := make([]ComparisonPoint, 0, len(spent))
	for name, actual := range spent {
		point := ComparisonPoint{
			Name:        name,
			ActualSpent: actual,
			Allocated:   allocations[name],
		}
		if point.Allocated != 0 {
			point.UtilizationRate = actual / point.Allocated * 100
		}
		out = append(out, point)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UtilizationRate != out[j].UtilizationRate {
			return out[i].UtilizationRate > out[j].UtilizationRate
		}
		return out[i].Name < out[j].Name
	})
	return out
}

const (
	seasonFall         = "Fall"
	seasonWinter       = "Winter"
	seasonSpringSummer = "Spring/Summer"
)

func seasonOf(t time.Time) string {
	switch month := t.UTC().Month(); {
	case month >= time.September:
		return seasonFall
	case month <= time.April:
		return seasonWinter
	default:
		return seasonSpringSummer
	}
}

// SeasonalAnalysis buckets requests into academic seasons: September through
// December is Fall, January through April is Winter, the rest is
// Spring/Summer. Output order is fixed, omitting empty seasons.
func SeasonalAnalysis(requests []database.PaymentRequest) []SeasonPoint {
	totals := map[string]*SeasonPoint{}
	for _, req := range requests {
		season := seasonOf(req.Timestamp)
		point, ok := totals[season]
		if !ok {
			point = &SeasonPoint{Season: season}
			totals[season] = point
		}
		point.Count++
		point.TotalAmount += req.AmountRequestedCAD
	}

	out := make([]SeasonPoint, 0, 3)
	for _, season := range []string{seasonFall, seasonWinter, seasonSpringSummer} {
		if point, ok := totals[season]; ok {
			out = append(out, *point)
		}
	}
	return out
}

// BudgetTimeline orders requests ascending by timestamp and emits a running
// cumulative total. The internal sort makes the cumulative values independent
// of input order; the request id breaks timestamp ties.
func BudgetTimeline(requests []database.PaymentRequest) []TimelinePoint {
	sorted := make([]database.PaymentRequest, len(requests))
	copy(sorted, requests)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	out := make([]TimelinePoint, 0, len(sorted))
	var cumulative float64
	for _, req := range sorted {
		cumulative += req.AmountRequestedCAD
		out = append(out, TimelinePoint{
			Date:            req.Timestamp.UTC().Format("2006-01-02"),
			Amount:          req.AmountRequestedCAD,
			CumulativeTotal: cumulative,
		})
	}
	return out
}
