package royalty

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// QuarterOf maps a calendar date to its year and quarter (1..4). Dates are
// taken as plain calendar dates, no timezone shifting.
func QuarterOf(t time.Time) (year, quarter int) {
	return t.Year(), (int(t.Month())-1)/3 + 1
}

// QuarterLabel renders the display form, e.g. "2024-Q1".
func QuarterLabel(year, quarter int) string {
	return fmt.Sprintf("%d-Q%d", year, quarter)
}

// QuarterGroup is one quarter's line items plus exact decimal totals.
// Totals are computed over every item in the group, so truncating Items
// for display never changes them.
type QuarterGroup struct {
	Year       int             `json:"year"`
	Quarter    int             `json:"quarter"`
	Label      string          `json:"label"`
	Items      []LineItem      `json:"items"`
	TotalGross decimal.Decimal `json:"totalGross"`
	TotalNet   decimal.Decimal `json:"totalNet"`
}

// QuarterBreakdown holds the per-quarter groups ordered newest first, and a
// separate bucket for items without a broadcast date.
type QuarterBreakdown struct {
	Quarters   []QuarterGroup `json:"quarters"`
	Unassigned *QuarterGroup  `json:"unassigned,omitempty"`
}

// GroupByQuarter buckets line items by (year, quarter) of their broadcast
// date. Items without a date land in the Unassigned bucket rather than
// being dropped, so every grand total still covers every item.
func GroupByQuarter(items []LineItem) QuarterBreakdown {
	type key struct{ year, quarter int }
	groups := make(map[key]*QuarterGroup)
	var unassigned *QuarterGroup

	for _, item := range items {
		if item.BroadcastDate == nil {
			if unassigned == nil {
				unassigned = &QuarterGroup{Label: "Unassigned", TotalGross: decimal.Zero, TotalNet: decimal.Zero}
			}
			unassigned.Items = append(unassigned.Items, item)
			unassigned.TotalGross = unassigned.TotalGross.Add(item.Gross)
			unassigned.TotalNet = unassigned.TotalNet.Add(item.Net)
			continue
		}
		year, quarter := QuarterOf(*item.BroadcastDate)
		k := key{year, quarter}
		group, ok := groups[k]
		if !ok {
			group = &QuarterGroup{
				Year:       year,
				Quarter:    quarter,
				Label:      QuarterLabel(year, quarter),
				TotalGross: decimal.Zero,
				TotalNet:   decimal.Zero,
			}
			groups[k] = group
		}
		group.Items = append(group.Items, item)
		group.TotalGross = group.TotalGross.Add(item.Gross)
		group.TotalNet = group.TotalNet.Add(item.Net)
	}

	breakdown := QuarterBreakdown{Unassigned: unassigned}
	for _, group := range groups {
		breakdown.Quarters = append(breakdown.Quarters, *group)
	}
	sort.Slice(breakdown.Quarters, func(i, j int) bool {
		a, b := breakdown.Quarters[i], breakdown.Quarters[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Quarter > b.Quarter
	})
	return breakdown
}

// TotalNet sums the net amount over every item, exactly.
func TotalNet(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Net)
	}
	return total
}

// RevenueRollup is one dimension value's aggregate revenue.
type RevenueRollup struct {
	Key        string          `json:"key"`
	UsageCount int             `json:"usageCount"`
	Gross      decimal.Decimal `json:"gross"`
	Net        decimal.Decimal `json:"net"`
}

// RevenueBy aggregates items by an arbitrary dimension and returns the
// rollups sorted by net descending, ties broken by key for stable output.
func RevenueBy(items []LineItem, keyFn func(LineItem) string) []RevenueRollup {
	byKey := make(map[string]*RevenueRollup)
	for _, item := range items {
		k := keyFn(item)
		rollup, ok := byKey[k]
		if !ok {
			rollup = &RevenueRollup{Key: k, Gross: decimal.Zero, Net: decimal.Zero}
			byKey[k] = rollup
		}
		rollup.UsageCount += item.UsageCount
		rollup.Gross = rollup.Gross.Add(item.Gross)
		rollup.Net = rollup.Net.Add(item.Net)
	}

	rollups := make([]RevenueRollup, 0, len(byKey))
	for _, rollup := range byKey {
		rollups = append(rollups, *rollup)
	}
	sort.Slice(rollups, func(i, j int) bool {
		if !rollups[i].Net.Equal(rollups[j].Net) {
			return rollups[i].Net.GreaterThan(rollups[j].Net)
		}
		return rollups[i].Key < rollups[j].Key
	})
	return rollups
}

// TopN truncates an already-sorted rollup list for display. Totals must be
// taken from the full list before truncation.
func TopN(rollups []RevenueRollup, n int) []RevenueRollup {
	if n <= 0 || n >= len(rollups) {
		return rollups
	}
	return rollups[:n]
}
