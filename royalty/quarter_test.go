package royalty

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dateOn(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func itemOn(date string, net string) LineItem {
	var d *time.Time
	if date != "" {
		d = dateOn(date)
	}
	n, err := decimal.NewFromString(net)
	if err != nil {
		panic(err)
	}
	return LineItem{TrackId: 1, Net: n, Gross: n, BroadcastDate: d}
}

func TestQuarterOf(t *testing.T) {
	cases := []struct {
		date    string
		year    int
		quarter int
	}{
		{"2024-01-01", 2024, 1},
		{"2024-03-31", 2024, 1},
		{"2024-04-01", 2024, 2},
		{"2024-06-30", 2024, 2},
		{"2024-07-01", 2024, 3},
		{"2024-10-01", 2024, 4},
		{"2024-12-31", 2024, 4},
	}
	for _, tc := range cases {
		year, quarter := QuarterOf(*dateOn(tc.date))
		if year != tc.year || quarter != tc.quarter {
			t.Fatalf("QuarterOf(%s) expected %d-Q%d, got %d-Q%d", tc.date, tc.year, tc.quarter, year, quarter)
		}
	}
}

func TestGroupByQuarter_BucketsByCalendarQuarter(t *testing.T) {
	items := []LineItem{
		itemOn("2024-02-15", "1.00"),
		itemOn("2024-03-20", "2.00"),
		itemOn("2024-04-01", "4.00"),
	}
	breakdown := GroupByQuarter(items)

	if len(breakdown.Quarters) != 2 {
		t.Fatalf("expected 2 quarters, got %d", len(breakdown.Quarters))
	}
	// Newest first.
	if breakdown.Quarters[0].Label != "2024-Q2" || breakdown.Quarters[1].Label != "2024-Q1" {
		t.Fatalf("expected [2024-Q2 2024-Q1], got [%s %s]", breakdown.Quarters[0].Label, breakdown.Quarters[1].Label)
	}
	q1 := breakdown.Quarters[1]
	if len(q1.Items) != 2 {
		t.Fatalf("2024-02-15 and 2024-03-20 belong in the same quarter, got %d items", len(q1.Items))
	}
	if q1.TotalNet.String() != "3" {
		t.Fatalf("expected Q1 net 3, got %s", q1.TotalNet.String())
	}
	if breakdown.Unassigned != nil {
		t.Fatalf("no dateless items, unassigned should be nil")
	}
}

func TestGroupByQuarter_DatelessItemsGoToUnassigned(t *testing.T) {
	items := []LineItem{
		itemOn("2024-02-15", "1.00"),
		itemOn("", "2.50"),
		itemOn("", "0.50"),
	}
	breakdown := GroupByQuarter(items)
	if breakdown.Unassigned == nil {
		t.Fatal("expected an unassigned bucket")
	}
	if len(breakdown.Unassigned.Items) != 2 {
		t.Fatalf("expected 2 unassigned items, got %d", len(breakdown.Unassigned.Items))
	}
	if breakdown.Unassigned.TotalNet.String() != "3" {
		t.Fatalf("expected unassigned net 3, got %s", breakdown.Unassigned.TotalNet.String())
	}
	// Grand total still covers every item.
	grand := TotalNet(items)
	if grand.String() != "4" {
		t.Fatalf("expected grand total 4, got %s", grand.String())
	}
}

func TestTotalNet_ExactDecimalSummation(t *testing.T) {
	items := make([]LineItem, 0, 10000)
	for i := 0; i < 10000; i++ {
		items = append(items, itemOn("2024-02-15", "0.01"))
	}
	total := TotalNet(items)
	if !total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("10000 x 0.01 must be exactly 100, got %s", total.String())
	}
}

func TestQuarterTotals_IndependentOfDisplayTruncation(t *testing.T) {
	items := make([]LineItem, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, itemOn("2024-02-15", "1.11"))
	}
	breakdown := GroupByQuarter(items)
	group := breakdown.Quarters[0]
	full := group.TotalNet

	// Render only the first 10 items; totals were computed before truncation.
	group.Items = group.Items[:10]
	if !group.TotalNet.Equal(full) || group.TotalNet.String() != "55.5" {
		t.Fatalf("truncating the item list must not change the total, got %s", group.TotalNet.String())
	}
}

func TestRevenueBy_SortsByNetDescending(t *testing.T) {
	items := []LineItem{
		{Territory: "MM", UsageCount: 2, Net: decimal.RequireFromString("5.00"), Gross: decimal.RequireFromString("6.00")},
		{Territory: "SG", UsageCount: 1, Net: decimal.RequireFromString("9.00"), Gross: decimal.RequireFromString("10.00")},
		{Territory: "MM", UsageCount: 3, Net: decimal.RequireFromString("5.00"), Gross: decimal.RequireFromString("6.00")},
	}
	rollups := RevenueBy(items, func(i LineItem) string { return i.Territory })
	if len(rollups) != 2 {
		t.Fatalf("expected 2 rollups, got %d", len(rollups))
	}
	if rollups[0].Key != "MM" || rollups[0].Net.String() != "10" || rollups[0].UsageCount != 5 {
		t.Fatalf("expected MM first with net 10, got %+v", rollups[0])
	}
	if rollups[1].Key != "SG" {
		t.Fatalf("expected SG second, got %s", rollups[1].Key)
	}
}

func TestTopN_TruncatesAfterSorting(t *testing.T) {
	rollups := []RevenueRollup{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	if got := TopN(rollups, 2); len(got) != 2 {
		t.Fatalf("expected 2 rollups, got %d", len(got))
	}
	if got := TopN(rollups, 0); len(got) != 3 {
		t.Fatalf("n<=0 returns everything, got %d", len(got))
	}
	if got := TopN(rollups, 10); len(got) != 3 {
		t.Fatalf("n beyond the list returns everything, got %d", len(got))
	}
}
