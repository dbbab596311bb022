package reports

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/models"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
)

type QuarterlyRoyaltyResponse struct {
	ArtistId   int             `json:"artistId"`
	ArtistName *string         `json:"artistName,omitempty"`
	Year       int             `json:"year"`
	Quarter    int             `json:"quarter"`
	ItemCount  int             `json:"itemCount"`
	UsageCount int             `json:"usageCount"`
	TotalGross decimal.Decimal `json:"totalGross"`
	TotalNet   decimal.Decimal `json:"totalNet"`
}

// Label renders the display form of the quarter, e.g. "2024-Q1". Rows with
// year 0 are the dateless bucket.
func (r QuarterlyRoyaltyResponse) Label() string {
	if r.Year == 0 {
		return "Unassigned"
	}
	return fmt.Sprintf("%d-Q%d", r.Year, r.Quarter)
}

// GetQuarterlyRoyaltyReport aggregates royalties per artist per quarter.
// artistId 0 covers the whole roster; a nil bound leaves that side of the
// date range open. Dateless line items surface as a year-0 row rather than
// disappearing from the totals.
func GetQuarterlyRoyaltyReport(ctx context.Context, artistId int, fromDate *time.Time, toDate *time.Time) ([]*QuarterlyRoyaltyResponse, error) {
	sqlT := `
SELECT
    li.artist_id,
    artists.name AS artist_name,
    COALESCE(YEAR(li.broadcast_date), 0) AS year,
    COALESCE(QUARTER(li.broadcast_date), 0) AS quarter,
    COUNT(li.id) AS item_count,
    SUM(li.usage_count) AS usage_count,
    SUM(li.gross) AS total_gross,
    SUM(li.net) AS total_net
FROM
    royalty_line_items AS li
        LEFT JOIN
    artists ON artists.id = li.artist_id
WHERE
    1 = 1
    {{- if .artistId }} AND li.artist_id = @artistId {{- end }}
    {{- if .fromDate }} AND li.broadcast_date >= @fromDate {{- end }}
    {{- if .toDate }} AND li.broadcast_date <= @toDate {{- end }}
GROUP BY li.artist_id , artists.name , COALESCE(YEAR(li.broadcast_date), 0) , COALESCE(QUARTER(li.broadcast_date), 0)
ORDER BY year DESC , quarter DESC , artist_name;
`
	if artistId > 0 {
		if err := utils.ValidateResourceId[models.Artist](ctx, 0, artistId); err != nil {
			return nil, err
		}
	}

	params := map[string]interface{}{
		"artistId": artistId,
		"fromDate": fromDate,
		"toDate":   toDate,
	}
	sql, err := utils.ExecTemplate(sqlT, params)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*QuarterlyRoyaltyResponse
	if err := db.WithContext(ctx).Raw(sql, params).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
