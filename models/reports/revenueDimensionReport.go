package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/models"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
)

type RevenueDimensionResponse struct {
	Key        *string         `json:"key,omitempty"`
	UsageCount int             `json:"usageCount"`
	TotalGross decimal.Decimal `json:"totalGross"`
	TotalNet   decimal.Decimal `json:"totalNet"`
}

func getRevenueByColumn(ctx context.Context, column string, artistId int, fromDate *time.Time, toDate *time.Time) ([]*RevenueDimensionResponse, error) {
	sqlT := `
SELECT
    NULLIF(li.{{ .column }}, '') AS ` + "`key`" + `,
    SUM(li.usage_count) AS usage_count,
    SUM(li.gross) AS total_gross,
    SUM(li.net) AS total_net
FROM
    royalty_line_items AS li
WHERE
    1 = 1
    {{- if .artistId }} AND li.artist_id = @artistId {{- end }}
    {{- if .fromDate }} AND li.broadcast_date >= @fromDate {{- end }}
    {{- if .toDate }} AND li.broadcast_date <= @toDate {{- end }}
GROUP BY NULLIF(li.{{ .column }}, '')
ORDER BY total_net DESC , ` + "`key`" + `;
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
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"column":   column,
		"artistId": artistId,
		"fromDate": fromDate,
		"toDate":   toDate,
	})
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*RevenueDimensionResponse
	if err := db.WithContext(ctx).Raw(sql, params).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetTerritoryRevenueReport aggregates revenue per territory, highest net
// first. Blank territories show as a NULL key row.
func GetTerritoryRevenueReport(ctx context.Context, artistId int, fromDate *time.Time, toDate *time.Time) ([]*RevenueDimensionResponse, error) {
	return getRevenueByColumn(ctx, "territory", artistId, fromDate, toDate)
}

// GetSourceRevenueReport aggregates revenue per exploitation source.
func GetSourceRevenueReport(ctx context.Context, artistId int, fromDate *time.Time, toDate *time.Time) ([]*RevenueDimensionResponse, error) {
	return getRevenueByColumn(ctx, "source", artistId, fromDate, toDate)
}
