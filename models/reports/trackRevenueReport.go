package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/models"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
)

type TrackRevenueResponse struct {
	TrackId    int             `json:"trackId"`
	TrackTitle *string         `json:"trackTitle,omitempty"`
	ArtistName *string         `json:"artistName,omitempty"`
	UsageCount int             `json:"usageCount"`
	TotalGross decimal.Decimal `json:"totalGross"`
	TotalNet   decimal.Decimal `json:"totalNet"`
}

// GetTrackRevenueReport ranks tracks by net revenue, highest first.
// limit 0 returns every track; nil date bounds leave the range open.
func GetTrackRevenueReport(ctx context.Context, artistId int, limit int, fromDate *time.Time, toDate *time.Time) ([]*TrackRevenueResponse, error) {
	sqlT := `
SELECT
    li.track_id,
    tracks.title AS track_title,
    artists.name AS artist_name,
    SUM(li.usage_count) AS usage_count,
    SUM(li.gross) AS total_gross,
    SUM(li.net) AS total_net
FROM
    royalty_line_items AS li
        LEFT JOIN
    tracks ON tracks.id = li.track_id
        LEFT JOIN
    artists ON artists.id = li.artist_id
WHERE
    1 = 1
    {{- if .artistId }} AND li.artist_id = @artistId {{- end }}
    {{- if .fromDate }} AND li.broadcast_date >= @fromDate {{- end }}
    {{- if .toDate }} AND li.broadcast_date <= @toDate {{- end }}
GROUP BY li.track_id , tracks.title , artists.name
ORDER BY total_net DESC , track_title
{{- if .limit }} LIMIT @limit {{- end }};
`
	if artistId > 0 {
		if err := utils.ValidateResourceId[models.Artist](ctx, 0, artistId); err != nil {
			return nil, err
		}
	}

	params := map[string]interface{}{
		"artistId": artistId,
		"limit":    limit,
		"fromDate": fromDate,
		"toDate":   toDate,
	}
	sql, err := utils.ExecTemplate(sqlT, params)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*TrackRevenueResponse
	if err := db.WithContext(ctx).Raw(sql, params).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
