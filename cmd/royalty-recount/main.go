package main

import (
	"context"
	"flag"
	"log"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/models"
	"github.com/sirupsen/logrus"
)

// royalty-recount walks every artist, recomputes quarter totals and the
// payable balance from the line items, and logs the figures. Run it after a
// bulk import or a manual data fix to double-check what the portal reports.
func main() {
	activeOnly := flag.Bool("active-only", false, "skip deactivated artists")
	flag.Parse()

	logger := config.GetLogger()
	logger.SetLevel(logrus.InfoLevel)
	config.ConnectDatabaseWithRetry()

	ctx := context.Background()
	artists, err := models.GetArtists(ctx, nil, *activeOnly)
	if err != nil {
		log.Fatal(err)
	}

	for _, artist := range artists {
		breakdown, err := models.GetArtistQuarterBreakdown(ctx, artist.ID)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"field":     "royalty-recount",
				"artist_id": artist.ID,
			}).Error(err.Error())
			continue
		}
		balance, err := models.GetArtistBalance(ctx, artist.ID)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"field":     "royalty-recount",
				"artist_id": artist.ID,
			}).Error(err.Error())
			continue
		}

		fields := logrus.Fields{
			"field":     "royalty-recount",
			"artist_id": artist.ID,
			"artist":    artist.Name,
			"quarters":  len(breakdown.Quarters),
			"total_net": balance.TotalNet.String(),
			"paid":      balance.Paid.String(),
			"pending":   balance.Pending.String(),
			"available": balance.Available.String(),
		}
		if breakdown.Unassigned != nil {
			fields["unassigned_net"] = breakdown.Unassigned.TotalNet.String()
		}
		logger.WithFields(fields).Info("artist balance recomputed")
	}

	logger.WithFields(logrus.Fields{
		"field":   "royalty-recount",
		"artists": len(artists),
	}).Info("recount complete")
}
