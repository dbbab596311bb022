package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/models"
	"bitbucket.org/mmdatafocus/royalties_backend/models/reports"
	"bitbucket.org/mmdatafocus/royalties_backend/royalty"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to HTTP statuses. Gating and validation
// failures carry their machine code to the client.
func respondError(c *gin.Context, err error) {
	var rerr *royalty.Error
	if errors.As(err, &rerr) {
		status := http.StatusUnprocessableEntity
		if rerr.Code == royalty.CodeRequestPending {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error":          rerr.Message,
			"code":           rerr.Code,
			"detail":         rerr.Detail,
			"inserted_count": rerr.Inserted,
		})
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

// --- auth ---

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": ok})
	}
}

// --- artists ---

func createArtistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewArtist
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		artist, err := models.CreateArtist(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, artist)
	}
}

func updateArtistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewArtist
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		artist, err := models.UpdateArtist(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, artist)
	}
}

func deleteArtistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		artist, err := models.DeleteArtist(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, artist)
	}
}

func getArtistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		artist, err := models.GetArtist(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, artist)
	}
}

func listArtistsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var name *string
		if v := c.Query("name"); v != "" {
			name = &v
		}
		activeOnly := c.Query("active") == "true"
		artists, err := models.GetArtists(c.Request.Context(), name, activeOnly)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"artists": artists})
	}
}

// --- tracks ---

func createTrackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewTrack
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		track, err := models.CreateTrack(c.Request.Context(), artistId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, track)
	}
}

func listTracksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var title *string
		if v := c.Query("title"); v != "" {
			title = &v
		}
		tracks, err := models.GetTracks(c.Request.Context(), artistId, title)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tracks": tracks})
	}
}

func updateTrackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		trackId, ok := pathId(c, "trackId")
		if !ok {
			return
		}
		var input models.NewTrack
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		track, err := models.UpdateTrack(c.Request.Context(), artistId, trackId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, track)
	}
}

func deleteTrackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		trackId, ok := pathId(c, "trackId")
		if !ok {
			return
		}
		track, err := models.DeleteTrack(c.Request.Context(), artistId, trackId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, track)
	}
}

func exportCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		artist, err := models.GetArtist(c.Request.Context(), artistId)
		if err != nil {
			respondError(c, err)
			return
		}
		tracks, err := models.GetTracks(c.Request.Context(), artistId, nil)
		if err != nil {
			respondError(c, err)
			return
		}

		rows := make([]royalty.CatalogRow, 0, len(tracks))
		for _, t := range tracks {
			rows = append(rows, royalty.CatalogRow{
				Title:    t.Title,
				Composer: t.Composer,
				Code:     t.Code,
				Artist:   artist.Name,
				Split:    t.Split.String(),
			})
		}

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="catalog-`+strconv.Itoa(artistId)+`.csv"`)
		if err := royalty.WriteCatalogCSV(c.Writer, rows); err != nil {
			config.LogError(config.GetLogger(), "main", "exportCatalogHandler", "write csv", artistId, err)
		}
	}
}

// --- uploads & imports ---

func createUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		artistId, _ := strconv.Atoi(c.PostForm("artist_id"))

		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()

		upload, err := models.CreateUpload(c.Request.Context(), artistId, fileHeader.Filename, f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, upload)
	}
}

func deleteUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		upload, err := models.DeleteUpload(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upload)
	}
}

type importRequest struct {
	ArtistId int `json:"artist_id" binding:"required"`
	UploadId int `json:"upload_id" binding:"required"`
}

func importCatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req importRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.ImportCatalog(c.Request.Context(), req.ArtistId, req.UploadId)
		if err != nil {
			if result != nil && len(result.Fatals) > 0 {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "result": result})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func importRoyaltiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req importRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		result, err := models.ImportRoyalties(c.Request.Context(), req.ArtistId, req.UploadId)
		if err != nil {
			var rerr *royalty.Error
			if errors.As(err, &rerr) || (result != nil && len(result.Fatals) > 0) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "result": result})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func listImportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		imports, err := models.GetImports(c.Request.Context(), artistId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"imports": imports})
	}
}

func deleteLineItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		itemId, ok := pathId(c, "itemId")
		if !ok {
			return
		}
		item, err := models.DeleteLineItem(c.Request.Context(), artistId, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// deleteLineItemsHandler clears line items in bulk: one import run
// (?import_id=), one quarter (?year=&quarter=), or the artist's whole
// history when no filter is given.
func deleteLineItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		var deleted int64
		var err error
		switch {
		case c.Query("import_id") != "":
			importId, convErr := strconv.Atoi(c.Query("import_id"))
			if convErr != nil || importId <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "import_id must be a positive integer"})
				return
			}
			deleted, err = models.DeleteImportLineItems(ctx, artistId, importId)
		case c.Query("year") != "":
			year, _ := strconv.Atoi(c.Query("year"))
			quarter, _ := strconv.Atoi(c.Query("quarter"))
			if year != 0 && (quarter < 1 || quarter > 4) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "quarter must be 1..4"})
				return
			}
			deleted, err = models.DeleteQuarterLineItems(ctx, artistId, year, quarter)
		default:
			deleted, err = models.DeleteArtistLineItems(ctx, artistId)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}

// --- quarters, balance, export ---

func quarterBreakdownHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		breakdown, err := models.GetArtistQuarterBreakdown(c.Request.Context(), artistId)
		if err != nil {
			respondError(c, err)
			return
		}

		// Optional display truncation; totals stay exact either way.
		if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
			for i := range breakdown.Quarters {
				if len(breakdown.Quarters[i].Items) > limit {
					breakdown.Quarters[i].Items = breakdown.Quarters[i].Items[:limit]
				}
			}
		}
		c.JSON(http.StatusOK, breakdown)
	}
}

func exportQuarterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		year, _ := strconv.Atoi(c.Query("year"))
		quarter, _ := strconv.Atoi(c.Query("quarter"))
		if year != 0 && (quarter < 1 || quarter > 4) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quarter must be 1..4"})
			return
		}

		ctx := c.Request.Context()
		var items []royalty.LineItem
		var err error
		if year == 0 && quarter == 0 && c.Query("year") == "" {
			items, err = models.GetArtistLineItems(ctx, artistId)
		} else {
			items, err = models.GetArtistQuarterLineItems(ctx, artistId, year, quarter)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		rows, err := models.ExportRowsForItems(ctx, artistId, items)
		if err != nil {
			respondError(c, err)
			return
		}

		filename := royalty.ExportFilename(strconv.Itoa(artistId), year, quarter, time.Now().UTC())
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := royalty.WriteRoyaltyCSV(c.Writer, rows); err != nil {
			config.LogError(config.GetLogger(), "main", "exportQuarterHandler", "write csv", artistId, err)
		}
	}
}

func balanceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		balance, err := models.GetArtistBalance(c.Request.Context(), artistId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, balance)
	}
}

// --- payment requests & invoices ---

func createPaymentRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewPaymentRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return
		}
		request, err := models.CreatePaymentRequest(c.Request.Context(), artistId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, request)
	}
}

func listPaymentRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, _ := strconv.Atoi(c.Query("artist_id"))
		var status *models.PaymentRequestStatus
		if v := c.Query("status"); v != "" {
			s := models.PaymentRequestStatus(v)
			status = &s
		}
		requests, err := models.GetPaymentRequests(c.Request.Context(), artistId, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment_requests": requests})
	}
}

func approvePaymentRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		request, err := models.ApprovePaymentRequest(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func declinePaymentRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req declineRequest
		_ = c.ShouldBindJSON(&req)
		request, err := models.DeclinePaymentRequest(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}

func markPaidPaymentRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		request, err := models.MarkPaymentRequestPaid(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, request)
	}
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, _ := strconv.Atoi(c.Query("artist_id"))
		invoices, err := models.GetInvoices(c.Request.Context(), artistId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invoices": invoices})
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		invoice, err := fetchInvoice(c, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func fetchInvoice(c *gin.Context, id int) (*models.Invoice, error) {
	artistId, _ := strconv.Atoi(c.Query("artist_id"))
	return models.GetInvoice(c.Request.Context(), artistId, id)
}

// --- reports ---

func dateRangeQuery(c *gin.Context) (*time.Time, *time.Time, bool) {
	parse := func(name string) (*time.Time, bool) {
		v := c.Query(name)
		if v == "" {
			return nil, true
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be YYYY-MM-DD"})
			return nil, false
		}
		return &t, true
	}
	from, ok := parse("from")
	if !ok {
		return nil, nil, false
	}
	to, ok := parse("to")
	if !ok {
		return nil, nil, false
	}
	return from, to, true
}

func quarterlyReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, _ := strconv.Atoi(c.Query("artist_id"))
		from, to, ok := dateRangeQuery(c)
		if !ok {
			return
		}
		if c.Query("format") == "xlsx" {
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Header("Content-Disposition", `attachment; filename="quarterly-royalties.xlsx"`)
			if err := reports.WriteQuarterlyRoyaltyExcel(c.Request.Context(), c.Writer, artistId, from, to); err != nil {
				config.LogError(config.GetLogger(), "main", "quarterlyReportHandler", "write xlsx", artistId, err)
			}
			return
		}
		data, err := reports.GetQuarterlyRoyaltyReport(c.Request.Context(), artistId, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": data})
	}
}

func trackRevenueReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, _ := strconv.Atoi(c.Query("artist_id"))
		limit, _ := strconv.Atoi(c.Query("limit"))
		from, to, ok := dateRangeQuery(c)
		if !ok {
			return
		}
		if c.Query("format") == "xlsx" {
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Header("Content-Disposition", `attachment; filename="track-revenue.xlsx"`)
			if err := reports.WriteTrackRevenueExcel(c.Request.Context(), c.Writer, artistId, limit, from, to); err != nil {
				config.LogError(config.GetLogger(), "main", "trackRevenueReportHandler", "write xlsx", artistId, err)
			}
			return
		}
		data, err := reports.GetTrackRevenueReport(c.Request.Context(), artistId, limit, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": data})
	}
}

func territoryReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, _ := strconv.Atoi(c.Query("artist_id"))
		from, to, ok := dateRangeQuery(c)
		if !ok {
			return
		}
		data, err := reports.GetTerritoryRevenueReport(c.Request.Context(), artistId, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": data})
	}
}

func sourceReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		artistId, _ := strconv.Atoi(c.Query("artist_id"))
		from, to, ok := dateRangeQuery(c)
		if !ok {
			return
		}
		data, err := reports.GetSourceRevenueReport(c.Request.Context(), artistId, from, to)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": data})
	}
}

// --- ops ---

type outboxReplayRequest struct {
	ArtistId int `json:"artist_id"`
}

func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		_ = c.ShouldBindJSON(&req)

		count, err := models.ReplayDeadEvents(c.Request.Context(), req.ArtistId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"artist_id": req.ArtistId,
			"requeued":  count,
		})
	}
}

func outboxStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := models.OutboxStatusCounts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"outbox": counts})
	}
}
