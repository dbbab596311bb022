package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/royalties_backend/config"
	"bitbucket.org/mmdatafocus/royalties_backend/models"
	"bitbucket.org/mmdatafocus/royalties_backend/royalty"
	"bitbucket.org/mmdatafocus/royalties_backend/utils"
	"github.com/shopspring/decimal"
)

// Regression: withdrawal gating must hold server side. A request below the
// minimum, above the available balance, or next to an open request must be
// rejected with its own error code, and settling a request must move the
// reserved amount from pending to paid with an invoice in the same commit.
func TestPaymentRequestGating_EndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "royalties_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUsernameInContext(ctx, "test@local")
	ctx = utils.SetUserNameInContext(ctx, "Test")

	artist, err := models.CreateArtist(ctx, &models.NewArtist{Name: "Gating Test Artist"})
	if err != nil {
		t.Fatalf("CreateArtist: %v", err)
	}
	track, err := models.CreateTrack(ctx, artist.ID, &models.NewTrack{Title: "Moonrise"})
	if err != nil {
		t.Fatalf("CreateTrack: %v", err)
	}

	db := config.GetDB()
	feb := time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC)
	items := []models.RoyaltyLineItem{
		{ArtistId: artist.ID, TrackId: track.ID, Net: dec(t, "150.25"), Gross: dec(t, "200"), BroadcastDate: &feb},
		{ArtistId: artist.ID, TrackId: track.ID, Net: dec(t, "150.25"), Gross: dec(t, "200"), BroadcastDate: &feb},
		{ArtistId: artist.ID, TrackId: track.ID, Net: dec(t, "150.25"), Gross: dec(t, "200"), BroadcastDate: &feb},
		// dateless row: must count into the balance via the unassigned bucket
		{ArtistId: artist.ID, TrackId: track.ID, Net: dec(t, "100"), Gross: dec(t, "120")},
	}
	if err := db.WithContext(ctx).Create(&items).Error; err != nil {
		t.Fatalf("insert line items: %v", err)
	}

	breakdown, err := models.GetArtistQuarterBreakdown(ctx, artist.ID)
	if err != nil {
		t.Fatalf("GetArtistQuarterBreakdown: %v", err)
	}
	if len(breakdown.Quarters) != 1 || breakdown.Quarters[0].Year != 2024 || breakdown.Quarters[0].Quarter != 1 {
		t.Fatalf("unexpected quarters: %+v", breakdown.Quarters)
	}
	if !breakdown.Quarters[0].TotalNet.Equal(dec(t, "450.75")) {
		t.Fatalf("Q1 net = %s, want 450.75", breakdown.Quarters[0].TotalNet)
	}
	if breakdown.Unassigned == nil || !breakdown.Unassigned.TotalNet.Equal(dec(t, "100")) {
		t.Fatalf("unassigned bucket missing or wrong: %+v", breakdown.Unassigned)
	}

	balance, err := models.GetArtistBalance(ctx, artist.ID)
	if err != nil {
		t.Fatalf("GetArtistBalance: %v", err)
	}
	if !balance.Available.Equal(dec(t, "550.75")) {
		t.Fatalf("available = %s, want 550.75", balance.Available)
	}

	// below minimum
	_, err = models.CreatePaymentRequest(ctx, artist.ID, &models.NewPaymentRequest{Amount: "99.99"})
	assertCode(t, err, royalty.CodeBelowMinimum)

	// above available
	_, err = models.CreatePaymentRequest(ctx, artist.ID, &models.NewPaymentRequest{Amount: "550.76"})
	assertCode(t, err, royalty.CodeExceedsAvailable)

	// valid request
	request, err := models.CreatePaymentRequest(ctx, artist.ID, &models.NewPaymentRequest{Amount: "100"})
	if err != nil {
		t.Fatalf("CreatePaymentRequest: %v", err)
	}
	if request.Status != models.PaymentRequestStatusPending {
		t.Fatalf("status = %s, want PENDING", request.Status)
	}

	// open request blocks a second one
	_, err = models.CreatePaymentRequest(ctx, artist.ID, &models.NewPaymentRequest{Amount: "100"})
	assertCode(t, err, royalty.CodeRequestPending)

	// approval keeps the amount reserved
	if _, err := models.ApprovePaymentRequest(ctx, request.ID); err != nil {
		t.Fatalf("ApprovePaymentRequest: %v", err)
	}
	balance, err = models.GetArtistBalance(ctx, artist.ID)
	if err != nil {
		t.Fatalf("GetArtistBalance after approve: %v", err)
	}
	if !balance.Pending.Equal(dec(t, "100")) || !balance.Available.Equal(dec(t, "450.75")) {
		t.Fatalf("after approve: pending=%s available=%s", balance.Pending, balance.Available)
	}

	// settle: invoice and status flip commit together
	paid, err := models.MarkPaymentRequestPaid(ctx, request.ID)
	if err != nil {
		t.Fatalf("MarkPaymentRequestPaid: %v", err)
	}
	if paid.InvoiceId == nil {
		t.Fatalf("paid request has no invoice id")
	}
	invoice, err := models.GetInvoice(ctx, artist.ID, *paid.InvoiceId)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if !invoice.Amount.Equal(dec(t, "100")) || invoice.InvoiceNumber == "" {
		t.Fatalf("invoice = %+v", invoice)
	}

	balance, err = models.GetArtistBalance(ctx, artist.ID)
	if err != nil {
		t.Fatalf("GetArtistBalance after paid: %v", err)
	}
	if !balance.Paid.Equal(dec(t, "100")) || !balance.Pending.IsZero() || !balance.Available.Equal(dec(t, "450.75")) {
		t.Fatalf("after paid: paid=%s pending=%s available=%s", balance.Paid, balance.Pending, balance.Available)
	}

	// every domain change above wrote an outbox row in its transaction
	counts, err := models.OutboxStatusCounts(ctx)
	if err != nil {
		t.Fatalf("OutboxStatusCounts: %v", err)
	}
	if counts[models.OutboxPublishStatusPending] == 0 {
		t.Fatalf("expected pending outbox rows, got %v", counts)
	}
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var rerr *royalty.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected royalty error %s, got %v", code, err)
	}
	if rerr.Code != code {
		t.Fatalf("code = %s, want %s", rerr.Code, code)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("royalties-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("royalties-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=royalties_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
