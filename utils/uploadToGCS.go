package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
	// If you need to provide explicit JSON (e.g. locally), set GCS_CREDENTIALS_JSON.
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GetGCSClient exposes the shared Google Cloud Storage client.
func GetGCSClient(ctx context.Context) (*storage.Client, error) {
	return getGoogleClient(ctx)
}

// UploadSpreadsheetToGCS stores an uploaded catalog/royalty spreadsheet.
// Only CSV and XLSX content is accepted.
func UploadSpreadsheetToGCS(ctx context.Context, objectName string, fileContent io.Reader) error {
	fileData, err := io.ReadAll(fileContent)
	if err != nil {
		return fmt.Errorf("failed to read file content: %v", err)
	}

	mimeType := http.DetectContentType(fileData)

	// DetectContentType reports xlsx as a zip and csv as plain text.
	if mimeType == "application/zip" && strings.HasSuffix(objectName, ".xlsx") {
		mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if strings.HasPrefix(mimeType, "text/plain") && strings.HasSuffix(objectName, ".csv") {
		mimeType = "text/csv"
	}

	allowedMimeTypes := map[string]bool{
		"text/csv":                 true,
		"application/vnd.ms-excel": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	}

	if !allowedMimeTypes[mimeType] {
		return fmt.Errorf("unsupported file type: %s", mimeType)
	}

	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		return errors.New("GCS_BUCKET is required")
	}

	if _, err := client.Bucket(bucketName).Attrs(ctx); err != nil {
		return fmt.Errorf("gcs bucket %q not found or not accessible: %v", bucketName, err)
	}

	wc := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = mimeType

	if _, err := wc.Write(fileData); err != nil {
		return fmt.Errorf("failed to upload file to Google Cloud Storage: %v", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %v", err)
	}

	return nil
}

// OpenObjectFromGCS returns a reader over a previously uploaded object.
// The caller owns the returned ReadCloser.
func OpenObjectFromGCS(ctx context.Context, objectName string) (io.ReadCloser, error) {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return nil, err
	}

	bucketName := os.Getenv("GCS_BUCKET")
	if bucketName == "" {
		client.Close()
		return nil, errors.New("GCS_BUCKET is required")
	}

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		client.Close()
		if err == storage.ErrObjectNotExist {
			return nil, fmt.Errorf("uploaded file %q not found", objectName)
		}
		return nil, err
	}
	return &gcsObjectReader{ReadCloser: r, client: client}, nil
}

// gcsObjectReader closes the client together with the object reader.
type gcsObjectReader struct {
	io.ReadCloser
	client *storage.Client
}

func (g *gcsObjectReader) Close() error {
	err := g.ReadCloser.Close()
	_ = g.client.Close()
	return err
}

// DeleteObjectFromGCS removes an uploaded spreadsheet (best-effort cleanup).
func DeleteObjectFromGCS(ctx context.Context, objectName string) error {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	bucketName := os.Getenv("GCS_BUCKET")

	err = client.Bucket(bucketName).Object(objectName).Delete(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return err
	}
	return nil
}
