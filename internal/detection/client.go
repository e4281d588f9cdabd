package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"potholytics-service/internal/config"
	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/upload"
)

const (
	detectPath  = "/detect-potholes"
	stopPath    = "/stop-detection"
	historyPath = "/get-pothole-data"
)

// Client talks to the detection backend. Every call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg config.BackendConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Detect uploads file as multipart fields `file` and `model` and decodes the
// result envelope. An empty modelID leaves the choice to the backend.
func (c *Client) Detect(ctx context.Context, file upload.MediaFile, modelID string) (*pothole.DetectionResult, error) {
	if file.Empty() {
		return nil, fmt.Errorf("%w: file is required", pothole.ErrValidation)
	}

	body, contentType, err := buildDetectBody(file, modelID)
	if err != nil {
		return nil, fmt.Errorf("build detection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectPath, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", pothole.ErrDetectionFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, payload)
	}

	var result pothole.DetectionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		if errors.Is(err, pothole.ErrDetectionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: decode response: %v", pothole.ErrDetectionFailed, err)
	}

	c.log.Debug().
		Str("model", modelID).
		Str("file", file.Name).
		Int("frames", result.Len()).
		Dur("took", time.Since(started)).
		Msg("detection completed")

	return &result, nil
}

// StopDetection asks the backend to abandon its current job. The backend gives
// no acknowledgement beyond the status code, and the signal does not touch any
// request this client has in flight.
func (c *Client) StopDetection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stopPath, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: stop returned status %d", pothole.ErrDetectionFailed, resp.StatusCode)
	}
	return nil
}

// FetchHistory pulls the whole historical pothole feed.
func (c *Client) FetchHistory(ctx context.Context) ([]pothole.HistoricalPothole, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+historyPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pothole.ErrHistoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", pothole.ErrHistoryUnavailable, resp.StatusCode)
	}

	var records []pothole.HistoricalPothole
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", pothole.ErrHistoryUnavailable, err)
	}
	return records, nil
}

func buildDetectBody(file upload.MediaFile, modelID string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := file.Name
	if name == "" {
		name = "upload"
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("copy file data: %w", err)
	}

	if modelID != "" {
		if err := writer.WriteField("model", modelID); err != nil {
			return nil, "", fmt.Errorf("write model field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func networkError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: request cancelled", pothole.ErrDetectionFailed)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", pothole.ErrDetectionFailed)
	}
	return fmt.Errorf("%w: backend unreachable: %v", pothole.ErrDetectionFailed, err)
}

func statusError(status int, body []byte) error {
	var backendErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &backendErr); err == nil && backendErr.Error != "" {
		return fmt.Errorf("%w: backend returned %d: %s", pothole.ErrDetectionFailed, status, backendErr.Error)
	}
	return fmt.Errorf("%w: backend returned status %d", pothole.ErrDetectionFailed, status)
}
