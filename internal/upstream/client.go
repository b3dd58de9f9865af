package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/example/ab-compare/internal/classifier"
	"github.com/example/ab-compare/internal/logging"
)

const (
	// FormField is the multipart field the backends read the image from.
	FormField = "image"
	fileName  = "image.png"
	mimeType  = "image/png"
)

// HTTPClient posts images to classification backends over HTTP.
type HTTPClient struct {
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewHTTPClient returns a classifier.Client issuing one POST per call. A zero
// timeout leaves requests unbounded.
func NewHTTPClient(timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("upstream"),
		now:    time.Now,
	}
}

type predictResponse struct {
	Predictions []classifier.Prediction `json:"predictions"`
}

// Classify sends image to backendURL and normalizes the reply.
func (c *HTTPClient) Classify(ctx context.Context, backendURL string, image []byte, label string) classifier.ModelResult {
	start := c.now()
	opLogger := logging.WithBackend(c.logger, label, backendURL)

	predictions, err := c.post(ctx, backendURL, image)
	elapsed := classifier.Round(c.now().Sub(start).Seconds(), 3)
	if elapsed < 0 {
		elapsed = 0
	}

	if err != nil {
		opLogger.Warn("classification failed", zap.Error(logging.NewBackendError("upstream.classify", "", label, err)), zap.Float64("response_time", elapsed))
		return classifier.ModelResult{
			Success:      false,
			Model:        label,
			Predictions:  []classifier.Prediction{},
			ResponseTime: elapsed,
			Error:        err.Error(),
		}
	}

	opLogger.Debug("classification succeeded", zap.Int("predictions", len(predictions)), zap.Float64("response_time", elapsed))
	return classifier.ModelResult{
		Success:      true,
		Model:        label,
		Predictions:  predictions,
		ResponseTime: elapsed,
	}
}

func (c *HTTPClient) post(ctx context.Context, backendURL string, image []byte) ([]classifier.Prediction, error) {
	body, contentType, err := encodeImage(image)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, backendURL, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded predictResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	if decoded.Predictions == nil {
		decoded.Predictions = []classifier.Prediction{}
	}
	return decoded.Predictions, nil
}

func encodeImage(image []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FormField, fileName))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
