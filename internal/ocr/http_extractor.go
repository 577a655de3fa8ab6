package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/imagegate/internal/logging"
)

// Request and response shapes follow the OCR.request.v1 / OCR.response.v1
// JSON contract of the remote OCR collaborator.
type ocrRequest struct {
	Image  string `json:"image"`
	Locale string `json:"locale,omitempty"`
}

type ocrResponse struct {
	RawAnswerText string  `json:"raw_answer_text"`
	Confidence    float64 `json:"confidence,omitempty"`
}

// HTTPExtractor calls a remote OCR service over JSON/HTTP.
type HTTPExtractor struct {
	endpoint string
	locale   string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPExtractor builds a client for the OCR collaborator at endpoint.
func NewHTTPExtractor(endpoint, locale string, logger *zap.Logger) *HTTPExtractor {
	return &HTTPExtractor{
		endpoint: endpoint,
		locale:   locale,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.Named("ocr_client"),
	}
}

// ExtractTokens sends the image as base64-encoded JPEG and splits the raw
// answer text into whitespace-separated tokens.
func (e *HTTPExtractor) ExtractTokens(ctx context.Context, img image.Image) ([]string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, logging.NewOperationError("ocr.encode_image", "", err)
	}

	payload, err := json.Marshal(ocrRequest{
		Image:  base64.StdEncoding.EncodeToString(buf.Bytes()),
		Locale: e.locale,
	})
	if err != nil {
		return nil, logging.NewOperationError("ocr.marshal_request", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, logging.NewOperationError("ocr.build_request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("ocr.extract_tokens", "", err)
		e.logger.Error("ocr call failed", zap.Error(wrapped))
		return nil, wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("ocr service returned status %d", resp.StatusCode)
		wrapped := logging.NewOperationError("ocr.extract_tokens", "", err)
		e.logger.Error("ocr call failed", zap.Error(wrapped))
		return nil, wrapped
	}

	var decoded ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, logging.NewOperationError("ocr.decode_response", "", err)
	}

	e.logger.Debug("ocr response received",
		zap.Float64("confidence", decoded.Confidence),
		zap.Int("length", len(decoded.RawAnswerText)))

	return strings.Fields(decoded.RawAnswerText), nil
}
