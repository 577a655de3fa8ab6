package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/imagegate/internal/logging"
)

// HTTPStore uploads image bytes to a Cloudinary-style HTTP endpoint that
// answers with a JSON body containing the public URL.
type HTTPStore struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// NewHTTPStore builds an object-store client for the given endpoint.
func NewHTTPStore(endpoint, apiKey string, logger *zap.Logger) *HTTPStore {
	return &HTTPStore{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger.Named("object_store"),
	}
}

// Upload streams the original bytes as a multipart form and returns the
// public URL from the response.
func (s *HTTPStore) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", logging.NewOperationError("storage.create_form", "", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", logging.NewOperationError("storage.write_form", "", err)
	}
	if err := writer.Close(); err != nil {
		return "", logging.NewOperationError("storage.close_form", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return "", logging.NewOperationError("storage.build_request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		wrapped := logging.NewOperationError("storage.upload", "", err)
		s.logger.Error("object store upload failed", zap.Error(wrapped), zap.String("filename", filename))
		return "", wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("object store returned status %d", resp.StatusCode)
		wrapped := logging.NewOperationError("storage.upload", "", err)
		s.logger.Error("object store upload failed", zap.Error(wrapped), zap.String("filename", filename))
		return "", wrapped
	}

	var decoded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", logging.NewOperationError("storage.decode_response", "", err)
	}
	if decoded.SecureURL == "" {
		return "", logging.NewOperationError("storage.decode_response", "",
			fmt.Errorf("object store response missing secure_url"))
	}

	s.logger.Debug("upload stored", zap.String("filename", filename), zap.String("url", decoded.SecureURL))
	return decoded.SecureURL, nil
}
