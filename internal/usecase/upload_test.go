package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/imagegate/internal/logging"
	"github.com/example/imagegate/internal/repository"
	"github.com/example/imagegate/internal/validator"
)

type stubRepository struct {
	savedLogs  []*repository.ValidationLog
	saveErr    error
	findLog    *repository.ValidationLog
	findErr    error
	duplicates []*repository.ValidationLog
	aggregate  *repository.MetricsAggregation
}

func (s *stubRepository) SaveLog(ctx context.Context, log *repository.ValidationLog) error {
	s.savedLogs = append(s.savedLogs, log)
	return s.saveErr
}

func (s *stubRepository) FindByRequestID(ctx context.Context, requestID string) (*repository.ValidationLog, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findLog != nil {
		return s.findLog, nil
	}
	return nil, errors.New("not found")
}

func (s *stubRepository) FindDuplicatesByHash(ctx context.Context, hash, excludeRequestID string) ([]*repository.ValidationLog, error) {
	return s.duplicates, nil
}

func (s *stubRepository) AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error) {
	if s.aggregate != nil {
		return s.aggregate, nil
	}
	return &repository.MetricsAggregation{}, nil
}

type stubCache struct {
	setErrs   []error
	getErrs   []error
	getValues []string
	setKeys   []string
	getKeys   []string
	setValues []string
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	if str, ok := value.(string); ok {
		s.setValues = append(s.setValues, str)
	}
	if len(s.setErrs) == 0 {
		return nil
	}
	err := s.setErrs[0]
	s.setErrs = s.setErrs[1:]
	return err
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	var value string
	if len(s.getValues) > 0 {
		value = s.getValues[0]
		s.getValues = s.getValues[1:]
	}
	err := error(redis.Nil)
	if len(s.getErrs) > 0 {
		err = s.getErrs[0]
		s.getErrs = s.getErrs[1:]
	} else if value != "" {
		err = nil
	}
	return value, err
}

type stubValidator struct {
	outcome     validator.Outcome
	calls       int
	hasDeadline bool
	remaining   time.Duration
}

func (s *stubValidator) Validate(ctx context.Context, data []byte, category validator.Category) validator.Outcome {
	s.calls++
	if deadline, ok := ctx.Deadline(); ok {
		s.hasDeadline = true
		s.remaining = time.Until(deadline)
	}
	return s.outcome
}

type stubStore struct {
	url      string
	err      error
	calls    int
	lastData []byte
	lastName string
}

func (s *stubStore) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	s.calls++
	s.lastName = filename
	s.lastData = data
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type transientRedisError struct{}

func (transientRedisError) Error() string   { return "redis transient" }
func (transientRedisError) Timeout() bool   { return true }
func (transientRedisError) Temporary() bool { return true }

func newTestUseCase(repo *stubRepository, cache *stubCache, v *stubValidator, store *stubStore) *UploadUseCase {
	uc := NewUploadUseCase(repo, cache, v, store, zap.NewNop())
	uc.initialBackoff = time.Millisecond
	uc.maxBackoff = 2 * time.Millisecond
	return uc
}

func TestUploadAcceptedStoresOriginalBytes(t *testing.T) {
	imageBytes := []byte("png bytes")
	repo := &stubRepository{}
	cache := &stubCache{}
	v := &stubValidator{outcome: validator.Outcome{Accepted: true}}
	store := &stubStore{url: "https://cdn.example.com/x.png"}

	result, err := newTestUseCase(repo, cache, v, store).Upload(context.Background(), "car.png", "vehicle", imageBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Accepted {
		t.Fatal("expected acceptance")
	}
	if result.URL != "https://cdn.example.com/x.png" {
		t.Fatalf("unexpected url: %s", result.URL)
	}
	if store.calls != 1 {
		t.Fatalf("expected one store upload, got %d", store.calls)
	}
	if !bytes.Equal(store.lastData, imageBytes) {
		t.Fatal("store must receive the original bytes")
	}
	if !strings.HasSuffix(store.lastName, "_car.png") {
		t.Fatalf("object name must keep the original filename, got %s", store.lastName)
	}
	if len(repo.savedLogs) != 1 {
		t.Fatalf("expected one persisted log, got %d", len(repo.savedLogs))
	}
	if !repo.savedLogs[0].Accepted || repo.savedLogs[0].Category != "vehicle" {
		t.Fatalf("unexpected log: %+v", repo.savedLogs[0])
	}
	if repo.savedLogs[0].ImageURL != result.URL {
		t.Fatalf("log url %q does not match result url %q", repo.savedLogs[0].ImageURL, result.URL)
	}
}

func TestUploadRejectedSkipsStore(t *testing.T) {
	repo := &stubRepository{}
	cache := &stubCache{}
	v := &stubValidator{outcome: validator.Outcome{
		Accepted: false,
		Reason:   "Image doesn't appear to be a vehicle. Please provide a clear photo of the vehicle.",
		Stage:    validator.StageColorHeuristic,
	}}
	store := &stubStore{url: "https://cdn.example.com/x.png"}

	result, err := newTestUseCase(repo, cache, v, store).Upload(context.Background(), "car.png", "vehicle", []byte("bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Accepted {
		t.Fatal("expected rejection")
	}
	if result.Reason == "" {
		t.Fatal("expected rejection reason")
	}
	if store.calls != 0 {
		t.Fatalf("store must not be called for rejected images, got %d calls", store.calls)
	}
	if len(repo.savedLogs) != 1 {
		t.Fatalf("rejections must still be logged, got %d", len(repo.savedLogs))
	}
}

func TestUploadServedFromIdempotencyCache(t *testing.T) {
	cached := `{"request_id":"req-1","category":"vehicle","accepted":false,"reason":"nope"}`
	repo := &stubRepository{}
	cache := &stubCache{getValues: []string{cached}}
	v := &stubValidator{outcome: validator.Outcome{Accepted: true}}
	store := &stubStore{}

	result, err := newTestUseCase(repo, cache, v, store).Upload(context.Background(), "car.png", "vehicle", []byte("same bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Cached {
		t.Fatal("expected result to be marked as cached")
	}
	if result.Accepted || result.Reason != "nope" || result.RequestID != "req-1" {
		t.Fatalf("unexpected cached result: %+v", result)
	}
	if v.calls != 0 {
		t.Fatalf("validator must not run on cache hit, got %d calls", v.calls)
	}
	if store.calls != 0 || len(repo.savedLogs) != 0 {
		t.Fatal("cache hits must not touch store or repository")
	}
}

func TestUploadStoreFailureReturnsOperationError(t *testing.T) {
	repo := &stubRepository{}
	cache := &stubCache{}
	v := &stubValidator{outcome: validator.Outcome{Accepted: true}}
	store := &stubStore{err: errors.New("storage down")}

	_, err := newTestUseCase(repo, cache, v, store).Upload(context.Background(), "car.png", "vehicle", []byte("bytes"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "usecase.store_upload" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
}

func TestUploadRetriesTransientCacheSet(t *testing.T) {
	repo := &stubRepository{}
	cache := &stubCache{setErrs: []error{transientRedisError{}}}
	v := &stubValidator{outcome: validator.Outcome{Accepted: false, Reason: "no", Stage: "aspect_ratio"}}
	store := &stubStore{}

	result, err := newTestUseCase(repo, cache, v, store).Upload(context.Background(), "car.png", "vehicle", []byte("bytes"))
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if result.Accepted {
		t.Fatal("expected rejection result")
	}
	if len(cache.setKeys) != 2 {
		t.Fatalf("expected 2 cache set attempts, got %d", len(cache.setKeys))
	}
	if cache.setKeys[0] != cache.setKeys[1] {
		t.Fatalf("retry must target the same key, got %s then %s", cache.setKeys[0], cache.setKeys[1])
	}
}

func TestUploadAppliesConfiguredValidateBudget(t *testing.T) {
	repo := &stubRepository{}
	cache := &stubCache{}
	v := &stubValidator{outcome: validator.Outcome{Accepted: false, Reason: "no", Stage: "aspect_ratio"}}
	store := &stubStore{}
	uc := NewUploadUseCase(repo, cache, v, store, zap.NewNop(), WithValidateBudget(250*time.Millisecond))

	if _, err := uc.Upload(context.Background(), "car.png", "vehicle", []byte("bytes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.hasDeadline {
		t.Fatal("validator must run under a deadline")
	}
	if v.remaining <= 0 || v.remaining > 250*time.Millisecond {
		t.Fatalf("deadline does not reflect the configured budget, %v remaining", v.remaining)
	}
}

func TestUploadSameBytesDifferentCategoryUsesDistinctKeys(t *testing.T) {
	repo := &stubRepository{}
	cache := &stubCache{}
	v := &stubValidator{outcome: validator.Outcome{Accepted: false, Reason: "no", Stage: "aspect_ratio"}}
	store := &stubStore{}
	uc := newTestUseCase(repo, cache, v, store)

	imageBytes := []byte("same bytes")
	if _, err := uc.Upload(context.Background(), "a.png", "vehicle", imageBytes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uc.Upload(context.Background(), "a.png", "portrait", imageBytes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cache.setKeys) != 2 {
		t.Fatalf("expected 2 cache writes, got %d", len(cache.setKeys))
	}
	if cache.setKeys[0] == cache.setKeys[1] {
		t.Fatal("different categories must not share an idempotency key")
	}
}

func TestGetDuplicateReport(t *testing.T) {
	request := &repository.ValidationLog{RequestID: "req-1", SHA1Hash: "abc"}
	dup := &repository.ValidationLog{RequestID: "req-0", SHA1Hash: "abc"}
	repo := &stubRepository{findLog: request, duplicates: []*repository.ValidationLog{dup}}
	uc := newTestUseCase(repo, &stubCache{}, &stubValidator{}, &stubStore{})

	report, err := uc.GetDuplicateReport(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Request != request {
		t.Fatalf("unexpected request log: %+v", report.Request)
	}
	if len(report.Duplicates) != 1 || report.Duplicates[0] != dup {
		t.Fatalf("unexpected duplicates: %+v", report.Duplicates)
	}
}

func TestGetMetricsSummaryComputesRate(t *testing.T) {
	repo := &stubRepository{aggregate: &repository.MetricsAggregation{
		TotalCount:       8,
		AcceptedCount:    6,
		AverageLatencyMs: 120.5,
	}}
	uc := newTestUseCase(repo, &stubCache{}, &stubValidator{}, &stubStore{})

	summary, err := uc.GetMetricsSummary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalUploads != 8 || summary.AcceptedUploads != 6 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.AcceptanceRate != 0.75 {
		t.Fatalf("unexpected acceptance rate: %v", summary.AcceptanceRate)
	}
	if summary.AverageLatencyMs != 120.5 {
		t.Fatalf("unexpected latency: %v", summary.AverageLatencyMs)
	}
}
