package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/imagegate/internal/logging"
	"github.com/example/imagegate/internal/repository"
	"github.com/example/imagegate/internal/storage"
	"github.com/example/imagegate/internal/validator"
)

// ValidationRepository defines the persistence operations the upload flow
// needs.
type ValidationRepository interface {
	SaveLog(ctx context.Context, log *repository.ValidationLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.ValidationLog, error)
	FindDuplicatesByHash(ctx context.Context, hash, excludeRequestID string) ([]*repository.ValidationLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// ImageValidator is the decision component gating every upload.
type ImageValidator interface {
	Validate(ctx context.Context, data []byte, category validator.Category) validator.Outcome
}

// UploadResult is what the gateway returns for one upload attempt.
type UploadResult struct {
	RequestID string
	Accepted  bool
	Reason    string
	URL       string
	// Cached marks outcomes served from the idempotency cache without
	// re-running validation.
	Cached bool
}

// DuplicateReport lists prior submissions of the same image bytes.
type DuplicateReport struct {
	Request    *repository.ValidationLog
	Duplicates []*repository.ValidationLog
}

// cachedOutcome is the JSON shape stored under the idempotency key.
type cachedOutcome struct {
	RequestID string    `json:"request_id"`
	Category  string    `json:"category"`
	Accepted  bool      `json:"accepted"`
	Reason    string    `json:"reason,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadUseCase orchestrates one upload: idempotency cache lookup, the
// validation decision, audit logging, outcome caching, and the object-store
// upload of the original bytes on acceptance.
type UploadUseCase struct {
	repo           ValidationRepository
	cache          Cache
	validator      ImageValidator
	store          storage.ObjectStore
	logger         *zap.Logger
	validateBudget time.Duration
	outcomeTTL     time.Duration
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option adjusts use case construction.
type Option func(*UploadUseCase)

// WithValidateBudget overrides the end-to-end budget one validation call runs
// under.
func WithValidateBudget(d time.Duration) Option {
	return func(uc *UploadUseCase) { uc.validateBudget = d }
}

// NewUploadUseCase constructs the upload orchestrator.
func NewUploadUseCase(repo ValidationRepository, cache Cache, v ImageValidator, store storage.ObjectStore, logger *zap.Logger, opts ...Option) *UploadUseCase {
	uc := &UploadUseCase{
		repo:           repo,
		cache:          cache,
		validator:      v,
		store:          store,
		logger:         logger.Named("upload_usecase"),
		validateBudget: 8 * time.Second,
		outcomeTTL:     time.Hour,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Upload validates the image against the declared category and, on
// acceptance, forwards the original bytes to object storage. Identical
// bytes+category pairs are served from the idempotency cache: validation is
// deterministic, so the first outcome stands.
func (uc *UploadUseCase) Upload(ctx context.Context, filename, categoryTag string, imageBytes []byte) (*UploadResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.upload", requestID)

	category := validator.ParseCategory(categoryTag)
	hash := sha1.Sum(imageBytes)
	hashHex := hex.EncodeToString(hash[:])
	cacheKey := outcomeKey(hashHex, category)

	if cached, err := uc.cacheGet(ctx, requestID, cacheKey); err == nil {
		var outcome cachedOutcome
		if err := json.Unmarshal([]byte(cached), &outcome); err != nil {
			opLogger.Warn("failed to decode cached outcome", zap.Error(err))
		} else {
			opLogger.Info("outcome served from cache",
				zap.String("category", string(category)),
				zap.Bool("accepted", outcome.Accepted))
			return &UploadResult{
				RequestID: outcome.RequestID,
				Accepted:  outcome.Accepted,
				Reason:    outcome.Reason,
				URL:       outcome.URL,
				Cached:    true,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		opLogger.Warn("failed to read outcome cache", zap.Error(err))
	}

	validateCtx, cancel := context.WithTimeout(ctx, uc.validateBudget)
	start := time.Now()
	outcome := uc.validator.Validate(validateCtx, imageBytes, category)
	cancel()
	latency := time.Since(start)

	result := &UploadResult{
		RequestID: requestID,
		Accepted:  outcome.Accepted,
		Reason:    outcome.Reason,
	}

	if outcome.Accepted {
		objectName := fmt.Sprintf("%s_%s", uuid.New().String()[:8], filename)
		url, err := uc.store.Upload(ctx, objectName, imageBytes)
		if err != nil {
			wrapped := logging.NewOperationError("usecase.store_upload", requestID, err)
			opLogger.Error("object store upload failed", zap.Error(wrapped))
			return nil, wrapped
		}
		result.URL = url
	}

	log := &repository.ValidationLog{
		RequestID: requestID,
		Category:  string(category),
		Accepted:  outcome.Accepted,
		Reason:    outcome.Reason,
		Stage:     outcome.Stage,
		SHA1Hash:  hashHex,
		ImageURL:  result.URL,
		LatencyMs: latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist validation log", zap.Error(wrapped))
		return nil, wrapped
	}

	serialized, err := json.Marshal(cachedOutcome{
		RequestID: requestID,
		Category:  string(category),
		Accepted:  outcome.Accepted,
		Reason:    outcome.Reason,
		URL:       result.URL,
		CreatedAt: log.CreatedAt,
	})
	if err != nil {
		opLogger.Error("failed to serialize outcome", zap.Error(err))
		return nil, err
	}
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.outcome", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), uc.outcomeTTL)
	}); err != nil {
		opLogger.Error("failed to cache outcome", zap.Error(err))
		return nil, err
	}

	opLogger.Info("upload processed",
		zap.String("category", string(category)),
		zap.Bool("accepted", outcome.Accepted),
		zap.String("stage", outcome.Stage),
		zap.Duration("latency", latency))

	return result, nil
}

// GetResult loads a past validation decision by request identifier.
func (uc *UploadUseCase) GetResult(ctx context.Context, requestID string) (*repository.ValidationLog, error) {
	return uc.repo.FindByRequestID(ctx, requestID)
}

// GetDuplicateReport lists other submissions of the same image bytes.
func (uc *UploadUseCase) GetDuplicateReport(ctx context.Context, requestID string) (*DuplicateReport, error) {
	log, err := uc.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	duplicates, err := uc.repo.FindDuplicatesByHash(ctx, log.SHA1Hash, log.RequestID)
	if err != nil {
		return nil, err
	}

	return &DuplicateReport{Request: log, Duplicates: duplicates}, nil
}

func outcomeKey(hashHex string, category validator.Category) string {
	return fmt.Sprintf("validation:%s:%s", hashHex, category)
}

func (uc *UploadUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		// A cache miss is a normal outcome, not a failure worth logging.
		if errors.Is(err, redis.Nil) {
			return logging.NewOperationError(operation, requestID, err)
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *UploadUseCase) cacheGet(ctx context.Context, requestID, key string) (string, error) {
	var value string
	err := uc.withRedisRetry(ctx, requestID, "cache.get.outcome", func() error {
		v, err := uc.cache.Get(ctx, key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
