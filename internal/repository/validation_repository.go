package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/imagegate/internal/logging"
)

// ValidationLog is the persisted record of one validation decision.
type ValidationLog struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID string    `gorm:"column:request_id;uniqueIndex;size:64"`
	Category  string    `gorm:"column:category;size:32;index"`
	Accepted  bool      `gorm:"column:accepted"`
	Reason    string    `gorm:"column:reason;type:text"`
	Stage     string    `gorm:"column:stage;size:32"`
	SHA1Hash  string    `gorm:"column:sha1_hash;size:40;index"`
	ImageURL  string    `gorm:"column:image_url;type:text"`
	LatencyMs int64     `gorm:"column:latency_ms"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (ValidationLog) TableName() string {
	return "validation_logs"
}

// MetricsAggregation is the raw aggregate used for the metrics summary.
type MetricsAggregation struct {
	TotalCount       int64
	AcceptedCount    int64
	AverageLatencyMs float64
}

// ValidationRepository provides persistence for validation logs, retrying
// transient database errors with exponential backoff.
type ValidationRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewValidationRepository creates a repository instance.
func NewValidationRepository(db *gorm.DB, logger *zap.Logger) *ValidationRepository {
	return &ValidationRepository{
		db:             db,
		logger:         logger.Named("validation_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *ValidationRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ValidationLog{})
}

// SaveLog persists one validation decision.
func (r *ValidationRepository) SaveLog(ctx context.Context, log *ValidationLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByRequestID retrieves a validation log by request identifier.
func (r *ValidationRepository) FindByRequestID(ctx context.Context, requestID string) (*ValidationLog, error) {
	var log ValidationLog
	err := r.executeWithRetry(ctx, "repository.find_by_request_id", requestID, func() error {
		return r.db.WithContext(ctx).First(&log, "request_id = ?", requestID).Error
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// FindDuplicatesByHash returns other validation logs carrying the same image
// hash, surfacing re-submissions of the same bytes.
func (r *ValidationRepository) FindDuplicatesByHash(ctx context.Context, hash, excludeRequestID string) ([]*ValidationLog, error) {
	var logs []*ValidationLog
	err := r.executeWithRetry(ctx, "repository.find_duplicates", excludeRequestID, func() error {
		return r.db.WithContext(ctx).
			Where("sha1_hash = ? AND request_id <> ?", hash, excludeRequestID).
			Order("created_at ASC").
			Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// AggregateMetrics computes validation totals for the metrics summary.
func (r *ValidationRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&ValidationLog{}).
			Select(
				"COUNT(*) AS total_count, " +
					"COALESCE(SUM(CASE WHEN accepted THEN 1 ELSE 0 END), 0) AS accepted_count, " +
					"COALESCE(AVG(latency_ms), 0) AS average_latency_ms",
			).
			Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// executeWithRetry retries transient failures (timeouts, temporary network
// errors) with capped exponential backoff and wraps the terminal error with
// operation context.
func (r *ValidationRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
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
