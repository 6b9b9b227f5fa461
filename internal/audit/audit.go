package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
)

// Submission outcomes
const (
	OutcomeSuccess          = "success"
	OutcomeRateLimited      = "rate_limited"
	OutcomeInvalid          = "validation_failed"
	OutcomeBotRejected      = "bot_rejected"
	OutcomeNotConfigured    = "not_configured"
	OutcomeSubmissionFailed = "submission_failed"
	OutcomeError            = "error"
)

// Entry is one terminal pipeline outcome. No submitted content is kept;
// the email is stored as a hash only.
type Entry struct {
	ID            uint   `gorm:"primaryKey"`
	RequestID     string `gorm:"size:64;index"`
	Endpoint      string `gorm:"size:32;index"`
	Outcome       string `gorm:"size:32;index"`
	Status        int    `gorm:"not null"`
	EmailHash     string `gorm:"size:64;index"`
	CRMSynced     bool   `gorm:"not null;default:false"`
	HasAttachment bool   `gorm:"not null;default:false"`
	CMSRecordID   *int
	DurationMS    int64
	CreatedAt     time.Time `gorm:"index"`
}

// TableName overrides the gorm default
func (Entry) TableName() string {
	return "submission_audit"
}

// Recorder persists audit entries
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	Ping(ctx context.Context) error
	Close() error
}

// New opens the configured store, or returns a no-op recorder when auditing
// is disabled
func New(cfg *config.Config) (Recorder, error) {
	if !cfg.Audit.Enabled {
		return NoopRecorder{}, nil
	}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Audit.Driver) {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Audit.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.Audit.DSN)
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", cfg.Audit.Driver)
	}

	return Open(dialector)
}

// GormRecorder stores entries through gorm
type GormRecorder struct {
	db     *gorm.DB
	logger logging.Logger
}

// Open connects with the given dialector and migrates the audit table
func Open(dialector gorm.Dialector) (*GormRecorder, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit table: %w", err)
	}

	return &GormRecorder{
		db:     db,
		logger: logging.GetGlobalLogger().WithField("component", "audit"),
	}, nil
}

// Record implements Recorder
func (r *GormRecorder) Record(ctx context.Context, entry *Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// Ping implements Recorder
func (r *GormRecorder) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close implements Recorder
func (r *GormRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NoopRecorder discards entries
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, *Entry) error { return nil }
func (NoopRecorder) Ping(context.Context) error           { return nil }
func (NoopRecorder) Close() error                         { return nil }
