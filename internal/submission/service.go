package submission

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"runtime/debug"
	"time"

	"careers-gateway/internal/api/validation"
	"careers-gateway/internal/audit"
	"careers-gateway/internal/cms"
	"careers-gateway/internal/config"
	"careers-gateway/internal/crm"
	"careers-gateway/internal/logging"
	"careers-gateway/internal/metrics"
	"careers-gateway/internal/ratelimit"
	"careers-gateway/internal/turnstile"
	"careers-gateway/pkg/models"
	"careers-gateway/pkg/utils"
)

// Endpoint names used for rate limit keys, metrics and audit entries
const (
	EndpointApply   = "apply"
	EndpointInquiry = "inquiry"
)

// CMS is the part of the CMS client the pipelines need
type CMS interface {
	UploadFile(ctx context.Context, att *models.Attachment) (int, error)
	CreateApplication(ctx context.Context, record *cms.ApplicationRecord) (*cms.Record, error)
	CreateInquiry(ctx context.Context, collection string, record *cms.InquiryRecord) (*cms.Record, error)
	FindJobBySlug(ctx context.Context, slug, locale string) (*models.Job, error)
}

// ContactSyncer pushes a contact to the CRM, best effort
type ContactSyncer interface {
	UpsertContact(ctx context.Context, contact crm.Contact) bool
}

// Request carries the transport details of one submission
type Request struct {
	RequestID string
	ClientIP  string
}

// ApplicationInput is a raw application as received from the form
type ApplicationInput struct {
	Request
	Fields map[string]string
	CV     *multipart.FileHeader
	// Decode, when set, reads Fields and CV from the request body once the
	// rate limit check has passed
	Decode func() (map[string]string, *multipart.FileHeader, error)
}

// InquiryInput is a raw inquiry as received from the client
type InquiryInput struct {
	Request
	Fields map[string]string
	// Decode, when set, reads Fields from the request body once the rate
	// limit check has passed
	Decode func() (map[string]string, error)
}

// Service runs the submission pipelines:
// rate limit, validate, verify, CRM sync and upload, CMS create.
type Service struct {
	cfg       *config.Config
	limiter   ratelimit.Limiter
	validator *validation.Validator
	verifier  turnstile.Verifier
	crm       ContactSyncer
	cms       CMS
	audit     audit.Recorder
	metrics   *metrics.Collector
	logger    logging.Logger
}

// Deps groups the collaborators of a Service
type Deps struct {
	Limiter   ratelimit.Limiter
	Validator *validation.Validator
	Verifier  turnstile.Verifier
	CRM       ContactSyncer
	CMS       CMS
	Audit     audit.Recorder
	Metrics   *metrics.Collector
	Logger    logging.Logger
}

// NewService creates a Service
func NewService(cfg *config.Config, deps Deps) *Service {
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoopRecorder{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetGlobalLogger()
	}

	return &Service{
		cfg:       cfg,
		limiter:   deps.Limiter,
		validator: deps.Validator,
		verifier:  deps.Verifier,
		crm:       deps.CRM,
		cms:       deps.CMS,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		logger:    deps.Logger.WithField("component", "submission"),
	}
}

// run tracks one pipeline execution for logging, metrics and audit
type run struct {
	endpoint      string
	req           Request
	start         time.Time
	logger        logging.Logger
	emailHash     string
	crmSynced     bool
	hasAttachment bool
	cmsRecordID   *int
}

func (s *Service) newRun(endpoint string, req Request) *run {
	return &run{
		endpoint: endpoint,
		req:      req,
		start:    time.Now(),
		logger: s.logger.WithFields(map[string]interface{}{
			"request_id": req.RequestID,
			"endpoint":   endpoint,
			"client_ip":  req.ClientIP,
		}),
	}
}

// timed runs fn and records its duration under stage
func (s *Service) timed(r *run, stage string, fn func()) {
	start := time.Now()
	fn()
	s.metrics.Stage(r.endpoint, stage, time.Since(start))
}

// checkRateLimit enforces the per-IP budget. A broken limiter store does not
// block submissions.
func (s *Service) checkRateLimit(ctx context.Context, r *run, limit int) error {
	var err error
	s.timed(r, metrics.StageRateLimit, func() {
		err = s.limiter.Check(ctx, limit, ratelimit.Key(r.endpoint, r.req.ClientIP))
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		s.metrics.RateLimited(r.endpoint)
		r.logger.Warn("Rate limit exceeded", map[string]interface{}{"limit": limit})
		return utils.NewRateLimitError()
	default:
		r.logger.Error("Rate limiter unavailable, allowing request", map[string]interface{}{
			"limiter": s.limiter.Name(),
			"error":   err.Error(),
		})
		return nil
	}
}

func (s *Service) verifyHuman(ctx context.Context, r *run, token string) error {
	var human bool
	s.timed(r, metrics.StageBotVerify, func() {
		human = s.verifier.Verify(ctx, token, r.req.ClientIP)
	})
	if !human {
		r.logger.Warn("Bot verification failed", nil)
		return utils.NewSecurityCheckError()
	}
	return nil
}

// checkBackend refuses to start side effects when the CMS cannot be reached
func (s *Service) checkBackend(r *run) error {
	if s.cfg.CMS.URL == "" {
		r.logger.Critical("CMS URL is not set", nil)
		return utils.NewBackendNotConfiguredError()
	}
	if s.cfg.CMS.APIToken == "" {
		r.logger.Critical("CMS API token is not set", nil)
		return utils.NewConfigurationError()
	}
	return nil
}

// decodeFailed is returned for bodies that cannot be read as a form. A
// decoder that already knows the client-facing error passes it through.
func decodeFailed(r *run, err error) *utils.CustomError {
	var cerr *utils.CustomError
	if errors.As(err, &cerr) {
		r.logger.Warn("Request body rejected", map[string]interface{}{"reason": cerr.Message})
		return cerr
	}
	r.logger.Warn("Failed to decode request body", map[string]interface{}{"error": err.Error()})
	return utils.NewBadRequestError(utils.MsgInvalidRequestPayload)
}

// createFailed maps a CMS create error onto the client-facing error
func createFailed(err error) *utils.CustomError {
	var subErr *cms.SubmissionError
	if errors.As(err, &subErr) {
		return utils.NewSubmissionFailedError(subErr.StatusCode, err)
	}
	return utils.NewInternalServerError(err)
}

// recoverPanic turns a panic inside a pipeline into a generic 500
func (s *Service) recoverPanic(r *run, errp *error) {
	if rec := recover(); rec != nil {
		r.logger.Error("Submission pipeline panicked", map[string]interface{}{
			"panic": fmt.Sprint(rec),
			"stack": string(debug.Stack()),
		})
		*errp = s.finish(r, utils.NewInternalServerError(fmt.Errorf("panic: %v", rec)))
	}
}

// finish records the terminal outcome and returns err unchanged
func (s *Service) finish(r *run, err error) error {
	duration := time.Since(r.start)
	outcome, status := classify(err)

	s.metrics.Submission(r.endpoint, outcome)
	s.metrics.Stage(r.endpoint, metrics.StageTotal, duration)

	fields := map[string]interface{}{
		"outcome":     outcome,
		"status":      status,
		"duration":    utils.FormatDuration(duration),
		"crm_synced":  r.crmSynced,
		"attachment":  r.hasAttachment,
		"duration_ms": duration.Milliseconds(),
	}
	switch {
	case err == nil:
		r.logger.Info("Submission stored", fields)
	case status >= 500 || outcome == audit.OutcomeSubmissionFailed:
		fields["error"] = err.Error()
		r.logger.Error("Submission failed", fields)
	default:
		r.logger.Info("Submission rejected", fields)
	}

	// detached from the request context
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	auditErr := s.audit.Record(ctx, &audit.Entry{
		RequestID:     r.req.RequestID,
		Endpoint:      r.endpoint,
		Outcome:       outcome,
		Status:        status,
		EmailHash:     r.emailHash,
		CRMSynced:     r.crmSynced,
		HasAttachment: r.hasAttachment,
		CMSRecordID:   r.cmsRecordID,
		DurationMS:    duration.Milliseconds(),
	})
	if auditErr != nil {
		s.metrics.SideEffectFailed(metrics.SideEffectAudit)
		r.logger.Error("Failed to record audit entry", map[string]interface{}{"error": auditErr.Error()})
	}

	return err
}

// classify maps a pipeline result to an audit outcome and HTTP status
func classify(err error) (string, int) {
	if err == nil {
		return audit.OutcomeSuccess, 200
	}

	var cerr *utils.CustomError
	if !errors.As(err, &cerr) {
		return audit.OutcomeError, 500
	}

	switch cerr.Message {
	case utils.MsgTooManyRequests:
		return audit.OutcomeRateLimited, cerr.Code
	case utils.MsgValidationFailed, utils.MsgInvalidFileType, utils.MsgInvalidRequestPayload:
		return audit.OutcomeInvalid, cerr.Code
	case utils.MsgSecurityCheckFailed:
		return audit.OutcomeBotRejected, cerr.Code
	case utils.MsgBackendNotConfigured, utils.MsgConfigurationError:
		return audit.OutcomeNotConfigured, cerr.Code
	case utils.MsgSubmissionFailed:
		return audit.OutcomeSubmissionFailed, cerr.Code
	}

	if cerr.Code == 400 {
		// size limit messages carry the limit
		return audit.OutcomeInvalid, cerr.Code
	}
	return audit.OutcomeError, cerr.Code
}
