package submission

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careers-gateway/internal/api/validation"
	"careers-gateway/internal/audit"
	"careers-gateway/internal/cms"
	"careers-gateway/internal/config"
	"careers-gateway/internal/crm"
	"careers-gateway/internal/logging"
	"careers-gateway/internal/metrics"
	"careers-gateway/internal/ratelimit"
	"careers-gateway/pkg/models"
	"careers-gateway/pkg/utils"
)

const pdfBytes = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF\n"

type fakeVerifier struct {
	human bool
	calls int
	mu    sync.Mutex
}

func (f *fakeVerifier) Verify(ctx context.Context, token, ip string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.human
}

type fakeCRM struct {
	ok       bool
	contacts []crm.Contact
	mu       sync.Mutex
}

func (f *fakeCRM) UpsertContact(ctx context.Context, c crm.Contact) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts = append(f.contacts, c)
	return f.ok
}

type fakeCMS struct {
	mu           sync.Mutex
	uploadErr    error
	createErr    error
	jobs         map[string]int
	uploads      []*models.Attachment
	applications []*cms.ApplicationRecord
	inquiries    map[string][]*cms.InquiryRecord
	panicCreate  bool
}

func (f *fakeCMS) UploadFile(ctx context.Context, att *models.Attachment) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	f.uploads = append(f.uploads, att)
	return 77, nil
}

func (f *fakeCMS) CreateApplication(ctx context.Context, rec *cms.ApplicationRecord) (*cms.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicCreate {
		panic("boom")
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.applications = append(f.applications, rec)
	return &cms.Record{ID: len(f.applications)}, nil
}

func (f *fakeCMS) CreateInquiry(ctx context.Context, collection string, rec *cms.InquiryRecord) (*cms.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.inquiries == nil {
		f.inquiries = map[string][]*cms.InquiryRecord{}
	}
	f.inquiries[collection] = append(f.inquiries[collection], rec)
	return &cms.Record{ID: 5}, nil
}

func (f *fakeCMS) FindJobBySlug(ctx context.Context, slug, locale string) (*models.Job, error) {
	if id, ok := f.jobs[slug]; ok {
		return &models.Job{ID: id, Slug: slug}, nil
	}
	return nil, cms.ErrNotFound
}

func (f *fakeCMS) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.applications)
	for _, recs := range f.inquiries {
		n += len(recs)
	}
	return n
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (f *fakeAudit) Record(ctx context.Context, e *audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return f.err
}

func (f *fakeAudit) Ping(context.Context) error { return nil }
func (f *fakeAudit) Close() error               { return nil }

func (f *fakeAudit) last() audit.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[len(f.entries)-1]
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, int, string) error {
	return errors.New("redis: connection refused")
}
func (failingLimiter) Name() string { return "redis" }

type harness struct {
	cfg      *config.Config
	svc      *Service
	verifier *fakeVerifier
	crm      *fakeCRM
	cms      *fakeCMS
	audit    *fakeAudit
	metrics  *metrics.Collector
	limiter  ratelimit.Limiter
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.CMS.URL = "http://cms.test"
	cfg.CMS.APIToken = "token"

	h := &harness{
		cfg:      cfg,
		verifier: &fakeVerifier{human: true},
		crm:      &fakeCRM{ok: true},
		cms:      &fakeCMS{jobs: map[string]int{"backend-engineer": 12}},
		audit:    &fakeAudit{},
		metrics:  metrics.New(),
		limiter:  ratelimit.NewMemoryLimiter(100, time.Minute),
	}
	h.build()
	return h
}

func (h *harness) build() {
	h.svc = NewService(h.cfg, Deps{
		Limiter:   h.limiter,
		Validator: validation.New(),
		Verifier:  h.verifier,
		CRM:       h.crm,
		CMS:       h.cms,
		Audit:     h.audit,
		Metrics:   h.metrics,
		Logger:    logging.NewNopLogger(),
	})
}

func applicationInput(ip string) ApplicationInput {
	return ApplicationInput{
		Request: Request{RequestID: "req-" + ip, ClientIP: ip},
		Fields: map[string]string{
			"fullName":        "Jane Marie Doe",
			"email":           "Jane@Example.com",
			"phone":           "0612345678",
			"additionalNotes": "Available from March",
			"token":           "tok",
		},
	}
}

func inquiryInput(ip, kind string) InquiryInput {
	return InquiryInput{
		Request: Request{RequestID: "req-" + ip, ClientIP: ip},
		Fields: map[string]string{
			"companyName":   "Acme GmbH",
			"contactPerson": "John Smith",
			"email":         "john@acme.test",
			"phone":         "0612345678",
			"message":       "We would like to talk about staffing.",
			"type":          kind,
			"token":         "tok",
		},
	}
}

func cvHeader(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="cv"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["cv"][0]
}

func requireCustomError(t *testing.T, err error, code int, message string) *utils.CustomError {
	t.Helper()
	var cerr *utils.CustomError
	require.True(t, errors.As(err, &cerr), "expected *utils.CustomError, got %v", err)
	assert.Equal(t, code, cerr.Code)
	assert.Equal(t, message, cerr.Message)
	return cerr
}

func (h *harness) assertNoSideEffects(t *testing.T) {
	t.Helper()
	assert.Empty(t, h.crm.contacts, "CRM must not be called")
	assert.Zero(t, h.cms.created(), "CMS must not be called")
	assert.Empty(t, h.cms.uploads)
}

func TestSubmitApplication_Success(t *testing.T) {
	h := newHarness(t)

	in := applicationInput("1.1.1.1")
	in.Fields["jobSlug"] = "backend-engineer"
	in.CV = cvHeader(t, "Resume.PDF", cms.MimePDF, []byte(pdfBytes))

	require.NoError(t, h.svc.SubmitApplication(context.Background(), in))

	require.Len(t, h.cms.applications, 1)
	rec := h.cms.applications[0]
	assert.Equal(t, cms.StageNew, rec.Stage)
	require.NotNil(t, rec.CV)
	assert.Equal(t, 77, *rec.CV)
	require.NotNil(t, rec.LinkedJob)
	assert.Equal(t, 12, *rec.LinkedJob)
	require.Len(t, rec.InternalNotes, 1)
	assert.Equal(t, "Resume.pdf", h.cms.uploads[0].Filename)

	require.Len(t, h.crm.contacts, 1)
	contact := h.crm.contacts[0]
	assert.Equal(t, "Jane", contact.FirstName)
	assert.Equal(t, "Marie Doe", contact.LastName)
	assert.Equal(t, crm.SourceCareerApplication, contact.Source)
	assert.Equal(t, crm.LifecycleLead, contact.LifecycleStage)

	entry := h.audit.last()
	assert.Equal(t, audit.OutcomeSuccess, entry.Outcome)
	assert.Equal(t, 200, entry.Status)
	assert.Equal(t, utils.HashEmail("jane@example.com"), entry.EmailHash)
	assert.True(t, entry.CRMSynced)
	assert.True(t, entry.HasAttachment)
	require.NotNil(t, entry.CMSRecordID)

	expected := `
# HELP careers_submissions_total Form submissions by endpoint and terminal outcome.
# TYPE careers_submissions_total counter
careers_submissions_total{endpoint="apply",outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "careers_submissions_total"))
}

func TestSubmitApplication_RateLimited(t *testing.T) {
	h := newHarness(t)
	h.cfg.RateLimit.ApplyLimit = 2
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, h.svc.SubmitApplication(ctx, applicationInput("9.9.9.9")))
	}
	created := h.cms.created()
	crmCalls := len(h.crm.contacts)
	verifyCalls := h.verifier.calls

	err := h.svc.SubmitApplication(ctx, applicationInput("9.9.9.9"))
	requireCustomError(t, err, http.StatusTooManyRequests, utils.MsgTooManyRequests)

	assert.Equal(t, created, h.cms.created())
	assert.Len(t, h.crm.contacts, crmCalls)
	assert.Equal(t, verifyCalls, h.verifier.calls)
	assert.Equal(t, audit.OutcomeRateLimited, h.audit.last().Outcome)

	// another client is unaffected, as is the other endpoint
	assert.NoError(t, h.svc.SubmitApplication(ctx, applicationInput("8.8.8.8")))
	assert.NoError(t, h.svc.SubmitInquiry(ctx, inquiryInput("9.9.9.9", "")))
}

func TestSubmitApplication_LimiterDownFailsOpen(t *testing.T) {
	h := newHarness(t)
	h.limiter = failingLimiter{}
	h.build()

	assert.NoError(t, h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1")))
}

func TestSubmitApplication_ValidationFailure(t *testing.T) {
	h := newHarness(t)

	in := applicationInput("1.1.1.1")
	in.Fields["email"] = "nope"
	in.Fields["yearsOfExperience"] = "many"
	delete(in.Fields, "token")

	err := h.svc.SubmitApplication(context.Background(), in)
	cerr := requireCustomError(t, err, http.StatusBadRequest, utils.MsgValidationFailed)

	details, ok := cerr.Details.(validation.Details)
	require.True(t, ok)
	assert.Contains(t, details.FieldErrors, "email")
	assert.Contains(t, details.FieldErrors, "yearsOfExperience")
	assert.Contains(t, details.FieldErrors, "token")

	assert.Zero(t, h.verifier.calls, "bot verification must not run on invalid input")
	h.assertNoSideEffects(t)
	assert.Equal(t, audit.OutcomeInvalid, h.audit.last().Outcome)
}

func TestSubmitApplication_AttachmentRejected(t *testing.T) {
	h := newHarness(t)
	h.cfg.Uploads.MaxFileSize = 16

	in := applicationInput("1.1.1.1")
	in.CV = cvHeader(t, "cv.pdf", cms.MimePDF, []byte(pdfBytes))

	err := h.svc.SubmitApplication(context.Background(), in)
	var cerr *utils.CustomError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusBadRequest, cerr.Code)
	assert.True(t, strings.HasPrefix(cerr.Message, "File too large"))

	h.cfg.Uploads.MaxFileSize = 10 << 20
	in.CV = cvHeader(t, "cv.exe", "application/x-msdownload", []byte("MZ"))
	err = h.svc.SubmitApplication(context.Background(), in)
	requireCustomError(t, err, http.StatusBadRequest, utils.MsgInvalidFileType)

	assert.Zero(t, h.verifier.calls)
	h.assertNoSideEffects(t)
}

func TestSubmitApplication_BotRejected(t *testing.T) {
	h := newHarness(t)
	h.verifier.human = false

	err := h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1"))
	cerr := requireCustomError(t, err, http.StatusBadRequest, utils.MsgSecurityCheckFailed)
	assert.Nil(t, cerr.Details)

	h.assertNoSideEffects(t)
	assert.Equal(t, audit.OutcomeBotRejected, h.audit.last().Outcome)
}

func TestSubmitApplication_BackendNotConfigured(t *testing.T) {
	h := newHarness(t)
	h.cfg.CMS.URL = ""

	err := h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1"))
	requireCustomError(t, err, http.StatusServiceUnavailable, utils.MsgBackendNotConfigured)
	h.assertNoSideEffects(t)

	h.cfg.CMS.URL = "http://cms.test"
	h.cfg.CMS.APIToken = ""
	err = h.svc.SubmitApplication(context.Background(), applicationInput("2.2.2.2"))
	requireCustomError(t, err, http.StatusInternalServerError, utils.MsgConfigurationError)
	h.assertNoSideEffects(t)
}

func TestSubmitApplication_CRMFailureDoesNotFail(t *testing.T) {
	h := newHarness(t)
	h.crm.ok = false

	require.NoError(t, h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1")))
	assert.Len(t, h.cms.applications, 1)
	assert.False(t, h.audit.last().CRMSynced)
}

func TestSubmitApplication_UploadFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.cms.uploadErr = errors.New("media library unavailable")

	in := applicationInput("1.1.1.1")
	in.CV = cvHeader(t, "cv.pdf", cms.MimePDF, []byte(pdfBytes))

	require.NoError(t, h.svc.SubmitApplication(context.Background(), in))
	require.Len(t, h.cms.applications, 1)
	assert.Nil(t, h.cms.applications[0].CV)
}

func TestSubmitApplication_UnknownJobStillStored(t *testing.T) {
	h := newHarness(t)

	in := applicationInput("1.1.1.1")
	in.Fields["jobSlug"] = "retired-role"

	require.NoError(t, h.svc.SubmitApplication(context.Background(), in))
	rec := h.cms.applications[0]
	assert.Nil(t, rec.LinkedJob)
	require.NotNil(t, rec.JobSlug)
	assert.Equal(t, "retired-role", *rec.JobSlug)
}

func TestSubmitApplication_CMSCreateFailureMirrorsStatus(t *testing.T) {
	h := newHarness(t)
	h.cms.createErr = &cms.SubmissionError{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       `{"error":{"message":"fullName must be unique"}}`,
	}

	err := h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1"))
	cerr := requireCustomError(t, err, http.StatusUnprocessableEntity, utils.MsgSubmissionFailed)
	assert.NotContains(t, cerr.Message, "unique")
	assert.Nil(t, cerr.Details)

	assert.Equal(t, audit.OutcomeSubmissionFailed, h.audit.last().Outcome)
	assert.Equal(t, http.StatusUnprocessableEntity, h.audit.last().Status)
}

func TestSubmitApplication_CMSTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.cms.createErr = errors.New("dial tcp: connection refused")

	err := h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1"))
	requireCustomError(t, err, http.StatusInternalServerError, utils.MsgInternalServerError)
}

func TestSubmitApplication_PanicRecovered(t *testing.T) {
	h := newHarness(t)
	h.cms.panicCreate = true

	err := h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1"))
	requireCustomError(t, err, http.StatusInternalServerError, utils.MsgInternalServerError)
	assert.Equal(t, audit.OutcomeError, h.audit.last().Outcome)
}

func TestSubmitApplication_AuditFailureIgnored(t *testing.T) {
	h := newHarness(t)
	h.audit.err = errors.New("disk full")

	assert.NoError(t, h.svc.SubmitApplication(context.Background(), applicationInput("1.1.1.1")))
}

func TestSubmitApplication_NotIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.SubmitApplication(ctx, applicationInput("1.1.1.1")))
	require.NoError(t, h.svc.SubmitApplication(ctx, applicationInput("1.1.1.1")))
	assert.Len(t, h.cms.applications, 2)
}

func TestSubmitInquiry_Routing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.SubmitInquiry(ctx, inquiryInput("1.1.1.1", "")))
	require.NoError(t, h.svc.SubmitInquiry(ctx, inquiryInput("1.1.1.2", "partner")))
	require.NoError(t, h.svc.SubmitInquiry(ctx, inquiryInput("1.1.1.3", "Careers")))

	assert.Len(t, h.cms.inquiries[cms.CollectionGeneralInquiries], 2)
	assert.Len(t, h.cms.inquiries[cms.CollectionPartners], 1)

	contact := h.crm.contacts[0]
	assert.Equal(t, "Acme GmbH", contact.Company)
	assert.Equal(t, "John", contact.FirstName)
	assert.Equal(t, crm.SourceInquiryForm, contact.Source)
}

func TestSubmitInquiry_Failures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := inquiryInput("1.1.1.1", "")
	in.Fields["message"] = "short"
	err := h.svc.SubmitInquiry(ctx, in)
	requireCustomError(t, err, http.StatusBadRequest, utils.MsgValidationFailed)

	h.verifier.human = false
	err = h.svc.SubmitInquiry(ctx, inquiryInput("1.1.1.1", ""))
	requireCustomError(t, err, http.StatusBadRequest, utils.MsgSecurityCheckFailed)
	h.assertNoSideEffects(t)

	h.verifier.human = true
	h.crm.ok = false
	h.cms.createErr = &cms.SubmissionError{StatusCode: http.StatusBadGateway, Body: "upstream html"}
	err = h.svc.SubmitInquiry(ctx, inquiryInput("1.1.1.1", ""))
	requireCustomError(t, err, http.StatusBadGateway, utils.MsgSubmissionFailed)
}

func TestSubmit_DecodeRunsAfterRateLimit(t *testing.T) {
	h := newHarness(t)
	h.cfg.RateLimit.InquiryLimit = 1
	ctx := context.Background()

	decoded := 0
	in := InquiryInput{
		Request: Request{ClientIP: "4.4.4.4"},
		Decode: func() (map[string]string, error) {
			decoded++
			return nil, errors.New("unexpected EOF")
		},
	}

	err := h.svc.SubmitInquiry(ctx, in)
	requireCustomError(t, err, http.StatusBadRequest, utils.MsgInvalidRequestPayload)
	assert.Equal(t, 1, decoded)

	err = h.svc.SubmitInquiry(ctx, in)
	requireCustomError(t, err, http.StatusTooManyRequests, utils.MsgTooManyRequests)
	assert.Equal(t, 1, decoded, "rate limited requests are not decoded")
}
