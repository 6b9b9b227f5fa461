package submission

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"careers-gateway/internal/api/validation"
	"careers-gateway/internal/cms"
	"careers-gateway/internal/crm"
	"careers-gateway/internal/metrics"
	"careers-gateway/pkg/models"
	"careers-gateway/pkg/utils"
)

// SubmitApplication runs the application pipeline. A nil error means the
// application was stored; any returned error is a *utils.CustomError.
func (s *Service) SubmitApplication(ctx context.Context, in ApplicationInput) (err error) {
	r := s.newRun(EndpointApply, in.Request)
	defer s.recoverPanic(r, &err)

	if err := s.checkRateLimit(ctx, r, s.cfg.RateLimit.ApplyLimit); err != nil {
		return s.finish(r, err)
	}

	if in.Decode != nil {
		fields, cv, decodeErr := in.Decode()
		if decodeErr != nil {
			return s.finish(r, decodeFailed(r, decodeErr))
		}
		in.Fields, in.CV = fields, cv
	}

	var (
		app *models.ApplicationSubmission
		att *models.Attachment
	)
	s.timed(r, metrics.StageValidate, func() {
		app, att, err = s.validateApplication(r, in)
	})
	if err != nil {
		return s.finish(r, err)
	}
	r.emailHash = utils.HashEmail(app.Email)
	r.hasAttachment = att != nil

	if err := s.verifyHuman(ctx, r, app.Token); err != nil {
		return s.finish(r, err)
	}

	if err := s.checkBackend(r); err != nil {
		return s.finish(r, err)
	}

	record := cms.NewApplicationRecord(app)

	// CRM sync, CV upload and job lookup are independent and all best effort
	var g errgroup.Group
	g.Go(func() error {
		s.timed(r, metrics.StageCRM, func() {
			r.crmSynced = s.crm.UpsertContact(ctx, applicationContact(app))
		})
		if !r.crmSynced {
			s.metrics.SideEffectFailed(metrics.SideEffectCRM)
			r.logger.Warn("CRM sync failed, continuing", nil)
		}
		return nil
	})
	if att != nil {
		g.Go(func() error {
			s.timed(r, metrics.StageUpload, func() {
				id, uploadErr := s.cms.UploadFile(ctx, att)
				if uploadErr != nil {
					s.metrics.SideEffectFailed(metrics.SideEffectUpload)
					r.logger.Error("CV upload failed, submitting without attachment", map[string]interface{}{
						"error":    uploadErr.Error(),
						"filename": att.Filename,
						"size":     att.Size,
					})
					return
				}
				record.CV = &id
			})
			return nil
		})
	}
	if app.JobSlug != nil {
		g.Go(func() error {
			job, lookupErr := s.cms.FindJobBySlug(ctx, *app.JobSlug, "")
			if lookupErr != nil {
				if !errors.Is(lookupErr, cms.ErrNotFound) {
					s.metrics.SideEffectFailed(metrics.SideEffectJobLink)
				}
				r.logger.Warn("Could not link application to job", map[string]interface{}{
					"job_slug": *app.JobSlug,
					"error":    lookupErr.Error(),
				})
				return nil
			}
			record.LinkedJob = &job.ID
			return nil
		})
	}
	g.Wait()

	var created *cms.Record
	var createErr error
	s.timed(r, metrics.StageCreate, func() {
		created, createErr = s.cms.CreateApplication(ctx, record)
	})
	if createErr != nil {
		return s.finish(r, createFailed(createErr))
	}

	r.cmsRecordID = &created.ID
	return s.finish(r, nil)
}

// validateApplication checks the fields, then the attachment
func (s *Service) validateApplication(r *run, in ApplicationInput) (*models.ApplicationSubmission, *models.Attachment, error) {
	app, err := s.validator.Application(in.Fields)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			r.logger.Warn("Validation failed", map[string]interface{}{"fields": verr.Fields()})
			return nil, nil, utils.NewValidationError(verr.Details)
		}
		return nil, nil, utils.NewInternalServerError(err)
	}

	if in.CV == nil {
		return app, nil, nil
	}

	att, err := cms.PrepareAttachment(in.CV, s.cfg.Uploads.MaxFileSize)
	if err != nil {
		var cerr *utils.CustomError
		if errors.As(err, &cerr) {
			r.logger.Warn("Attachment rejected", map[string]interface{}{
				"reason":       cerr.Message,
				"content_type": in.CV.Header.Get("Content-Type"),
				"size":         in.CV.Size,
			})
			return nil, nil, cerr
		}
		return nil, nil, utils.NewInternalServerError(err)
	}

	return app, att, nil
}

func applicationContact(app *models.ApplicationSubmission) crm.Contact {
	first, last := utils.SplitFullName(app.FullName)
	contact := crm.Contact{
		Email:          app.Email,
		FirstName:      first,
		LastName:       last,
		Phone:          app.Phone,
		LifecycleStage: crm.LifecycleLead,
		Source:         crm.SourceCareerApplication,
	}
	if app.CurrentCompany != nil {
		contact.Company = *app.CurrentCompany
	}
	if app.PortfolioWebsite != nil {
		contact.Website = *app.PortfolioWebsite
	}
	return contact
}
