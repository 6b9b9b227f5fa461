package submission

import (
	"context"
	"errors"

	"careers-gateway/internal/api/validation"
	"careers-gateway/internal/cms"
	"careers-gateway/internal/crm"
	"careers-gateway/internal/metrics"
	"careers-gateway/pkg/models"
	"careers-gateway/pkg/utils"
)

// SubmitInquiry runs the inquiry pipeline. Partner inquiries land in their
// own collection.
func (s *Service) SubmitInquiry(ctx context.Context, in InquiryInput) (err error) {
	r := s.newRun(EndpointInquiry, in.Request)
	defer s.recoverPanic(r, &err)

	if err := s.checkRateLimit(ctx, r, s.cfg.RateLimit.InquiryLimit); err != nil {
		return s.finish(r, err)
	}

	if in.Decode != nil {
		fields, decodeErr := in.Decode()
		if decodeErr != nil {
			return s.finish(r, decodeFailed(r, decodeErr))
		}
		in.Fields = fields
	}

	var inq *models.InquirySubmission
	var validateErr error
	s.timed(r, metrics.StageValidate, func() {
		inq, validateErr = s.validator.Inquiry(in.Fields)
	})
	if validateErr != nil {
		var verr *validation.Error
		if errors.As(validateErr, &verr) {
			r.logger.Warn("Validation failed", map[string]interface{}{"fields": verr.Fields()})
			return s.finish(r, utils.NewValidationError(verr.Details))
		}
		return s.finish(r, utils.NewInternalServerError(validateErr))
	}
	r.emailHash = utils.HashEmail(inq.Email)

	if err := s.verifyHuman(ctx, r, inq.Token); err != nil {
		return s.finish(r, err)
	}

	if err := s.checkBackend(r); err != nil {
		return s.finish(r, err)
	}

	s.timed(r, metrics.StageCRM, func() {
		r.crmSynced = s.crm.UpsertContact(ctx, inquiryContact(inq))
	})
	if !r.crmSynced {
		s.metrics.SideEffectFailed(metrics.SideEffectCRM)
		r.logger.Warn("CRM sync failed, continuing", nil)
	}

	collection, record := cms.NewInquiryRecord(inq)

	var created *cms.Record
	var createErr error
	s.timed(r, metrics.StageCreate, func() {
		created, createErr = s.cms.CreateInquiry(ctx, collection, record)
	})
	if createErr != nil {
		return s.finish(r, createFailed(createErr))
	}

	r.cmsRecordID = &created.ID
	r.logger.Debug("Inquiry routed", map[string]interface{}{
		"collection": collection,
		"type":       inq.Type,
	})
	return s.finish(r, nil)
}

func inquiryContact(inq *models.InquirySubmission) crm.Contact {
	first, last := utils.SplitFullName(inq.ContactPerson)
	return crm.Contact{
		Email:          inq.Email,
		FirstName:      first,
		LastName:       last,
		Phone:          inq.Phone,
		Company:        inq.CompanyName,
		LifecycleStage: crm.LifecycleLead,
		Source:         crm.SourceInquiryForm,
	}
}
