package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"careers-gateway/pkg/models"
)

// Details mirrors the shape browsers already render: form-level errors plus
// every message for every failing field.
type Details struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// Error is returned when one or more fields fail validation
type Error struct {
	Details Details
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Details.FieldErrors))
	for f := range e.Details.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed for fields: %s", strings.Join(fields, ", "))
}

// Fields returns the names of all failing fields, sorted
func (e *Error) Fields() []string {
	fields := make([]string, 0, len(e.Details.FieldErrors))
	for f := range e.Details.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Validator turns raw form fields into typed, sanitised submissions
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the submission rules registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so errors line up with the form inputs
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	RegisterSubmissionValidators(v)

	return &Validator{validate: v}
}

// RegisterSubmissionValidators registers cross-field rules for submissions
func RegisterSubmissionValidators(v *validator.Validate) {
	v.RegisterStructValidation(validateSalaryRange, models.ApplicationSubmission{})
}

func validateSalaryRange(sl validator.StructLevel) {
	app := sl.Current().Interface().(models.ApplicationSubmission)
	if app.SalaryExpectationsMin == nil || app.SalaryExpectationsMax == nil {
		return
	}
	if *app.SalaryExpectationsMax < *app.SalaryExpectationsMin {
		sl.ReportError(app.SalaryExpectationsMax, "salaryExpectationsMax", "SalaryExpectationsMax", "salary_range", "")
	}
}

// Application validates the fields of an application form. Every field is
// checked; the returned *Error lists all violations.
func (v *Validator) Application(raw map[string]string) (*models.ApplicationSubmission, error) {
	r := newFieldReader(raw)

	app := &models.ApplicationSubmission{
		FullName:              r.str("fullName"),
		Email:                 r.str("email"),
		Phone:                 r.str("phone"),
		YearsOfExperience:     r.optInt("yearsOfExperience"),
		AvailabilityDate:      r.optStr("availabilityDate"),
		SalaryExpectationsMin: r.optInt("salaryExpectationsMin"),
		SalaryExpectationsMax: r.optInt("salaryExpectationsMax"),
		CurrentPosition:       r.optStr("currentPosition"),
		CurrentCompany:        r.optStr("currentCompany"),
		CoverLetter:           r.optText("coverLetter"),
		AdditionalNotes:       r.optText("additionalNotes"),
		LinkedinProfile:       r.optStr("linkedinProfile"),
		PortfolioWebsite:      r.optStr("portfolioWebsite"),
		JobSlug:               r.optStr("jobSlug"),
		Token:                 r.str("token"),
	}

	if err := v.check(app, r.errs); err != nil {
		return nil, err
	}
	return app, nil
}

// Inquiry validates the fields of an inquiry form
func (v *Validator) Inquiry(raw map[string]string) (*models.InquirySubmission, error) {
	r := newFieldReader(raw)

	inq := &models.InquirySubmission{
		CompanyName:   r.str("companyName"),
		ContactPerson: r.str("contactPerson"),
		Email:         r.str("email"),
		Phone:         r.str("phone"),
		Message:       r.text("message"),
		Type:          r.str("type"),
		Token:         r.str("token"),
	}

	if err := v.check(inq, r.errs); err != nil {
		return nil, err
	}

	if inq.Type == "" {
		inq.Type = models.InquiryTypeGeneral
	}
	return inq, nil
}

// check runs the struct rules and merges them with coercion errors
func (v *Validator) check(payload interface{}, coercion map[string][]string) error {
	fieldErrors := make(map[string][]string, len(coercion))
	for field, msgs := range coercion {
		fieldErrors[field] = append(fieldErrors[field], msgs...)
	}

	if err := v.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validator misconfigured: %w", err)
		}
		for _, fe := range verrs {
			field := fe.Field()
			// a coercion failure already explains this field
			if _, coerced := coercion[field]; coerced {
				continue
			}
			fieldErrors[field] = append(fieldErrors[field], message(fe))
		}
	}

	if len(fieldErrors) == 0 {
		return nil
	}

	return &Error{Details: Details{FormErrors: []string{}, FieldErrors: fieldErrors}}
}
