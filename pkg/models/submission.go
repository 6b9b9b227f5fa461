package models

// ApplicationSubmission is a validated job application. Optional fields are
// nil when the client did not send them.
type ApplicationSubmission struct {
	FullName              string  `json:"fullName" validate:"required,min=2,max=100"`
	Email                 string  `json:"email" validate:"required,email,max=254"`
	Phone                 string  `json:"phone" validate:"required,min=6,max=20"`
	YearsOfExperience     *int    `json:"yearsOfExperience,omitempty" validate:"omitempty,min=0,max=50"`
	AvailabilityDate      *string `json:"availabilityDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	SalaryExpectationsMin *int    `json:"salaryExpectationsMin,omitempty" validate:"omitempty,min=0"`
	SalaryExpectationsMax *int    `json:"salaryExpectationsMax,omitempty" validate:"omitempty,min=0"`
	CurrentPosition       *string `json:"currentPosition,omitempty" validate:"omitempty,max=200"`
	CurrentCompany        *string `json:"currentCompany,omitempty" validate:"omitempty,max=200"`
	CoverLetter           *string `json:"coverLetter,omitempty" validate:"omitempty,max=5000"`
	AdditionalNotes       *string `json:"additionalNotes,omitempty" validate:"omitempty,max=1000"`
	LinkedinProfile       *string `json:"linkedinProfile,omitempty" validate:"omitempty,http_url,max=500"`
	PortfolioWebsite      *string `json:"portfolioWebsite,omitempty" validate:"omitempty,http_url,max=500"`
	JobSlug               *string `json:"jobSlug,omitempty" validate:"omitempty,max=200"`
	Token                 string  `json:"token" validate:"required"`
}

// InquirySubmission is a validated company inquiry
type InquirySubmission struct {
	CompanyName   string `json:"companyName" validate:"required,min=2,max=100"`
	ContactPerson string `json:"contactPerson" validate:"required,min=2,max=100"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Phone         string `json:"phone" validate:"required,min=6,max=20"`
	Message       string `json:"message" validate:"required,min=10,max=2000"`
	Type          string `json:"type" validate:"max=50"`
	Token         string `json:"token" validate:"required"`
}

// Default inquiry category and the category routed to the partner collection
const (
	InquiryTypeGeneral = "General"
	InquiryTypePartner = "Partner"
)

// Attachment is a CV that passed size and type checks
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}
