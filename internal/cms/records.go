package cms

import (
	"strings"

	"careers-gateway/pkg/models"
)

// Collections the submission endpoints write to
const (
	CollectionApplications     = "applications"
	CollectionGeneralInquiries = "general-inquiries"
	CollectionPartners         = "partners"
)

// StageNew is the pipeline stage of a freshly received application
const StageNew = "New"

// Block is a Strapi rich-text block
type Block struct {
	Type     string      `json:"type"`
	Children []BlockText `json:"children"`
}

// BlockText is an inline text node inside a Block
type BlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Paragraphs turns plain text into one paragraph block per non-empty line
// group. Empty text yields nil.
func Paragraphs(text string) []Block {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var blocks []Block
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if para = strings.TrimSpace(para); para == "" {
			continue
		}
		blocks = append(blocks, Block{
			Type:     "paragraph",
			Children: []BlockText{{Type: "text", Text: para}},
		})
	}
	return blocks
}

// ApplicationRecord is the application entry as stored in the CMS
type ApplicationRecord struct {
	FullName              string  `json:"fullName"`
	Email                 string  `json:"email"`
	Phone                 string  `json:"phone"`
	YearsOfExperience     *int    `json:"yearsOfExperience,omitempty"`
	AvailabilityDate      *string `json:"availabilityDate,omitempty"`
	SalaryExpectationsMin *int    `json:"salaryExpectationsMin,omitempty"`
	SalaryExpectationsMax *int    `json:"salaryExpectationsMax,omitempty"`
	CurrentPosition       *string `json:"currentPosition,omitempty"`
	CurrentCompany        *string `json:"currentCompany,omitempty"`
	CoverLetter           *string `json:"coverLetter,omitempty"`
	LinkedinProfile       *string `json:"linkedinProfile,omitempty"`
	PortfolioWebsite      *string `json:"portfolioWebsite,omitempty"`
	JobSlug               *string `json:"jobSlug,omitempty"`
	InternalNotes         []Block `json:"internalNotes,omitempty"`
	Stage                 string  `json:"stage"`
	CV                    *int    `json:"cv,omitempty"`
	LinkedJob             *int    `json:"linkedJob,omitempty"`
}

// NewApplicationRecord maps a validated application onto the CMS shape. The
// anti-bot token is dropped.
func NewApplicationRecord(app *models.ApplicationSubmission) *ApplicationRecord {
	rec := &ApplicationRecord{
		FullName:              app.FullName,
		Email:                 app.Email,
		Phone:                 app.Phone,
		YearsOfExperience:     app.YearsOfExperience,
		AvailabilityDate:      app.AvailabilityDate,
		SalaryExpectationsMin: app.SalaryExpectationsMin,
		SalaryExpectationsMax: app.SalaryExpectationsMax,
		CurrentPosition:       app.CurrentPosition,
		CurrentCompany:        app.CurrentCompany,
		CoverLetter:           app.CoverLetter,
		LinkedinProfile:       app.LinkedinProfile,
		PortfolioWebsite:      app.PortfolioWebsite,
		JobSlug:               app.JobSlug,
		Stage:                 StageNew,
	}
	if app.AdditionalNotes != nil {
		rec.InternalNotes = Paragraphs(*app.AdditionalNotes)
	}
	return rec
}

// InquiryRecord is the inquiry entry as stored in the CMS
type InquiryRecord struct {
	CompanyName   string `json:"companyName"`
	ContactPerson string `json:"contactPerson"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Message       string `json:"message"`
}

// NewInquiryRecord maps a validated inquiry onto the CMS shape and picks
// the collection from its type. Type and token are not persisted.
func NewInquiryRecord(inq *models.InquirySubmission) (string, *InquiryRecord) {
	return InquiryCollection(inq.Type), &InquiryRecord{
		CompanyName:   inq.CompanyName,
		ContactPerson: inq.ContactPerson,
		Email:         inq.Email,
		Phone:         inq.Phone,
		Message:       inq.Message,
	}
}

// InquiryCollection routes partner inquiries to their own collection
func InquiryCollection(inquiryType string) string {
	if strings.EqualFold(strings.TrimSpace(inquiryType), models.InquiryTypePartner) {
		return CollectionPartners
	}
	return CollectionGeneralInquiries
}
