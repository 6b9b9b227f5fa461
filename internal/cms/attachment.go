package cms

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"careers-gateway/pkg/models"
	"careers-gateway/pkg/utils"
)

// Accepted CV types and the extension each is stored under
const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	mimeOctetStream = "application/octet-stream"
)

var allowedTypes = map[string]string{
	MimePDF:  ".pdf",
	MimeDOC:  ".doc",
	MimeDOCX: ".docx",
}

var extensionTypes = map[string]string{
	".pdf":  MimePDF,
	".doc":  MimeDOC,
	".docx": MimeDOCX,
}

// PrepareAttachment reads an uploaded CV, enforcing the size cap and the
// type allow-list. Generic octet-stream uploads are resolved by sniffing
// the content, then by extension. The filename extension is rewritten to
// match the resolved type.
func PrepareAttachment(fh *multipart.FileHeader, maxBytes int64) (*models.Attachment, error) {
	if fh.Size > maxBytes {
		return nil, utils.NewFileTooLargeError(maxBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, utils.NewFileTooLargeError(maxBytes)
	}

	declared := baseType(fh.Header.Get("Content-Type"))
	contentType, ok := resolveType(declared, data, fh.Filename)
	if !ok {
		return nil, utils.NewInvalidFileTypeError()
	}

	return &models.Attachment{
		Filename:    normalizeFilename(fh.Filename, contentType),
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

func resolveType(declared string, data []byte, filename string) (string, bool) {
	if _, ok := allowedTypes[declared]; ok {
		return declared, true
	}
	if declared != "" && declared != mimeOctetStream {
		return "", false
	}

	detected := mimetype.Detect(data)
	for candidate := range allowedTypes {
		if detected.Is(candidate) {
			return candidate, true
		}
	}

	// docx sniffs as a generic zip and doc as an OLE container
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct, true
	}
	return "", false
}

func normalizeFilename(name, contentType string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "cv"
	}

	ext := filepath.Ext(name)
	if _, known := extensionTypes[strings.ToLower(ext)]; known {
		name = strings.TrimSuffix(name, ext)
	}
	return name + allowedTypes[contentType]
}

func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
