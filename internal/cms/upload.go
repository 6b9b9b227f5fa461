package cms

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"careers-gateway/pkg/models"
)

type uploadedFile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UploadFile stores an attachment in the media library and returns its id
func (c *Client) UploadFile(ctx context.Context, att *models.Attachment) (int, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, att.Filename))
	h.Set("Content-Type", att.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return 0, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(att.Data); err != nil {
		return 0, fmt.Errorf("failed to write attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	var files []uploadedFile
	if err := c.do(ctx, "POST", "/api/upload", w.FormDataContentType(), &buf, &files); err != nil {
		return 0, err
	}

	if len(files) == 0 {
		return 0, fmt.Errorf("cms upload returned no files")
	}

	c.logger.Debug("CMS file uploaded", map[string]interface{}{
		"file_id":  files[0].ID,
		"filename": att.Filename,
		"size":     att.Size,
	})
	return files[0].ID, nil
}
