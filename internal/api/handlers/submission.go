package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"careers-gateway/internal/api/middleware"
	"careers-gateway/internal/submission"
	"careers-gateway/pkg/models"
	"careers-gateway/pkg/utils"
)

// ApplyHandler handles POST /api/apply (multipart form, optional "cv" file)
func ApplyHandler(svc *submission.Service, maxFileBytes int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		in := submission.ApplicationInput{
			Request: requestOf(c),
			Decode: func() (map[string]string, *multipart.FileHeader, error) {
				return decodeApplicationForm(c, maxFileBytes)
			},
		}

		if err := svc.SubmitApplication(c.Request().Context(), in); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
	}
}

// InquiryHandler handles POST /api/inquiry (JSON object body)
func InquiryHandler(svc *submission.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		in := submission.InquiryInput{
			Request: requestOf(c),
			Decode: func() (map[string]string, error) {
				return decodeJSONFields(c)
			},
		}

		if err := svc.SubmitInquiry(c.Request().Context(), in); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
	}
}

func requestOf(c echo.Context) submission.Request {
	return submission.Request{
		RequestID: middleware.RequestID(c),
		ClientIP:  c.RealIP(),
	}
}

// decodeApplicationForm keeps the first value of every form field and the
// first non-empty "cv" file. A body cut short by the upload limit is
// reported as a file over maxFileBytes.
func decodeApplicationForm(c echo.Context, maxFileBytes int64) (map[string]string, *multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return nil, nil, utils.NewFileTooLargeError(maxFileBytes)
		}
		return nil, nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	fields := make(map[string]string, len(form.Value))
	for key, values := range form.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	for _, fh := range form.File["cv"] {
		if fh.Filename != "" || fh.Size > 0 {
			return fields, fh, nil
		}
	}
	return fields, nil, nil
}

// decodeJSONFields reads a flat JSON object. Scalars are converted to their
// string form; null and nested values are dropped.
func decodeJSONFields(c echo.Context) (map[string]string, error) {
	var body map[string]interface{}

	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode JSON body: %w", err)
	}
	if body == nil {
		return nil, errors.New("request body must be a JSON object")
	}

	fields := make(map[string]string, len(body))
	for key, value := range body {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		}
	}
	return fields, nil
}
