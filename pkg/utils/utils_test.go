package utils

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careers-gateway/internal/config"
)

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"John Doe", "John", "Doe"},
		{"  Anna   Maria  von Berg ", "Anna", "Maria von Berg"},
		{"Cher", "Cher", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		first, last := SplitFullName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestHashEmail(t *testing.T) {
	assert.Equal(t, HashEmail("John@Example.com "), HashEmail("john@example.com"))
	assert.Len(t, HashEmail("a@b.com"), 64)
}

func TestSubmissionFailedError(t *testing.T) {
	cause := errors.New(`{"error":{"message":"secret upstream detail"}}`)

	err := NewSubmissionFailedError(http.StatusUnprocessableEntity, cause)
	assert.Equal(t, http.StatusUnprocessableEntity, err.Code)
	assert.Equal(t, MsgSubmissionFailed, err.Message)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, http.StatusBadGateway, NewSubmissionFailedError(200, nil).Code)
}

func TestFileTooLargeError(t *testing.T) {
	assert.Equal(t, "File too large (Max 10MB)", NewFileTooLargeError(10*1024*1024).Message)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Redis.URL = "redis://" + mr.Addr()

	client, err := NewRedisClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	cfg.Redis.URL = "not a url"
	_, err = NewRedisClient(context.Background(), cfg)
	assert.Error(t, err)
}
