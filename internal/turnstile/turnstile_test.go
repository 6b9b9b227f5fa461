package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"careers-gateway/internal/config"
	"careers-gateway/internal/logging"
)

func newTestClient(t *testing.T, env, secret string, handler http.HandlerFunc) (*Client, *int64) {
	t.Helper()

	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Environment = env
	cfg.Turnstile.SecretKey = secret
	cfg.Turnstile.VerifyURL = srv.URL

	c := NewClient(cfg)
	c.logger = logging.NewNopLogger()
	return c, &calls
}

func TestVerify_Success(t *testing.T) {
	c, calls := newTestClient(t, config.EnvProduction, "secret", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		assert.Equal(t, "tok", r.PostForm.Get("response"))
		assert.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))
		w.Write([]byte(`{"success":true,"hostname":"careers.example.com"}`))
	})

	assert.True(t, c.Verify(context.Background(), "tok", "203.0.113.7"))
	assert.EqualValues(t, 1, *calls)
}

func TestVerify_Rejected(t *testing.T) {
	c, _ := newTestClient(t, config.EnvProduction, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	})

	assert.False(t, c.Verify(context.Background(), "bad", "1.1.1.1"))
}

func TestVerify_FailsClosedOnUpstreamErrors(t *testing.T) {
	c, _ := newTestClient(t, config.EnvProduction, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.False(t, c.Verify(context.Background(), "tok", ""))

	c, _ = newTestClient(t, config.EnvProduction, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	assert.False(t, c.Verify(context.Background(), "tok", ""))
}

func TestVerify_ProductionWithoutSecret(t *testing.T) {
	c, calls := newTestClient(t, config.EnvProduction, "", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	c.bypass = true

	assert.False(t, c.Verify(context.Background(), "tok", ""), "bypass must not apply in production")
	assert.EqualValues(t, 0, *calls)
}

func TestVerify_DevelopmentSkips(t *testing.T) {
	c, calls := newTestClient(t, config.EnvDevelopment, "", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	})
	assert.True(t, c.Verify(context.Background(), "anything", ""))

	c.secret = "secret"
	c.bypass = true
	assert.True(t, c.Verify(context.Background(), "anything", ""))
	assert.EqualValues(t, 0, *calls)

	c.bypass = false
	assert.False(t, c.Verify(context.Background(), "anything", ""), "configured secret is enforced in development")
	assert.EqualValues(t, 1, *calls)
}
