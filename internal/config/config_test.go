package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DeliverySMTP, cfg.DeliveryMethod)
	assert.Equal(t, "localhost", cfg.SMTP.Host)
	assert.Equal(t, 25, cfg.SMTP.Port)
	assert.True(t, cfg.BCCRecipients)
	assert.True(t, cfg.PerformDeliveries)
	assert.False(t, cfg.RaiseDeliveryErrors)
	assert.False(t, cfg.PlainTextMail)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BCC_RECIPIENTS", "false")
	t.Setenv("RAISE_DELIVERY_ERRORS", "1")
	t.Setenv("DELIVERY_METHOD", "ASYNC_SMTP")
	t.Setenv("ASYNC_WORKERS", "4")
	t.Setenv("SMTP_AUTH", "plain")
	t.Setenv("SMTP_USER", "mailer")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BCCRecipients)
	assert.True(t, cfg.RaiseDeliveryErrors)
	assert.Equal(t, DeliveryAsyncSMTP, cfg.DeliveryMethod)
	assert.Equal(t, 4, cfg.AsyncWorkers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"bad bool", map[string]string{"PLAIN_TEXT_MAIL": "maybe"}, "PLAIN_TEXT_MAIL"},
		{"bad port", map[string]string{"SMTP_PORT": "x"}, "SMTP_PORT"},
		{"bad method", map[string]string{"DELIVERY_METHOD": "sendmail"}, "DELIVERY_METHOD"},
		{"bad auth", map[string]string{"SMTP_AUTH": "cram-md5"}, "SMTP_AUTH"},
		{"xoauth2 incomplete", map[string]string{"SMTP_AUTH": "xoauth2", "SMTP_USER": "a@b"}, "SMTP_OAUTH"},
		{"async workers", map[string]string{"DELIVERY_METHOD": "async_smtp", "ASYNC_WORKERS": "0"}, "ASYNC_WORKERS"},
		{"unbuffered async queue", map[string]string{"DELIVERY_METHOD": "async_smtp", "ASYNC_BUFFER": "0"}, "ASYNC_BUFFER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_TestMethodSkipsSMTP(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DELIVERY_METHOD", "test")
	t.Setenv("SMTP_AUTH", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DeliveryTest, cfg.DeliveryMethod)
}
