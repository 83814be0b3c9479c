package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "INGEST_QUEUE", "STAGING_DIR", "RABBITMQ_URL", "EDIT_MAX_BYTES", "SMTP_PORT", "INGEST_EMBEDDED"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.HTTPAddr != ":8000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.IngestQueue != "memory" || !cfg.IngestEmbedded {
		t.Fatalf("ingest defaults = %q embedded=%v", cfg.IngestQueue, cfg.IngestEmbedded)
	}
	if cfg.StagingDir != "./staging" {
		t.Fatalf("StagingDir = %q", cfg.StagingDir)
	}
	if cfg.EditMaxBytes != 32<<20 {
		t.Fatalf("EditMaxBytes = %d", cfg.EditMaxBytes)
	}
	if cfg.SMTPTLS {
		t.Fatalf("SMTPTLS should default off without port 465")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INGEST_QUEUE", "RabbitMQ")
	t.Setenv("INGEST_EMBEDDED", "no")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("RABBITMQ_USER", "svc user")
	t.Setenv("RABBITMQ_PASSWORD", "p@ss")
	t.Setenv("RABBITMQ_HOST", "mq")
	t.Setenv("RABBITMQ_PORT", "5673")
	t.Setenv("RABBITMQ_VHOST", "/")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("SHARE_RATE", "2.5")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("APP_BASE_URL", "https://share.example.com/")
	t.Setenv("HTTP_MAX_CONNS", "not-a-number")

	cfg := Load()
	if cfg.IngestQueue != "rabbitmq" || cfg.IngestEmbedded {
		t.Fatalf("ingest = %q embedded=%v", cfg.IngestQueue, cfg.IngestEmbedded)
	}
	if want := "amqp://svc%20user:p@ss@mq:5673/%2F"; cfg.RabbitMQURL != want {
		t.Fatalf("RabbitMQURL = %q, want %q", cfg.RabbitMQURL, want)
	}
	if cfg.StoreTimeout != 250*time.Millisecond {
		t.Fatalf("StoreTimeout = %v", cfg.StoreTimeout)
	}
	if cfg.ShareRate != 2.5 {
		t.Fatalf("ShareRate = %v", cfg.ShareRate)
	}
	if !cfg.SMTPTLS {
		t.Fatalf("port 465 should imply implicit TLS")
	}
	if cfg.AppBaseURL != "https://share.example.com" {
		t.Fatalf("AppBaseURL = %q", cfg.AppBaseURL)
	}
	if cfg.HTTPMaxConns != 0 {
		t.Fatalf("invalid int should fall back, got %d", cfg.HTTPMaxConns)
	}
}
