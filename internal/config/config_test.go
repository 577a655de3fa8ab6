package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.UseMLValidation {
		t.Error("ML validation should be off by default")
	}
	if cfg.DecodeTimeout != 5*time.Second {
		t.Errorf("expected 5s decode timeout, got %s", cfg.DecodeTimeout)
	}
	if cfg.InferTimeout != 2*time.Second {
		t.Errorf("expected 2s inference timeout, got %s", cfg.InferTimeout)
	}
	if cfg.ValidateTimeout != 8*time.Second {
		t.Errorf("expected 8s validation timeout, got %s", cfg.ValidateTimeout)
	}
	if cfg.OCRLocale != "en-US" {
		t.Errorf("expected default locale en-US, got %s", cfg.OCRLocale)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("USE_ML_VALIDATION", "true")
	t.Setenv("INFER_TIMEOUT", "500ms")
	t.Setenv("OCR_ENDPOINT", "http://ocr:5000/recognize")

	cfg := Load()

	if cfg.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.Addr)
	}
	if !cfg.UseMLValidation {
		t.Error("expected ML validation enabled")
	}
	if cfg.InferTimeout != 500*time.Millisecond {
		t.Errorf("expected 500ms inference timeout, got %s", cfg.InferTimeout)
	}
	if cfg.OCREndpoint != "http://ocr:5000/recognize" {
		t.Errorf("unexpected OCR endpoint: %s", cfg.OCREndpoint)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("USE_ML_VALIDATION", "definitely")
	t.Setenv("DECODE_TIMEOUT", "soon")

	cfg := Load()

	if cfg.UseMLValidation {
		t.Error("malformed bool should fall back to default")
	}
	if cfg.DecodeTimeout != 5*time.Second {
		t.Errorf("malformed duration should fall back to 5s, got %s", cfg.DecodeTimeout)
	}
}
