package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  method  ", Value: "  GET  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "method" || fields[0].String != "GET" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestRequestFields(t *testing.T) {
	fields := RequestFields("POST", "http://localhost/api/auth/login", "")
	if len(fields) != 2 {
		t.Fatalf("expected request id to be omitted, got %d fields", len(fields))
	}

	if fields[0].Key != FieldMethod || fields[1].Key != FieldURL {
		t.Fatalf("unexpected keys: %q %q", fields[0].Key, fields[1].Key)
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if got := entries[0].ContextMap()["foo"]; got != "bar" {
		t.Fatalf("expected field to be bar, got %q", got)
	}

	if WithFields(nil, zap.String("baz", "qux")) == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
}

func TestWithAI(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithAI(zap.New(core), "gemini", "model-x").Info("drafted")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "gemini" {
		t.Fatalf("expected provider gemini, got %q", ctx[FieldProvider])
	}
	if ctx[FieldModel] != "model-x" {
		t.Fatalf("expected model model-x, got %q", ctx[FieldModel])
	}

	WithAI(nil, "", "").Info("no fields")
}

func TestConfig(t *testing.T) {
	cfg := config(true, true)
	if cfg.Encoding != "json" {
		t.Fatalf("expected json encoding, got %q", cfg.Encoding)
	}
	if cfg.Level.Level() != zapcore.DebugLevel {
		t.Fatalf("expected debug level, got %s", cfg.Level.Level())
	}
	if cfg.OutputPaths[0] != "stderr" {
		t.Fatalf("logs must not go to stdout, got %v", cfg.OutputPaths)
	}

	if cfg := config(false, false); cfg.Encoding != "console" || cfg.Level.Level() != zapcore.InfoLevel {
		t.Fatalf("unexpected default config: %s %s", cfg.Encoding, cfg.Level.Level())
	}
}
