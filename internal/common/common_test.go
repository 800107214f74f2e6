package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_URL", "file.db")
	t.Setenv("MAX_PAGES", "3")
	t.Setenv("OPENAI_TIMEOUT", "15s")
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("RENDER_DPI", "not-a-number")

	cfg := LoadConfig()
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "file.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Extraction.MaxPages != 3 || cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("extraction = %+v llm timeout = %v", cfg.Extraction, cfg.LLM.Timeout)
	}
	if cfg.Render.DPI != 144 {
		t.Errorf("bad int should keep default, got %d", cfg.Render.DPI)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Store: StoreConfig{Driver: "memory"}, LLM: LLMConfig{APIKey: "k"}}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dsn", func(c *Config) { c.Store.Driver = "postgres" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"missing api key", func(c *Config) { c.LLM.APIKey = "" }},
		{"negative pages", func(c *Config) { c.Extraction.MaxPages = -1 }},
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			var appErr *AppError
			if !errors.As(err, &appErr) || appErr.Code != "CONFIG_ERROR" || !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("load: %w", ErrNotFound), codes.NotFound},
		{NewAppError("X", "bad", ErrInvalidInput), codes.InvalidArgument},
		{NewValidator().Field("key", "", Required).Error(), codes.InvalidArgument},
		{ErrConflict, codes.FailedPrecondition},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tt := range tests {
		if got := status.Code(ToStatus(tt.err)); got != tt.want {
			t.Errorf("ToStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if ToStatus(nil) != nil {
		t.Error("ToStatus(nil) should be nil")
	}
}

func TestLengthRule(t *testing.T) {
	v := NewValidator().
		Field("short", "", Length(1, 3)).
		Field("long", "abcd", Length(1, 3)).
		Field("ok", "abc", Length(1, 3))
	if got := len(v.Errors()); got != 2 {
		t.Fatalf("errors = %v", v.Errors())
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithResultID(WithRequestID(context.Background(), "req"), "res")
	if RequestIDFromContext(ctx) != "req" || ResultIDFromContext(ctx) != "res" {
		t.Fatal("context values lost")
	}
	if RequestIDFromContext(context.Background()) != "" {
		t.Fatal("expected empty request id")
	}

	c, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	if _, ok := c.Deadline(); ok {
		t.Error("zero timeout should not set a deadline")
	}
}
