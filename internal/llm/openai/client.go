package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/docs-extractor/internal/llm"
)

var _ llm.PageExtractor = (*Client)(nil)

// ExtractPage sends one rendered page image with the page prompt and returns the
// sanitized, schema-validated answer.
func (c *Client) ExtractPage(ctx context.Context, req llm.PageRequest) (llm.PageResult, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	if len(req.Image.Data) == 0 {
		return llm.PageResult{}, nil, errors.New("empty page image")
	}
	schema := req.ResponseSchema
	if schema == nil {
		schema = llm.BuildPageJSONSchema(req.Schema)
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = llm.BuildPagePrompt(req.DocumentType, req.PageNumber, req.TotalPages, req.Schema)
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"document_type", req.DocumentType,
		"page", req.PageNumber,
		"total_pages", req.TotalPages,
		"image_bytes", len(req.Image.Data),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "page_extraction",
				"schema": schema,
				"strict": false,
			},
		},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": prompt},
				{"type": "image_url", "image_url": map[string]any{
					"url":    llm.DataURL(req.Image),
					"detail": c.cfg.ImageDetail,
				}},
			}},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, httpErr := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if httpErr != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "page", req.PageNumber, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PageResult{}, nil, fmt.Errorf("openai: %w", httpErr)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PageResult{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid, "raw", string(raw))
		return llm.PageResult{}, raw, errors.New("no choices in openai response")
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		c.log.Warn("llm.extract.refusal", "req_id", rid, "page", req.PageNumber, "refusal", msg.Refusal)
		return llm.PageResult{}, raw, fmt.Errorf("model refused page %d: %s", req.PageNumber, msg.Refusal)
	}
	content := []byte(strings.TrimSpace(msg.Content))

	cleaned, dropped, err := llm.SanitizePageJSON(content, req.Schema, c.log)
	if err != nil {
		c.log.Error("llm.extract.sanitize_failed",
			"req_id", rid, "page", req.PageNumber, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PageResult{}, content, fmt.Errorf("sanitize failed: %w", err)
	}
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "page", req.PageNumber, "error", err, "content", string(cleaned),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.PageResult{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	out, err := llm.DecodePageResult(cleaned)
	if err != nil {
		return llm.PageResult{}, cleaned, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"page", req.PageNumber,
		"header_fields", len(out.Header),
		"items", len(out.Items),
		"dropped", len(dropped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}
