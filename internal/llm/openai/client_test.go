package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/llm"
	"github.com/joseph-ayodele/docs-extractor/internal/schema"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pageRequest() llm.PageRequest {
	return llm.PageRequest{
		DocumentType: "invoice",
		PageNumber:   1,
		TotalPages:   2,
		Image:        llm.PageImage{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"},
		Schema: schema.Schema{
			{Key: "invoice_number", Label: "Invoice", Enabled: true, Type: constants.FieldTypeString},
			{Key: "total", Label: "Total", Enabled: true, Type: constants.FieldTypeNumber},
		},
	}
}

func completion(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return b
}

func TestExtractPage_SendsVisionRequest(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write(completion(`{"invoice_number":{"value":"A-1"},"total":{"value":"99.00"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, quietLogger())
	res, raw, err := c.ExtractPage(context.Background(), pageRequest())
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if gotAuth != "Bearer k" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if res.Header["invoice_number"].Value != "A-1" || res.Header["total"].Value != float64(99) {
		t.Errorf("result = %+v", res.Header)
	}
	if len(raw) == 0 {
		t.Error("raw answer not returned")
	}

	msgs := gotBody["messages"].([]any)
	user := msgs[1].(map[string]any)["content"].([]any)
	img := user[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(img, "data:image/jpeg;base64,") {
		t.Errorf("image url = %s", img)
	}
	text := user[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "page 1 of 2") {
		t.Errorf("prompt = %s", text)
	}
}

func TestExtractPage_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload []byte
	}{
		{"http 500", http.StatusInternalServerError, []byte(`{"error":"boom"}`)},
		{"no choices", http.StatusOK, []byte(`{"choices":[]}`)},
		{"not json", http.StatusOK, completion("sorry, no")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.payload)
			}))
			defer srv.Close()

			c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, quietLogger())
			_, _, err := c.ExtractPage(context.Background(), pageRequest())
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestExtractPage_WrongTypesBecomeNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completion(`{"total":{"value":true},"invoice_number":{"value":[1]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, quietLogger())
	res, _, err := c.ExtractPage(context.Background(), pageRequest())
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if !res.Header["total"].IsNull() || !res.Header["invoice_number"].IsNull() {
		t.Errorf("result = %+v", res.Header)
	}
}

func TestExtractPage_EmptyImage(t *testing.T) {
	c := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"}, quietLogger())
	req := pageRequest()
	req.Image.Data = nil
	if _, _, err := c.ExtractPage(context.Background(), req); err == nil {
		t.Fatal("expected error")
	}
}
