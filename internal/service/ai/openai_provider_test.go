package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestOpenAIProviderComplete(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Dạ, em nghe ạ!"}},
			},
		})
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(srv.URL, "sk-test", "gpt-4o-mini")
	params := Params{
		Temperature:      Float32(0.6),
		FrequencyPenalty: Float32(0.2),
		JSONResponse:     true,
	}

	got, err := provider.Complete(context.Background(), []*schema.Message{
		schema.SystemMessage("persona"),
		schema.UserMessage("xin chào"),
	}, params)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if got != "Dạ, em nghe ạ!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.6 {
		t.Fatalf("temperature not sent: %+v", gotReq.Temperature)
	}
	if gotReq.FrequencyPenalty == nil || *gotReq.FrequencyPenalty != 0.2 {
		t.Fatalf("frequency penalty not sent: %+v", gotReq.FrequencyPenalty)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Fatalf("response format not sent: %+v", gotReq.ResponseFormat)
	}
}

func TestOpenAIProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded with secret details", http.StatusBadGateway)
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(srv.URL, "sk-test", "gpt-4o-mini")
	_, err := provider.Complete(context.Background(), []*schema.Message{schema.UserMessage("hi")}, Params{})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
