package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nmhien/vietbistro/backend/internal/model/restaurant"
	"github.com/nmhien/vietbistro/backend/internal/service/ai"
	"github.com/nmhien/vietbistro/backend/internal/service/assistant"
	"github.com/nmhien/vietbistro/backend/internal/service/extract"
	"github.com/nmhien/vietbistro/backend/internal/service/intent"
	"github.com/nmhien/vietbistro/backend/internal/service/prompt"
	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/internal/stream"
)

func setupRouter() (*chi.Mux, *assistant.Controller) {
	store := session.NewMemoryStore()
	gateway := ai.NewGateway(nil, ai.Params{}, time.Second)
	info, tables, items := restaurant.Seed()

	controller := assistant.New(
		store,
		intent.NewKeywordClassifier(),
		extract.NewExtractor(gateway),
		prompt.NewComposer(restaurant.NewMemoryStore(info, tables, items)),
		gateway,
		stream.NewDispatcher(3, 0),
	)

	r := chi.NewRouter()
	New(controller).RegisterRoutes(r)
	return r, controller
}

func postJSON(r http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func initializedSession(t *testing.T, r http.Handler) string {
	t.Helper()

	resp := postJSON(r, "/chat/initialize", map[string]string{"visitorId": "v1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("initialize failed: %d %s", resp.Code, resp.Body.String())
	}

	var decoded struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode initialize response: %v", err)
	}
	if decoded.Session.ID == "" {
		t.Fatalf("missing session id in %s", resp.Body.String())
	}
	return decoded.Session.ID
}

func TestInitializeCreatesSession(t *testing.T) {
	r, _ := setupRouter()
	initializedSession(t, r)
}

func TestInitializeEmptyBodyStartsAnonymousSession(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/chat/initialize", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", resp.Code, resp.Body.String())
	}

	var decoded struct {
		Session struct {
			ID        string `json:"id"`
			VisitorID string `json:"visitorId"`
		} `json:"session"`
	}
	json.Unmarshal(resp.Body.Bytes(), &decoded)
	if decoded.Session.ID == "" || decoded.Session.VisitorID == "" {
		t.Fatalf("anonymous session not provisioned: %s", resp.Body.String())
	}
}

func TestInitializeResumesExistingSession(t *testing.T) {
	r, _ := setupRouter()
	id := initializedSession(t, r)

	resp := postJSON(r, "/chat/initialize", map[string]string{"visitorId": "v1", "sessionId": id})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var decoded struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	json.Unmarshal(resp.Body.Bytes(), &decoded)
	if decoded.Session.ID != id {
		t.Fatalf("expected resumed session %s, got %s", id, decoded.Session.ID)
	}
}

func TestMessageAckAndHistory(t *testing.T) {
	r, controller := setupRouter()
	id := initializedSession(t, r)

	resp := postJSON(r, "/chat/message", map[string]string{
		"sessionId": id,
		"message":   "tôi muốn đặt bàn cho 4 người",
	})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", resp.Code, resp.Body.String())
	}

	var ack assistant.Ack
	if err := json.Unmarshal(resp.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Intent != "reservation" {
		t.Fatalf("expected reservation intent, got %s", ack.Intent)
	}

	controller.Wait()

	req := httptest.NewRequest(http.MethodGet, "/chat/"+id, nil)
	getResp := httptest.NewRecorder()
	r.ServeHTTP(getResp, req)
	if getResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.Code)
	}

	var decoded struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	json.Unmarshal(getResp.Body.Bytes(), &decoded)
	if len(decoded.Messages) != 2 {
		t.Fatalf("expected user+assistant messages, got %d", len(decoded.Messages))
	}
	if decoded.Messages[0].Role != "user" || decoded.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected roles: %+v", decoded.Messages)
	}
}

func TestMessageValidation(t *testing.T) {
	r, _ := setupRouter()
	id := initializedSession(t, r)

	if resp := postJSON(r, "/chat/message", map[string]string{"message": "hi"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing sessionId: expected 400, got %d", resp.Code)
	}
	if resp := postJSON(r, "/chat/message", map[string]string{"sessionId": id}); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing message: expected 400, got %d", resp.Code)
	}
	if resp := postJSON(r, "/chat/message", map[string]string{"sessionId": "nope", "message": "hi"}); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", resp.Code)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/chat/unknown", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestEndSessionAndRejectFurtherWrites(t *testing.T) {
	r, controller := setupRouter()
	id := initializedSession(t, r)

	req := httptest.NewRequest(http.MethodPut, "/chat/"+id+"/end", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	// Ending twice conflicts.
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPut, "/chat/"+id+"/end", nil))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	// So does messaging a closed session.
	if resp := postJSON(r, "/chat/message", map[string]string{"sessionId": id, "message": "hi"}); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	controller.Wait()

	// History of a closed session stays readable.
	getResp := httptest.NewRecorder()
	r.ServeHTTP(getResp, httptest.NewRequest(http.MethodGet, "/chat/"+id, nil))
	if getResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.Code)
	}
}
