package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nmhien/vietbistro/backend/internal/service/session"
	"github.com/nmhien/vietbistro/backend/internal/stream"
)

func setupServer(t *testing.T) (*httptest.Server, session.Store, *stream.Dispatcher) {
	t.Helper()

	store := session.NewMemoryStore()
	dispatcher := stream.NewDispatcher(3, 0)

	r := chi.NewRouter()
	New(store, dispatcher).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, dispatcher
}

func TestStreamUnknownSessionReturns404(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/chat/missing/stream")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestStreamDeliversReplyEvents(t *testing.T) {
	srv, store, dispatcher := setupServer(t)
	sess, err := store.Create(context.Background(), session.Identity{VisitorID: "v1"})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/chat/"+sess.ID+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("wrong content type: %s", ct)
	}

	reader := bufio.NewReader(resp.Body)

	// First frame is the status handshake; once it arrives the subscription
	// is live and publishing is safe.
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read handshake: %v", err)
	}
	if !strings.HasPrefix(line, "event: status") {
		t.Fatalf("expected status event, got %q", line)
	}

	go func() {
		dispatcher.Thinking(sess.ID)
		dispatcher.StreamReply(sess.ID, "dạ em nghe ạ")
	}()

	sawThinking := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if strings.Contains(line, `"thinking"`) {
			sawThinking = true
		}
		if strings.Contains(line, `"complete"`) {
			if !sawThinking {
				t.Fatal("complete arrived before thinking")
			}
			if !strings.Contains(line, "dạ em nghe ạ") {
				t.Fatalf("final content missing: %q", line)
			}
			return
		}
	}
}
