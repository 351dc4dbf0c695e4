package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyptra/voxwire/internal/events"
	"github.com/calyptra/voxwire/internal/log"
	"github.com/calyptra/voxwire/internal/message"
)

func TestMain(m *testing.M) {
	log.Setup("error") // Suppress logs in tests
	os.Exit(m.Run())
}

// fakeIngestor validates raw input like the sequencer would, without
// dispatching anywhere.
type fakeIngestor struct {
	lastRaw     string
	lastContext string
	lastDialog  string
	status      message.ParseStatus
	pending     int
}

func (f *fakeIngestor) OnDirective(raw string, attachmentContextID string) (string, message.ParseStatus) {
	f.lastRaw = raw
	f.lastContext = attachmentContextID
	if f.status != message.ParseSuccess {
		return "", f.status
	}
	return "m1", message.ParseSuccess
}

func (f *fakeIngestor) SetDialogRequestID(dialogRequestID string) {
	f.lastDialog = dialogRequestID
}

func (f *fakeIngestor) Pending() int { return f.pending }

type fakeRegistry struct{ handlers int }

func (f *fakeRegistry) Handlers() int { return f.handlers }

func newTestServer(apiKey string, ingest *fakeIngestor) (*Server, *events.Hub) {
	hub := events.NewHub(16)
	s := New(Config{Listen: "127.0.0.1:0", APIKey: apiKey},
		ingest, &fakeRegistry{handlers: 3}, hub, log.WithComponent("api-test"))
	return s, hub
}

func TestHealthz(t *testing.T) {
	ingest := &fakeIngestor{status: message.ParseSuccess, pending: 2}
	s, _ := newTestServer("", ingest)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Handlers)
	assert.Equal(t, 2, resp.PendingOrdered)
}

func TestInjectDirective(t *testing.T) {
	raw := `{"directive":{"header":{"namespace":"NS","name":"N","messageId":"m1"},"payload":{}}}`

	t.Run("accepted", func(t *testing.T) {
		ingest := &fakeIngestor{status: message.ParseSuccess}
		s, _ := newTestServer("", ingest)

		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/directives", strings.NewReader(raw)))

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp InjectResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "m1", resp.MessageID)
		assert.Equal(t, "SUCCESS", resp.ParseStatus)
		assert.NotEmpty(t, resp.AttachmentContextID)

		assert.Equal(t, raw, ingest.lastRaw)
		assert.Equal(t, resp.AttachmentContextID, ingest.lastContext)
	})

	t.Run("parse failure", func(t *testing.T) {
		ingest := &fakeIngestor{status: message.ErrorMissingDirectiveKey}
		s, _ := newTestServer("", ingest)

		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/directives", strings.NewReader(`{}`)))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp InjectResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp.MessageID)
		assert.Equal(t, "ERROR_MISSING_DIRECTIVE_KEY", resp.ParseStatus)
	})

	t.Run("empty body", func(t *testing.T) {
		s, _ := newTestServer("", &fakeIngestor{})
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/directives", strings.NewReader("")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized body", func(t *testing.T) {
		s, _ := newTestServer("", &fakeIngestor{})
		big := strings.Repeat("x", maxDirectiveBytes+1)
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/directives", strings.NewReader(big)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestSetDialog(t *testing.T) {
	t.Run("installs the new turn", func(t *testing.T) {
		ingest := &fakeIngestor{lastDialog: "unset"}
		s, _ := newTestServer("", ingest)

		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/dialog",
			strings.NewReader(`{"dialog_request_id":"d2"}`)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "d2", ingest.lastDialog)
	})

	t.Run("empty id clears the turn", func(t *testing.T) {
		ingest := &fakeIngestor{lastDialog: "unset"}
		s, _ := newTestServer("", ingest)

		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/dialog", strings.NewReader(`{}`)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "", ingest.lastDialog)
	})

	t.Run("malformed body", func(t *testing.T) {
		s, _ := newTestServer("", &fakeIngestor{})
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/dialog", strings.NewReader(`{broken`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBearerAuth(t *testing.T) {
	raw := `{"directive":{}}`

	t.Run("missing token", func(t *testing.T) {
		s, _ := newTestServer("secret", &fakeIngestor{})
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/directives", strings.NewReader(raw)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		s, _ := newTestServer("secret", &fakeIngestor{})
		req := httptest.NewRequest("POST", "/v1/directives", strings.NewReader(raw))
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("correct token", func(t *testing.T) {
		s, _ := newTestServer("secret", &fakeIngestor{status: message.ParseSuccess})
		req := httptest.NewRequest("POST", "/v1/directives", strings.NewReader(raw))
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("healthz stays open", func(t *testing.T) {
		s, _ := newTestServer("secret", &fakeIngestor{})
		rec := httptest.NewRecorder()
		s.routes().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestEventsStreamSnapshot(t *testing.T) {
	s, hub := newTestServer("", &fakeIngestor{})
	hub.Publish("directive.received", nil)
	hub.Publish("directive.completed", map[string]string{"message_id": "m1"})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.routes().ServeHTTP(rec, req)
		close(done)
	}()

	// Give the handler a moment to flush the snapshot, then disconnect.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events handler never returned after disconnect")
	}

	body := rec.Body.String()
	assert.Contains(t, body, "event: directive.received")
	assert.Contains(t, body, "event: directive.completed")
	assert.Contains(t, body, `data: {"message_id":"m1"}`)
	assert.Contains(t, body, "id: 1")
	assert.Contains(t, body, "id: 2")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestEventsStreamLastEventID(t *testing.T) {
	s, hub := newTestServer("", &fakeIngestor{})
	hub.Publish("a", nil)
	hub.Publish("b", nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.routes().ServeHTTP(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events handler never returned after disconnect")
	}

	body := rec.Body.String()
	assert.NotContains(t, body, "event: a")
	assert.Contains(t, body, "event: b")
}
