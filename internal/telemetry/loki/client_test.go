package loki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestNewClient_EmptyURL(t *testing.T) {
	if _, err := NewClient("  ", nil); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestClient_PushEventJSON(t *testing.T) {
	var got PushRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ts := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	raw := []byte(`{"eventType":"transfer.completed","deviceHandle":"dev-B","source":"festival-api","createdAt":"2026-07-01T12:00:00Z"}`)
	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if path != "/loki/api/v1/push" {
		t.Errorf("path = %q", path)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	s := got.Streams[0]
	if s.Stream["job"] != DefaultJob || s.Stream["event_type"] != "transfer.completed" || s.Stream["source"] != "festival-api" {
		t.Errorf("labels = %v", s.Stream)
	}
	if _, ok := s.Stream["device_handle"]; ok {
		t.Error("device handle must not be a label")
	}
	if s.Values[0][0] != strconv.FormatInt(ts.UnixNano(), 10) {
		t.Errorf("timestamp = %s, want %d", s.Values[0][0], ts.UnixNano())
	}
}

func TestClient_PushNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	c, _ := NewClient(srv.URL, srv.Client())
	if err := c.PushEventJSON(context.Background(), []byte("not json")); err == nil {
		t.Error("expected error on 400")
	}
}
