package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/pkg/caltime"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

func testFrame() domain.DecodedFrame {
	raw := dcf77.Encode(caltime.FromTimestamp(1740324600, false), dcf77.EncodeFlags{})
	return domain.NewDecodedFrame(raw, 61000, time.UnixMilli(0))
}

func TestWebhookSink_Publish(t *testing.T) {
	var (
		gotAuth string
		gotType string
		gotMeta domain.FrameMeta
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotMeta); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{URL: srv.URL, AuthToken: "secret"}, srv.Client(), log.NewNoopLogger())
	if err := sink.Publish(context.Background(), testFrame()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if gotAuth != "Bearer secret" || gotType != "application/json" {
		t.Errorf("headers = %q, %q", gotAuth, gotType)
	}
	if gotMeta.Timestamp != 1740324600 || gotMeta.Time != "Sun Feb 23 15:30:00 2025" {
		t.Errorf("body = %+v", gotMeta)
	}
}

func TestWebhookSink_NoToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("unexpected Authorization header")
		}
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{URL: srv.URL}, srv.Client(), log.NewNoopLogger())
	if err := sink.Publish(context.Background(), testFrame()); err != nil {
		t.Fatal(err)
	}
}

func TestWebhookSink_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{URL: srv.URL}, srv.Client(), log.NewNoopLogger())
	err := sink.Publish(context.Background(), testFrame())
	if err == nil || !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("Publish() error = %v", err)
	}
}
