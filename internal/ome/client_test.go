package ome_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"colourstream/internal/config"
	"colourstream/internal/ome"
)

func newEngineServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestListStreamsSendsBasicAuth(t *testing.T) {
	var gotAuth string
	server := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/vhosts/default/apps/app/streams" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"statusCode":200,"message":"OK","response":["stream-a","stream-b"]}`)
	})

	client := ome.NewClient(server.URL, "access-token", server.Client())
	streams, err := client.ListStreams(context.Background(), "default", "app")
	if err != nil {
		t.Fatalf("ListStreams failed: %v", err)
	}
	if len(streams) != 2 || streams[0] != "stream-a" {
		t.Fatalf("unexpected streams %v", streams)
	}

	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("access-token"))
	if gotAuth != expected {
		t.Fatalf("expected auth header %q, got %q", expected, gotAuth)
	}
}

func TestGetStreamStats(t *testing.T) {
	server := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statusCode":200,"message":"OK","response":{"totalConnections":3,"totalBytesIn":1024,"totalBytesOut":4096}}`)
	})

	client := ome.NewClient(server.URL, "token", server.Client())
	stats, err := client.GetStreamStats(context.Background(), "default", "app", "stream-a")
	if err != nil {
		t.Fatalf("GetStreamStats failed: %v", err)
	}
	if stats.TotalConnections != 3 || stats.BytesOut != 4096 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestEnvelopeErrorSurfaces(t *testing.T) {
	server := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statusCode":404,"message":"Could not find stream"}`)
	})

	client := ome.NewClient(server.URL, "token", server.Client())
	_, err := client.GetStreamStats(context.Background(), "default", "app", "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Could not find stream") {
		t.Fatalf("expected engine message in error, got %v", err)
	}
}

func TestHTTPErrorSurfaces(t *testing.T) {
	server := newEngineServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	client := ome.NewClient(server.URL, "token", server.Client())
	if err := client.Healthy(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewConfiguredClientRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.OME.Enabled = false
	if client := ome.NewConfiguredClient(&cfg); client != nil {
		t.Fatal("expected nil client when disabled")
	}

	cfg.OME.Enabled = true
	cfg.OME.APIURL = ""
	if client := ome.NewConfiguredClient(&cfg); client != nil {
		t.Fatal("expected nil client without URL")
	}

	cfg.OME.APIURL = "http://localhost:8081"
	cfg.OME.AccessKey = "token"
	if client := ome.NewConfiguredClient(&cfg); client == nil {
		t.Fatal("expected client with credentials")
	}
}
