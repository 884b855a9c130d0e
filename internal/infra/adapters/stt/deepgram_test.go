package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

const deepgramResponse = `{
	"results": {
		"channels": [{
			"alternatives": [{"transcript": "I feel overwhelmed today."}],
			"detected_language": "en"
		}]
	}
}`

func TestTranscribe(t *testing.T) {
	var gotAuth, gotContentType, gotModel, gotDetect string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotModel = r.URL.Query().Get("model")
		gotDetect = r.URL.Query().Get("detect_language")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(deepgramResponse))
	}))
	defer srv.Close()

	d, err := NewDeepgramAdapter("dg-key", srv.URL, "nova-2")
	if err != nil {
		t.Fatalf("NewDeepgramAdapter: %v", err)
	}

	result, err := d.Transcribe(context.Background(), []byte("raw-audio"), "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "I feel overwhelmed today." {
		t.Errorf("text = %q", result.Text)
	}
	if result.Language != "en" {
		t.Errorf("language = %q", result.Language)
	}
	if gotAuth != "Token dg-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotContentType != "audio/webm" {
		t.Errorf("content-type = %q", gotContentType)
	}
	if gotModel != "nova-2" || gotDetect != "true" {
		t.Errorf("query model=%q detect_language=%q", gotModel, gotDetect)
	}
	if string(gotBody) != "raw-audio" {
		t.Errorf("body = %q, audio must be sent raw", gotBody)
	}
}

func TestTranscribeLanguageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"hi"}]}]}}`))
	}))
	defer srv.Close()

	d, _ := NewDeepgramAdapter("k", srv.URL, "")
	result, err := d.Transcribe(context.Background(), []byte("a"), "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Language != "en-US" {
		t.Errorf("language = %q, want fallback en-US", result.Language)
	}
}

func TestTranscribeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d, _ := NewDeepgramAdapter("k", srv.URL, "nova-2")
	if _, err := d.Transcribe(context.Background(), []byte("a"), "audio/webm"); err == nil {
		t.Fatal("expected error on http 400")
	}
}

func TestTranscribeEmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"channels":[]}}`))
	}))
	defer srv.Close()

	d, _ := NewDeepgramAdapter("k", srv.URL, "nova-2")
	if _, err := d.Transcribe(context.Background(), []byte("a"), "audio/webm"); err == nil {
		t.Fatal("expected error on empty channels")
	}
}

func TestTranscribeRejectsEmptyAudio(t *testing.T) {
	d, _ := NewDeepgramAdapter("k", "http://example.invalid", "nova-2")
	if _, err := d.Transcribe(context.Background(), nil, "audio/webm"); err == nil {
		t.Fatal("expected error on empty audio")
	}
}

func TestNewDeepgramAdapterRequiresKey(t *testing.T) {
	if _, err := NewDeepgramAdapter("", "", ""); err == nil {
		t.Fatal("expected error on empty api key")
	}
}
