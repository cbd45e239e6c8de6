package openai

import (
	"TTSApp/internal/config"
	"TTSApp/internal/service/tts"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func TestClient_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPost || r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		} else if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth: %s", got)
		}
		req := gjson.ParseBytes(body)
		if req.Get("model").String() != "tts-1" || req.Get("voice").String() != "nova" || req.Get("input").String() != "привет" {
			t.Errorf("unexpected body: %s", body)
		} else if req.Get("instructions").Exists() {
			t.Errorf("instructions must be omitted: %s", body)
		}
		_, _ = w.Write([]byte(req.Get("response_format").String() + "-bytes"))
	}))
	defer srv.Close()

	c := New(config.OpenAITTSConfig{APIKey: "secret", Model: "tts-1", BaseURL: srv.URL}, nil)
	a, err := c.Synthesize(context.Background(), tts.Request{Vendor: "openai", Voice: "nova", Format: tts.FormatMP3, Text: "привет"})
	if err != nil {
		t.Fatal(err)
	} else if string(a.Data) != "mp3-bytes" || a.MIME != "audio/mpeg" {
		t.Fatalf("unexpected audio: %q %s", a.Data, a.MIME)
	}

	a, err = c.Synthesize(context.Background(), tts.Request{Vendor: "openai", Voice: "nova", Format: tts.FormatWAV, Text: "привет"})
	if err != nil {
		t.Fatal(err)
	} else if string(a.Data) != "wav-bytes" || a.Format != tts.FormatWAV {
		t.Fatalf("unexpected audio: %q %s", a.Data, a.Format)
	}
}

func TestClient_Synthesize_DefaultModel(t *testing.T) {
	var model, instructions string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		model = gjson.GetBytes(body, "model").String()
		instructions = gjson.GetBytes(body, "instructions").String()
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	c := New(config.OpenAITTSConfig{APIKey: "secret", BaseURL: srv.URL, Instructions: "Speak slowly"}, nil)
	if _, err := c.Synthesize(context.Background(), tts.Request{Voice: "alloy", Format: tts.FormatMP3, Text: "a"}); err != nil {
		t.Fatal(err)
	}
	if model != "gpt-4o-mini-tts" || instructions != "Speak slowly" {
		t.Fatalf("unexpected params: model=%q instructions=%q", model, instructions)
	}
}

func TestClient_Synthesize_Errors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if gjson.GetBytes(mustRead(r), "input").String() == "empty" {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad voice","type":"invalid_request_error","param":"voice","code":null}}`))
	}))
	defer srv.Close()

	c := New(config.OpenAITTSConfig{APIKey: "secret", BaseURL: srv.URL}, nil)
	if _, err := c.Synthesize(context.Background(), tts.Request{Voice: "x", Format: tts.FormatMP3, Text: "a"}); !errors.Is(err, tts.ErrTransport) {
		t.Fatalf("unexpected error: %v", err)
	} else if calls != 1 {
		t.Fatalf("no retries expected, got %d calls", calls)
	}
	if _, err := c.Synthesize(context.Background(), tts.Request{Voice: "alloy", Format: tts.FormatMP3, Text: "empty"}); !errors.Is(err, tts.ErrMalformedResponse) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Synthesize(context.Background(), tts.Request{Voice: "alloy", Format: "ogg", Text: "a"}); !errors.Is(err, tts.ErrUnsupportedFormat) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := New(config.OpenAITTSConfig{}, nil).Synthesize(context.Background(), tts.Request{Format: tts.FormatMP3}); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func mustRead(r *http.Request) []byte {
	b, _ := io.ReadAll(r.Body)
	return b
}
