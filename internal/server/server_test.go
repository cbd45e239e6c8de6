package server

import (
	"TTSApp/internal/app/session"
	"TTSApp/internal/catalog"
	"TTSApp/internal/service/audio"
	"TTSApp/internal/service/dispatch"
	"TTSApp/internal/service/tts/remote"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// newTestServer поднимает фейковый TTS-сервис и веб-интерфейс поверх него.
func newTestServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	upstreamStatus := &atomic.Int32{}
	upstreamStatus.Store(http.StatusOK)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code := int(upstreamStatus.Load()); code != http.StatusOK {
			http.Error(w, "upstream failure", code)
			return
		}
		data := base64.StdEncoding.EncodeToString([]byte("ID3:" + r.URL.Query().Get("text")))
		_, _ = io.WriteString(w, `{"response":{"data":"`+data+`"}}`)
	}))
	t.Cleanup(upstream.Close)

	logger := zap.NewNop().Sugar()
	c, err := catalog.Load(catalog.DefaultSources("", ""))
	if err != nil {
		t.Fatal(err)
	}
	store, err := audio.NewFileStore(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Options{
		Catalog:    c,
		Dispatcher: dispatch.New(remote.New(upstream.URL, logger), logger),
		Store:      store,
		Logger:     logger,
	})
	t.Cleanup(func() { _ = sess.Close() })

	s := New("127.0.0.1:0", sess, logger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(s.hub.Close)
	return ts, upstreamStatus
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func readEvent(t *testing.T, conn *websocket.Conn, typ string) gjson.Result {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if ev := gjson.ParseBytes(msg); ev.Get("type").String() == typ {
			return ev.Get("data")
		}
	}
}

func TestState(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/api/state", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	st := gjson.ParseBytes(body)
	if st.Get("vendors.0.id").String() != catalog.VendorPolly || st.Get("vendors.1.id").String() != catalog.VendorAzure {
		t.Fatalf("unexpected vendors: %s", st.Get("vendors").Raw)
	} else if st.Get("selector.buttonText").String() == "Select Voice" {
		t.Fatal("default voice expected")
	} else if st.Get("format").String() != "mp3" || st.Get("messages.#").Int() != 0 {
		t.Fatalf("unexpected state: %s", body)
	}
}

func TestSelectorFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/vendor", `{"vendor":"azure"}`)
	if resp.StatusCode != http.StatusOK || gjson.GetBytes(body, "selector.vendor").String() != "azure" {
		t.Fatalf("unexpected vendor response: %d %s", resp.StatusCode, body)
	}
	_, body = do(t, http.MethodPost, ts.URL+"/api/picker/open", "")
	if !gjson.GetBytes(body, "selector.pickerOpen").Bool() {
		t.Fatal("picker must be open")
	}
	lang := gjson.GetBytes(body, "selector.languages.0.language").String()
	_, body = do(t, http.MethodPost, ts.URL+"/api/language", `{"language":"`+lang+`"}`)
	voice := gjson.GetBytes(body, "selector.voices.0.value").String()
	if voice == "" {
		t.Fatalf("no voices for %s: %s", lang, body)
	}
	_, body = do(t, http.MethodPost, ts.URL+"/api/voice", `{"voice":"`+voice+`"}`)
	if gjson.GetBytes(body, "selector.selected.voice.value").String() != voice || gjson.GetBytes(body, "selector.pickerOpen").Bool() {
		t.Fatalf("unexpected selection: %s", body)
	}

	if resp, _ := do(t, http.MethodPost, ts.URL+"/api/vendor", `{"vendor":"nope"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, ts.URL+"/api/format", `{"format":"ogg"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, ts.URL+"/api/vendor", `{`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestSubmitAndDownload(t *testing.T) {
	ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readEvent(t, conn, session.EventState)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/submit", `{"text":"Hello, World! — 2024"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d %s", resp.StatusCode, body)
	}
	id := gjson.GetBytes(body, "id").String()

	ev := readEvent(t, conn, session.EventMessageAppended)
	if ev.Get("message.id").String() != id || !ev.Get("scroll").Bool() || ev.Get("len").Int() != 1 {
		t.Fatalf("unexpected event: %s", ev.Raw)
	}
	if readEvent(t, conn, session.EventInput).Get("text").String() != "" {
		t.Fatal("input must be cleared")
	}

	resp, data := do(t, http.MethodGet, ts.URL+"/api/messages/"+id+"/download", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename=hello-world-2024_`+id+`.mp3` {
		t.Fatalf("unexpected disposition: %s", cd)
	} else if resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Fatalf("unexpected content type: %s", resp.Header.Get("Content-Type"))
	} else if string(data) != "ID3:Hello, World! — 2024" {
		t.Fatalf("unexpected body: %q", data)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/messages/"+id+"/audio", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Fatalf("unexpected audio response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	// Воспроизведение на хосте выключено.
	if resp, _ := do(t, http.MethodPost, ts.URL+"/api/messages/"+id+"/toggle", ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, ts.URL+"/api/messages/1/download", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, ts.URL+"/api/messages/abc/audio", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestSubmitFailures(t *testing.T) {
	ts, upstreamStatus := newTestServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/submit", `{"text":"   "}`)
	if resp.StatusCode != http.StatusBadRequest || gjson.GetBytes(body, "kind").String() != string(session.FailureEmptyText) {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, body)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readEvent(t, conn, session.EventState)

	upstreamStatus.Store(http.StatusInternalServerError)
	resp, body = do(t, http.MethodPost, ts.URL+"/api/submit", `{"text":"keep me"}`)
	if resp.StatusCode != http.StatusBadGateway || gjson.GetBytes(body, "kind").String() != string(session.FailureTransport) {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, body)
	}
	if ev := readEvent(t, conn, session.EventFailure); ev.Get("kind").String() != string(session.FailureTransport) {
		t.Fatalf("unexpected failure event: %s", ev.Raw)
	}

	_, body = do(t, http.MethodGet, ts.URL+"/api/state", "")
	st := gjson.ParseBytes(body)
	if st.Get("input").String() != "keep me" || st.Get("messages.#").Int() != 0 || !st.Get("failure").Exists() {
		t.Fatalf("unexpected state after failure: %s", body)
	}

	// Повтор без тела отправляет сохранённый текст.
	upstreamStatus.Store(http.StatusOK)
	if resp, body := do(t, http.MethodPost, ts.URL+"/api/submit", ""); resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d %s", resp.StatusCode, body)
	}
	_, body = do(t, http.MethodGet, ts.URL+"/api/state", "")
	if gjson.GetBytes(body, "failure").Exists() || gjson.GetBytes(body, "messages.#").Int() != 1 {
		t.Fatalf("failure must be cleared: %s", body)
	}
}

func TestStartStop(t *testing.T) {
	c, _ := catalog.New()
	store, err := audio.NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Options{Catalog: c, Dispatcher: dispatch.New(nil, nil), Store: store})
	defer sess.Close()

	s := New("127.0.0.1:0", sess, zap.NewNop().Sugar())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	resp, body := do(t, http.MethodGet, "http://"+s.Addr()+"/healthz", "")
	if resp.StatusCode != http.StatusOK || gjson.GetBytes(body, "status").String() != "ok" {
		t.Fatalf("unexpected health: %d %s", resp.StatusCode, body)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRun(t *testing.T) {
	c, _ := catalog.New()
	store, err := audio.NewFileStore("", nil)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Options{Catalog: c, Dispatcher: dispatch.New(nil, nil), Store: store})
	s := New("127.0.0.1:0", sess, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, sess.Close) }()

	deadline := time.Now().Add(5 * time.Second)
	for !s.running.Load() || s.Addr() == "127.0.0.1:0" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if resp, _ := do(t, http.MethodGet, "http://"+s.Addr()+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return")
	}
	if s.running.Load() {
		t.Fatal("server must be stopped")
	} else if _, err := sess.SubmitText(context.Background(), "late"); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("session must be closed: %v", err)
	}
}

func TestRun_StartFailureReleases(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	c, _ := catalog.New()
	store, err := audio.NewFileStore("", nil)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Options{Catalog: c, Dispatcher: dispatch.New(nil, nil), Store: store})
	s := New(busy.Addr().String(), sess, zap.NewNop().Sugar())

	var closed atomic.Bool
	err = s.Run(context.Background(), func() error {
		closed.Store(true)
		return sess.Close()
	})
	if err == nil {
		t.Fatal("expected bind error")
	} else if !closed.Load() {
		t.Fatal("closers must run after a failed start")
	}
}

func TestIndex_KeepsMessageNodes(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/", "")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	page := string(body)
	// Событие state не должно пересоздавать <audio> уже показанных сообщений.
	if strings.Contains(page, "list.innerHTML") {
		t.Fatal("message list must not be rebuilt from scratch")
	}
	for _, want := range []string{"function syncMessages(", "'msg-' + m.id", "list.removeChild("} {
		if !strings.Contains(page, want) {
			t.Fatalf("page misses %q", want)
		}
	}
}

func TestSubmit_ConcurrentTexts(t *testing.T) {
	ts, _ := newTestServer(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/api/submit", "application/json", strings.NewReader(fmt.Sprintf(`{"text":"line %d"}`, i)))
			if err != nil {
				errs <- err
				return
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				errs <- fmt.Errorf("line %d: unexpected status %d", i, resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	_, body := do(t, http.MethodGet, ts.URL+"/api/state", "")
	seen := map[string]int{}
	for _, m := range gjson.GetBytes(body, "messages").Array() {
		seen[m.Get("text").String()]++
	}
	for i := 0; i < n; i++ {
		if text := fmt.Sprintf("line %d", i); seen[text] != 1 {
			t.Fatalf("%q appended %d times: %s", text, seen[text], body)
		}
	}
}
