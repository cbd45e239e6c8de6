package remote

import (
	"TTSApp/internal/service/tts"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// PayloadPath — путь к base64-аудио в JSON-конверте ответа.
const PayloadPath = "response.data"

// maxResponseBytes ограничивает чтение тела ответа (JSON с base64).
const maxResponseBytes = 32 << 20

var ErrNoBaseURL = errors.New("remote tts: empty base url (set TTS_SERVER_URL)")

// Client обращается к удалённому TTS-сервису:
// GET {baseURL}/{vendor}?voice=..&format=..&text=.. → {"response":{"data":"<base64>"}}.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.SugaredLogger
}

// New создаёт клиента. Таймаут намеренно не задаётся: запрос живёт, пока жив ctx.
func New(baseURL string, logger *zap.SugaredLogger) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Transport: &loggingTransport{logger: logger}}, logger)
}

// NewWithHTTPClient — то же с явным http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client, logger *zap.SugaredLogger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), http: hc, logger: logger}
}

// RequestURL собирает адрес запроса. Текст экранируется целиком.
func (c *Client) RequestURL(req tts.Request) (string, error) {
	if c.baseURL == "" {
		return "", ErrNoBaseURL
	}
	return fmt.Sprintf("%s/%s?voice=%s&format=%s&text=%s",
		c.baseURL,
		url.PathEscape(req.Vendor),
		url.QueryEscape(req.Voice),
		url.QueryEscape(string(req.Format)),
		url.QueryEscape(req.Text),
	), nil
}

// Synthesize выполняет один запрос без повторов и декодирует аудио из ответа.
func (c *Client) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	u, err := c.RequestURL(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrTransport, err)
	}
	if c.logger != nil {
		c.logger.Infow("Sending TTS request", "vendor", req.Vendor, "voice", req.Voice, "format", req.Format, "chars", len([]rune(req.Text)))
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", tts.ErrTransport, err)
	}
	hr.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", tts.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d, body=%s", tts.ErrTransport, resp.StatusCode, snippet(body))
	}

	data, err := DecodeEnvelope(body)
	if err != nil {
		if c.logger != nil {
			c.logger.Errorw("No audio data received from the API", "error", err, "body", snippet(body))
		}
		return nil, err
	}
	if c.logger != nil {
		c.logger.Infow("TTS request completed", "status", resp.StatusCode, "bytes", len(data), "took", time.Since(started).String())
	}
	return tts.NewAudio(data, req.Format), nil
}

// DecodeEnvelope достаёт и декодирует base64-аудио из JSON-ответа.
func DecodeEnvelope(body []byte) ([]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", tts.ErrMalformedResponse)
	}
	field := gjson.GetBytes(body, PayloadPath)
	if field.Type != gjson.String || strings.TrimSpace(field.Str) == "" {
		return nil, fmt.Errorf("%w: missing %s", tts.ErrMalformedResponse, PayloadPath)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(field.Str))
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode: %w", tts.ErrMalformedResponse, err)
	}
	return data, nil
}

func snippet(b []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
