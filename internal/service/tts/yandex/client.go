package yandex

import (
	"TTSApp/internal/config"
	"TTSApp/internal/service/tts"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const DefaultEndpoint = "https://tts.api.cloud.yandex.net/speech/v1/tts:synthesize"

// Client реализует синтез речи через Yandex SpeechKit (REST v1).
type Client struct {
	http     *http.Client
	endpoint string
	cfg      config.YandexTTSConfig
	logger   *zap.SugaredLogger
}

func New(cfg config.YandexTTSConfig, logger *zap.SugaredLogger) *Client {
	return &Client{http: http.DefaultClient, endpoint: DefaultEndpoint, cfg: cfg, logger: logger}
}

// WithEndpoint подменяет адрес API (тесты, прокси).
func (c *Client) WithEndpoint(endpoint string, hc *http.Client) *Client {
	c.endpoint = endpoint
	if hc != nil {
		c.http = hc
	}
	return c
}

// Synthesize выполняет запрос к Yandex TTS. SpeechKit v1 отдаёт готовый файл только для mp3,
// поэтому wav отклоняется до запроса.
func (c *Client) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("yandex tts: empty API key (set YC_TTS_API_KEY in .env/ENV or pass via flag)")
	}
	if req.Format != tts.FormatMP3 {
		return nil, fmt.Errorf("%w: yandex supports mp3 only, got %q", tts.ErrUnsupportedFormat, req.Format)
	}

	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("voice", req.Voice)
	form.Set("format", string(req.Format))
	if s := strings.TrimSpace(c.cfg.Speed); s != "" {
		form.Set("speed", s)
	}
	if e := strings.ToLower(strings.TrimSpace(c.cfg.Emotion)); e != "" {
		form.Set("emotion", e)
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	hr.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	hr.Header.Set("Authorization", "Api-Key "+c.cfg.APIKey)

	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// В случае ошибки SpeechKit отдаёт текст с описанием
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return nil, fmt.Errorf("%w: yandex status=%d, body=%s", tts.ErrTransport, resp.StatusCode, bytes.TrimSpace(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", tts.ErrTransport, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: yandex returned empty audio", tts.ErrMalformedResponse)
	}
	if c.logger != nil {
		c.logger.Infow("Yandex TTS synthesize completed", "voice", req.Voice, "bytes", len(data))
	}
	return tts.NewAudio(data, req.Format), nil
}
