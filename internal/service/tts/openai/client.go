// Package openai — синтез речи через OpenAI Audio API (POST /audio/speech).
package openai

import (
	"TTSApp/internal/config"
	"TTSApp/internal/service/tts"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

const maxAudioBytes = 64 << 20

// Client отдаёт готовый файл в запрошенном формате, без конверта.
type Client struct {
	client oai.Client
	cfg    config.OpenAITTSConfig
	logger *zap.SugaredLogger
}

// New создаёт клиента. Повторы SDK выключены: одна отправка — один запрос.
// opts дописываются последними (тесты подменяют транспорт).
func New(cfg config.OpenAITTSConfig, logger *zap.SugaredLogger, opts ...option.RequestOption) *Client {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		base = append(base, option.WithBaseURL(u))
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = oai.SpeechModelGPT4oMiniTTS
	}
	return &Client{client: oai.NewClient(append(base, opts...)...), cfg: cfg, logger: logger}
}

func responseFormat(f tts.Format) (oai.AudioSpeechNewParamsResponseFormat, error) {
	switch f {
	case tts.FormatMP3:
		return oai.AudioSpeechNewParamsResponseFormatMP3, nil
	case tts.FormatWAV:
		return oai.AudioSpeechNewParamsResponseFormatWAV, nil
	default:
		return "", fmt.Errorf("%w: %q", tts.ErrUnsupportedFormat, f)
	}
}

// Synthesize выполняет один запрос к /audio/speech.
func (c *Client) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("openai tts: empty API key (set OPENAI_API_KEY in .env/ENV or pass via flag)")
	}
	rf, err := responseFormat(req.Format)
	if err != nil {
		return nil, err
	}

	params := oai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          c.cfg.Model,
		Voice:          oai.AudioSpeechNewParamsVoice(req.Voice),
		ResponseFormat: rf,
	}
	if s := strings.TrimSpace(c.cfg.Instructions); s != "" {
		params.Instructions = oai.String(s)
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: openai status=%d, %s", tts.ErrTransport, apiErr.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %w", tts.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", tts.ErrTransport, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: openai returned empty audio", tts.ErrMalformedResponse)
	}
	if c.logger != nil {
		c.logger.Infow("OpenAI TTS synthesize completed", "model", c.cfg.Model, "voice", req.Voice, "bytes", len(data))
	}
	return tts.NewAudio(data, req.Format), nil
}
