package google

import (
	"TTSApp/internal/config"
	"TTSApp/internal/service/tts"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Client реализует синтез речи через Google Cloud Text-to-Speech.
// SDK-клиент создаётся при первом обращении и переиспользуется до Close.
type Client struct {
	cfg    config.GoogleTTSConfig
	logger *zap.SugaredLogger

	mu  sync.Mutex
	sdk *gctts.Client
}

func New(cfg config.GoogleTTSConfig, logger *zap.SugaredLogger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

func (c *Client) client(ctx context.Context) (*gctts.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk != nil {
		return c.sdk, nil
	}
	// Учётные данные по ADC (GOOGLE_APPLICATION_CREDENTIALS выставляется в config.Validate)
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("google tts: ADC credentials not found: %w", err)
	}
	sdk, err := gctts.NewClient(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}
	c.sdk = sdk
	return sdk, nil
}

// Synthesize выполняет запрос к Google TTS. Язык берётся из префикса имени голоса (en-US-Standard-C → en-US).
func (c *Client) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	encoding, err := audioEncoding(req.Format)
	if err != nil {
		return nil, err
	}
	sdk, err := c.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrTransport, err)
	}

	audio := &ttspb.AudioConfig{
		AudioEncoding: encoding,
		SpeakingRate:  c.cfg.SpeakingRate,
	}
	r := &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Text{Text: req.Text}},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: LanguageOf(req.Voice),
			Name:         req.Voice,
		},
		AudioConfig: audio,
	}

	started := time.Now()
	resp, err := sdk.SynthesizeSpeech(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tts.ErrTransport, err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, fmt.Errorf("%w: google returned empty audio", tts.ErrMalformedResponse)
	}
	if c.logger != nil {
		c.logger.Infow("Google TTS synthesize completed", "voice", req.Voice, "took", time.Since(started).String())
	}
	return tts.NewAudio(resp.GetAudioContent(), req.Format), nil
}

// Close освобождает gRPC-соединение.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sdk == nil {
		return nil
	}
	err := c.sdk.Close()
	c.sdk = nil
	return err
}

// LINEAR16 приходит с WAV-заголовком, его можно отдавать как wav.
func audioEncoding(f tts.Format) (ttspb.AudioEncoding, error) {
	switch f {
	case tts.FormatMP3:
		return ttspb.AudioEncoding_MP3, nil
	case tts.FormatWAV:
		return ttspb.AudioEncoding_LINEAR16, nil
	default:
		return ttspb.AudioEncoding_AUDIO_ENCODING_UNSPECIFIED, fmt.Errorf("%w: %q", tts.ErrUnsupportedFormat, f)
	}
}

// LanguageOf выделяет код языка из имени голоса Google.
func LanguageOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}
