package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport — сам вызов не удался (сеть, неуспешный HTTP-статус).
	ErrTransport = errors.New("tts: transport failure")
	// ErrMalformedResponse — ответ получен, но нужного поля с аудио нет.
	ErrMalformedResponse = errors.New("tts: malformed response")
	// ErrUnsupportedFormat — формат не поддерживается.
	ErrUnsupportedFormat = errors.New("tts: unsupported audio format")
)

// Format — кодировка результата синтеза.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// ParseFormat разбирает строку формата без учёта регистра.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMP3, FormatWAV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// MIME возвращает MIME-тип для формата.
func (f Format) MIME() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

// Ext — расширение файла без точки.
func (f Format) Ext() string { return string(f) }

// Request — параметры одного синтеза.
type Request struct {
	Vendor string
	Voice  string // идентификатор голоса у вендора
	Format Format
	Text   string
}

// Audio — декодированный результат синтеза.
type Audio struct {
	Data   []byte
	Format Format
	MIME   string
}

// NewAudio помечает данные MIME-типом формата.
func NewAudio(data []byte, f Format) *Audio {
	return &Audio{Data: data, Format: f, MIME: f.MIME()}
}

// Synthesizer абстракция TTS-бэкенда: один запрос — один результат, без повторов.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}
