package dispatch

import (
	"TTSApp/internal/service/selector"
	"TTSApp/internal/service/tts"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrEmptyText — после обрезки пробелов текст пуст; запрос не отправляется.
	ErrEmptyText = errors.New("dispatch: empty text")
	// ErrNoSelection — не выбран вендор или голос (пустой каталог).
	ErrNoSelection = errors.New("dispatch: no vendor or voice selected")
)

// Dispatcher выбирает бэкенд по вендору и выполняет один запрос синтеза.
type Dispatcher struct {
	fallback tts.Synthesizer
	backends map[string]tts.Synthesizer
	logger   *zap.SugaredLogger
}

// New создаёт диспетчер. fallback обслуживает всех вендоров без собственного бэкенда
// (удалённый TTS-сервис).
func New(fallback tts.Synthesizer, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{fallback: fallback, backends: map[string]tts.Synthesizer{}, logger: logger}
}

// Register назначает отдельный бэкенд вендору.
func (d *Dispatcher) Register(vendor string, s tts.Synthesizer) *Dispatcher {
	d.backends[vendor] = s
	return d
}

func (d *Dispatcher) backend(vendor string) tts.Synthesizer {
	if s, ok := d.backends[vendor]; ok {
		return s
	}
	return d.fallback
}

// Synthesize проверяет предусловия и выполняет запрос. Повторов нет.
func (d *Dispatcher) Synthesize(ctx context.Context, text string, sel selector.SelectedVoice, format tts.Format) (*tts.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if !sel.IsSet() {
		return nil, ErrNoSelection
	}
	if _, err := tts.ParseFormat(string(format)); err != nil {
		return nil, err
	}
	s := d.backend(sel.Vendor)
	if s == nil {
		return nil, fmt.Errorf("%w: no backend for vendor %q", ErrNoSelection, sel.Vendor)
	}

	audio, err := s.Synthesize(ctx, tts.Request{
		Vendor: sel.Vendor,
		Voice:  sel.Voice.ID,
		Format: format,
		Text:   text,
	})
	if err != nil {
		if d.logger != nil {
			d.logger.Errorw("Error calling TTS API", "vendor", sel.Vendor, "voice", sel.Voice.ID, "format", format, "error", err)
		}
		return nil, err
	}
	return audio, nil
}
