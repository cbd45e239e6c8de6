// Package playback хранит состояние воспроизведения для каждого сообщения.
// Один бит на сообщение: играет / не играет. Сообщения могут звучать одновременно.
package playback

import (
	"TTSApp/internal/service/tts"
	"errors"
	"sync"
)

var ErrClosed = errors.New("playback: panel closed")

// Handle — запущенная дорожка.
type Handle interface {
	Pause()
	Resume()
	Stop()
}

// Engine запускает дорожку; onEnd вызывается один раз при естественном окончании или Stop.
// onEnd может вызываться из чужой горутины.
type Engine interface {
	Start(format tts.Format, data []byte, onEnd func()) (Handle, error)
}

// Source отдаёт аудиоданные сообщения.
type Source func() ([]byte, error)

// Panel — переключатель play/pause одного сообщения.
type Panel struct {
	id       int64
	format   tts.Format
	source   Source
	engine   Engine
	onChange func(id int64, playing bool)

	mu      sync.Mutex
	handle  Handle
	playing bool
	gen     uint64
	closed  bool
}

// NewPanel создаёт панель. onChange может быть nil.
func NewPanel(id int64, format tts.Format, source Source, engine Engine, onChange func(id int64, playing bool)) *Panel {
	return &Panel{id: id, format: format, source: source, engine: engine, onChange: onChange}
}

// Toggle: пауза → воспроизведение (старт или продолжение), воспроизведение → пауза.
// Возвращает новое состояние.
func (p *Panel) Toggle() (bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, ErrClosed
	}

	switch {
	case p.playing:
		p.handle.Pause()
		p.playing = false
	case p.handle != nil:
		p.handle.Resume()
		p.playing = true
	default:
		data, err := p.source()
		if err != nil {
			p.mu.Unlock()
			return false, err
		}
		p.gen++
		gen := p.gen
		h, err := p.engine.Start(p.format, data, func() { p.ended(gen) })
		if err != nil {
			p.mu.Unlock()
			return false, err
		}
		p.handle = h
		p.playing = true
	}
	playing := p.playing
	p.mu.Unlock()

	p.notify(playing)
	return playing, nil
}

// Playing — текущее состояние.
func (p *Panel) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// ended — естественный конец дорожки: состояние сбрасывается без участия пользователя,
// следующий Toggle начнёт сначала. Устаревшие поколения игнорируются.
func (p *Panel) ended(gen uint64) {
	p.mu.Lock()
	if gen != p.gen || p.handle == nil {
		p.mu.Unlock()
		return
	}
	p.handle = nil
	wasPlaying := p.playing
	p.playing = false
	p.mu.Unlock()

	if wasPlaying {
		p.notify(false)
	}
}

// Close останавливает дорожку; дальнейшие Toggle возвращают ErrClosed.
func (p *Panel) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.gen++
	h := p.handle
	p.handle = nil
	p.playing = false
	p.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

func (p *Panel) notify(playing bool) {
	if p.onChange != nil {
		p.onChange(p.id, playing)
	}
}
