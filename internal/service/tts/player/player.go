package player

import (
	"TTSApp/internal/service/playback"
	"TTSApp/internal/service/tts"
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Частота микшера: все дорожки ресемплируются к ней, speaker инициализируется один раз.
const sampleRate = beep.SampleRate(44100)

var _ playback.Engine = (*Mixer)(nil)

// Mixer воспроизводит несколько дорожек одновременно через один speaker.
type Mixer struct {
	volumeDB float64

	once    sync.Once
	initErr error
}

// New создаёт микшер без изменения громкости (0 dB).
func New() *Mixer { return &Mixer{} }

// NewWithVolume создаёт микшер с предустановленной громкостью в dB (отрицательные — тише).
func NewWithVolume(db float64) *Mixer { return &Mixer{volumeDB: db} }

func (m *Mixer) init() error {
	m.once.Do(func() {
		m.initErr = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	return m.initErr
}

// Start декодирует данные и ставит дорожку в микшер. onEnd вызывается в отдельной горутине,
// потому что колбэк beep выполняется под блокировкой speaker.
func (m *Mixer) Start(format tts.Format, data []byte, onEnd func()) (playback.Handle, error) {
	if err := m.init(); err != nil {
		return nil, fmt.Errorf("player: speaker init: %w", err)
	}
	streamer, f, err := decode(format, data)
	if err != nil {
		return nil, err
	}

	var s beep.Streamer = streamer
	if f.SampleRate != sampleRate {
		s = beep.Resample(4, f.SampleRate, sampleRate, s)
	}
	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   m.volumeDB,
		Silent:   false,
	}
	t := &track{ctrl: &beep.Ctrl{Streamer: vol}, streamer: streamer}
	speaker.Play(beep.Seq(t.ctrl, beep.Callback(func() {
		go func() {
			t.close()
			if onEnd != nil {
				onEnd()
			}
		}()
	})))
	return t, nil
}

// Play проигрывает поток целиком и возвращается по окончании. Используется утилитами.
func (m *Mixer) Play(format tts.Format, r io.ReadCloser) error {
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	done := make(chan struct{})
	if _, err := m.Start(format, data, func() { close(done) }); err != nil {
		return err
	}
	<-done
	return nil
}

func decode(format tts.Format, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := io.NopCloser(bytes.NewReader(data))
	switch format {
	case tts.FormatWAV:
		return wav.Decode(rc)
	case tts.FormatMP3:
		return mp3.Decode(rc)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q; use mp3 or wav", tts.ErrUnsupportedFormat, format)
	}
}

// track — дорожка в микшере. Поля ctrl меняются только под speaker.Lock.
type track struct {
	ctrl      *beep.Ctrl
	streamer  beep.StreamSeekCloser
	closeOnce sync.Once
}

func (t *track) Pause() {
	speaker.Lock()
	t.ctrl.Paused = true
	speaker.Unlock()
}

func (t *track) Resume() {
	speaker.Lock()
	t.ctrl.Paused = false
	speaker.Unlock()
}

// Stop снимает дорожку: Ctrl без Streamer завершается, Seq доходит до колбэка.
func (t *track) Stop() {
	speaker.Lock()
	t.ctrl.Streamer = nil
	t.ctrl.Paused = false
	speaker.Unlock()
}

func (t *track) close() {
	t.closeOnce.Do(func() { _ = t.streamer.Close() })
}
