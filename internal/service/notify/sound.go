// Package notify проигрывает короткие звуки-уведомления на хосте.
package notify

import (
	"TTSApp/internal/service/playback"
	"TTSApp/internal/service/tts"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// SoundNotifier — звук успешной отправки и звук ошибки.
// Пустой путь отключает соответствующий звук.
type SoundNotifier struct {
	logger      *zap.SugaredLogger
	engine      playback.Engine
	pathSuccess string
	pathFailure string

	mu    sync.Mutex
	cache map[string][]byte
}

// NewSoundNotifier создаёт нотификатор. Относительные пути ищутся сначала рядом с бинарём,
// затем от текущего каталога.
func NewSoundNotifier(engine playback.Engine, pathSuccess, pathFailure string, logger *zap.SugaredLogger) *SoundNotifier {
	return &SoundNotifier{
		logger:      logger,
		engine:      engine,
		pathSuccess: resolve(pathSuccess),
		pathFailure: resolve(pathFailure),
		cache:       map[string][]byte{},
	}
}

func resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if exe, err := os.Executable(); err == nil {
		cand := filepath.Join(filepath.Dir(exe), p)
		if _, statErr := os.Stat(cand); statErr == nil {
			return cand
		}
	}
	return filepath.FromSlash(p)
}

// Enabled — есть плеер и хотя бы один звук.
func (n *SoundNotifier) Enabled() bool {
	return n != nil && n.engine != nil && (n.pathSuccess != "" || n.pathFailure != "")
}

// Succeeded — звук успешной отправки. Не блокирует: дорожка запускается асинхронно.
func (n *SoundNotifier) Succeeded() {
	_ = n.play(n.pathSuccess)
}

// Failed — звук ошибки.
func (n *SoundNotifier) Failed() {
	_ = n.play(n.pathFailure)
}

func (n *SoundNotifier) play(path string) error {
	if path == "" || n.engine == nil {
		return nil
	}
	format, err := tts.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		n.logger.Warnw("Неподдерживаемый формат звука уведомления", "path", path, "error", err)
		return err
	}
	data, err := n.load(path)
	if err != nil {
		n.logger.Warnw("Не удалось открыть звуковой файл уведомления", "path", path, "error", err)
		return err
	}
	if _, err := n.engine.Start(format, data, func() {}); err != nil {
		n.logger.Warnw("Не удалось воспроизвести звуковое уведомление", "path", path, "error", err)
		return err
	}
	return nil
}

func (n *SoundNotifier) load(path string) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if data, ok := n.cache[path]; ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	n.cache[path] = data
	return data, nil
}
