package notify

import (
	"TTSApp/internal/service/playback"
	"TTSApp/internal/service/tts"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

type nopHandle struct{}

func (nopHandle) Pause()  {}
func (nopHandle) Resume() {}
func (nopHandle) Stop()   {}

type recordingEngine struct {
	formats []tts.Format
	data    []string
}

func (e *recordingEngine) Start(format tts.Format, data []byte, onEnd func()) (playback.Handle, error) {
	e.formats = append(e.formats, format)
	e.data = append(e.data, string(data))
	return nopHandle{}, nil
}

func TestSoundNotifier(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.mp3")
	if err := os.WriteFile(ok, []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}

	e := &recordingEngine{}
	n := NewSoundNotifier(e, ok, "", zap.NewNop().Sugar())
	if !n.Enabled() {
		t.Fatal("expected enabled notifier")
	}

	n.Succeeded()
	n.Failed() // звук ошибки не задан
	n.Succeeded()

	if len(e.data) != 2 || e.data[0] != "ok" || e.formats[1] != tts.FormatMP3 {
		t.Fatalf("unexpected plays: %v %v", e.data, e.formats)
	}
}

func TestSoundNotifier_Disabled(t *testing.T) {
	if NewSoundNotifier(nil, "a.mp3", "", zap.NewNop().Sugar()).Enabled() {
		t.Fatal("no engine, no sound")
	}
	if NewSoundNotifier(&recordingEngine{}, "", "", zap.NewNop().Sugar()).Enabled() {
		t.Fatal("no paths, no sound")
	}
}

func TestSoundNotifier_BadFile(t *testing.T) {
	e := &recordingEngine{}
	n := NewSoundNotifier(e, filepath.Join(t.TempDir(), "missing.wav"), filepath.Join(t.TempDir(), "x.ogg"), zap.NewNop().Sugar())
	if err := n.play(n.pathSuccess); err == nil {
		t.Fatal("expected read error")
	}
	if err := n.play(n.pathFailure); err == nil {
		t.Fatal("expected format error")
	}
	if len(e.data) != 0 {
		t.Fatal("nothing must be played")
	}
}
