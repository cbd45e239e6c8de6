package main

import (
	"TTSApp/internal/app/backends"
	"TTSApp/internal/config"
	"TTSApp/internal/service/download"
	"TTSApp/internal/service/selector"
	"TTSApp/internal/service/tts"
	"TTSApp/internal/service/tts/player"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type options struct {
	text   string
	vendor string
	voice  string
	format string
	outDir string
	play   bool
}

// Утилита: один запрос синтеза без веб-интерфейса.
// Результат сохраняется под тем же именем, что и при скачивании из интерфейса.
func main() {
	var opts options
	flag.StringVar(&opts.text, "text", "Hello, World!", "Текст для синтеза речи")
	flag.StringVar(&opts.vendor, "vendor", "", "Вендор (polly|azure|yandex|google|openai); пусто — первый в каталоге")
	flag.StringVar(&opts.voice, "voice", "", "Идентификатор голоса; пусто — голос вендора по умолчанию")
	flag.StringVar(&opts.format, "format", "", "Формат аудио (mp3|wav); пусто — DEFAULT_FORMAT")
	flag.StringVar(&opts.outDir, "out-dir", ".", "Каталог для сохранения")
	flag.BoolVar(&opts.play, "play", false, "Воспроизвести результат после сохранения")

	cfg := config.NewConfig()

	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	err = run(context.Background(), cfg, opts, zl.Sugar())
	_ = zl.Sync()
	if err != nil {
		fmt.Println("Ошибка:", err)
		os.Exit(1)
	}
}

// run выполняет синтез; все ресурсы освобождаются до возврата.
func run(ctx context.Context, cfg *config.Config, opts options, logger *zap.SugaredLogger) error {
	format := opts.format
	if format == "" {
		format = cfg.DefaultFormat
	}
	f, err := tts.ParseFormat(format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeoutCause(ctx, 60*time.Second, errors.New("synth timeout"))
	defer cancel()

	set, err := backends.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("не удалось загрузить каталог голосов: %w", err)
	}
	defer set.Close()

	sel := selector.New(set.Catalog)
	if opts.vendor != "" {
		if _, err := sel.SelectVendor(opts.vendor); err != nil {
			return fmt.Errorf("выбор вендора: %w", err)
		}
	}
	if opts.voice != "" {
		if _, err := sel.ChooseVoice(opts.voice); err != nil {
			return fmt.Errorf("выбор голоса: %w", err)
		}
	}
	selected := sel.Selected()
	logger.Infow("Synthesizing", "vendor", selected.Vendor, "voice", selected.Voice.ID, "format", f)

	a, err := set.Dispatcher.Synthesize(ctx, opts.text, selected, f)
	if err != nil {
		return fmt.Errorf("синтез: %w", err)
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("не удалось создать каталог: %w", err)
	}
	outPath := filepath.Join(opts.outDir, download.Filename(opts.text, time.Now().UnixMilli(), f))
	if err := os.WriteFile(outPath, a.Data, 0o644); err != nil {
		return fmt.Errorf("не удалось сохранить аудио: %w", err)
	}
	fmt.Printf("Готово. Аудио сохранено в: %s\n", outPath)

	if opts.play {
		if err := player.NewWithVolume(cfg.Playback.VolumeDB).Play(f, io.NopCloser(bytes.NewReader(a.Data))); err != nil {
			return fmt.Errorf("не удалось воспроизвести аудио: %w", err)
		}
		fmt.Println("Воспроизведение завершено.")
	}
	return nil
}
