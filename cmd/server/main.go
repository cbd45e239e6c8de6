package main

import (
	"TTSApp/internal/app/backends"
	"TTSApp/internal/app/session"
	"TTSApp/internal/config"
	"TTSApp/internal/server"
	"TTSApp/internal/service/audio"
	"TTSApp/internal/service/notify"
	"TTSApp/internal/service/tts"
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Веб-интерфейс синтеза речи: вкладки вендоров, выбор голоса, журнал сообщений,
// воспроизведение и скачивание аудио.
func main() {
	cfg := config.NewConfig()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		_ = logger.Sync()
	}()

	// Graceful shutdown on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Starting app",
		"DebugMode", cfg.DebugMode,
		"BindAddr", cfg.BindAddr,
		"TTSServerURL", cfg.TTSServerURL,
		"Playback", cfg.Playback.Enabled,
	)

	set, err := backends.Build(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalw("Failed to build backends", "error", err)
	}
	defer set.Close()

	store, err := audio.NewFileStore(cfg.AudioDir, sugar)
	if err != nil {
		sugar.Fatalw("Failed to create audio store", "dir", cfg.AudioDir, "error", err)
	}

	engine := backends.Engine(cfg.Playback)
	sess := session.New(session.Options{
		Catalog:    set.Catalog,
		Dispatcher: set.Dispatcher,
		Store:      store,
		Engine:     engine,
		Format:     tts.Format(cfg.DefaultFormat),
		Logger:     sugar,
	})

	var listeners []func(session.Event)
	if sounds := notify.NewSoundNotifier(engine, cfg.Playback.SuccessSound, cfg.Playback.FailureSound, sugar); sounds.Enabled() {
		listeners = append(listeners, session.OnOutcome(sounds.Succeeded, sounds.Failed))
	}
	srv := server.New(cfg.BindAddr, sess, sugar, listeners...)

	if err := srv.Run(ctx, sess.Close); err != nil {
		sugar.Errorw("Web UI failed", "error", err)
	}
	sugar.Infow("App stopped")
}
