// Package backends собирает каталог голосов, бэкенды синтеза и плеер из конфигурации.
package backends

import (
	"TTSApp/internal/catalog"
	"TTSApp/internal/config"
	"TTSApp/internal/service/dispatch"
	"TTSApp/internal/service/playback"
	"TTSApp/internal/service/tts/google"
	"TTSApp/internal/service/tts/openai"
	"TTSApp/internal/service/tts/player"
	"TTSApp/internal/service/tts/remote"
	"TTSApp/internal/service/tts/yandex"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Set — каталог и диспетчер, согласованные между собой: вендор появляется в каталоге
// только вместе со своим бэкендом.
type Set struct {
	Catalog    *catalog.Catalog
	Dispatcher *dispatch.Dispatcher

	google *google.Client
}

// Build собирает вендоров. Удалённый TTS-сервис обслуживает polly и azure;
// yandex и openai включаются ключом API, google — флагом и доступностью ListVoices.
func Build(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*Set, error) {
	sources := catalog.DefaultSources(cfg.Catalog.PollyPath, cfg.Catalog.AzurePath)
	var extra []catalog.Vendor

	if cfg.TTSServerURL == "" {
		logger.Warnw("TTS_SERVER_URL is empty; polly/azure requests will fail")
	}
	d := dispatch.New(remote.New(cfg.TTSServerURL, logger), logger)
	set := &Set{Dispatcher: d}

	if cfg.YandexTTS.Enabled() {
		sources = append(sources, catalog.YandexSource())
		d.Register(catalog.VendorYandex, yandex.New(cfg.YandexTTS, logger))
	}
	if cfg.OpenAITTS.Enabled() {
		sources = append(sources, catalog.OpenAISource())
		d.Register(catalog.VendorOpenAI, openai.New(cfg.OpenAITTS, logger))
	}

	if cfg.GoogleTTS.Enabled {
		gc := google.New(cfg.GoogleTTS, logger)
		listCtx, cancel := context.WithTimeoutCause(ctx, 15*time.Second, errors.New("google tts voices request timeout"))
		v, err := gc.Vendor(listCtx, cfg.GoogleTTS.Language, cfg.GoogleTTS.DefaultVoice)
		cancel()
		if err != nil {
			// Без списка голосов вендор не показывается, остальное работает.
			logger.Warnw("Google voices unavailable, vendor disabled", "error", err)
			_ = gc.Close()
		} else {
			extra = append(extra, v)
			d.Register(catalog.VendorGoogle, gc)
			set.google = gc
		}
	}

	c, err := catalog.Load(sources, extra...)
	if err != nil {
		set.Close()
		return nil, err
	}
	set.Catalog = c

	vendors := make([]string, 0, len(c.Vendors()))
	for _, v := range c.Vendors() {
		vendors = append(vendors, v.ID)
	}
	logger.Infow("Voice catalog loaded", "vendors", vendors)
	return set, nil
}

// Close освобождает SDK-клиентов.
func (s *Set) Close() error {
	if s.google != nil {
		return s.google.Close()
	}
	return nil
}

// Engine возвращает плеер хоста или nil, если воспроизведение выключено.
func Engine(cfg config.PlaybackConfig) playback.Engine {
	if !cfg.Enabled {
		return nil
	}
	if cfg.VolumeDB != 0 {
		return player.NewWithVolume(cfg.VolumeDB)
	}
	return player.New()
}
