package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode     bool   `env:"DEBUG_MODE"`     // Режим дебага (development-логгер)
	TTSServerURL  string `env:"TTS_SERVER_URL"` // Базовый URL удалённого TTS-сервиса
	BindAddr      string `env:"BIND_ADDR"`      // Адрес веб-интерфейса
	DefaultFormat string `env:"DEFAULT_FORMAT"` // mp3|wav
	AudioDir      string `env:"AUDIO_DIR"`      // Каталог для аудио сессии; пусто — временный каталог

	Catalog   CatalogConfig
	Playback  PlaybackConfig
	YandexTTS YandexTTSConfig // Вендор yandex включается наличием ключа
	GoogleTTS GoogleTTSConfig
	OpenAITTS OpenAITTSConfig // Вендор openai включается наличием ключа
}

// CatalogConfig пути к JSON-каталогам голосов. Пусто — встроенные каталоги.
type CatalogConfig struct {
	PollyPath string `env:"POLLY_VOICES_PATH"`
	AzurePath string `env:"AZURE_VOICES_PATH"`
}

// PlaybackConfig воспроизведение на хосте через beep.
type PlaybackConfig struct {
	Enabled  bool    `env:"PLAYBACK_ENABLED"`
	VolumeDB float64 `env:"PLAYBACK_VOLUME_DB"` // отрицательные — тише

	SuccessSound string `env:"NOTIFY_SUCCESS_SOUND"` // звук при добавлении сообщения; пусто — без звука
	FailureSound string `env:"NOTIFY_FAILURE_SOUND"` // звук при ошибке отправки
}

// YandexTTSConfig конфигурация синтеза через Yandex SpeechKit.
type YandexTTSConfig struct {
	APIKey  string `env:"YC_TTS_API_KEY"`
	Speed   string `env:"YC_TTS_SPEED"`
	Emotion string `env:"YC_TTS_EMOTION"`
}

// Enabled — вендор yandex появляется в каталоге только при заданном ключе.
func (c YandexTTSConfig) Enabled() bool { return strings.TrimSpace(c.APIKey) != "" }

// GoogleTTSConfig конфигурация синтеза через Google Cloud Text-to-Speech.
type GoogleTTSConfig struct {
	Enabled         bool    `env:"GOOGLE_TTS_ENABLED"`
	CredentialsPath string  `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Language        string  `env:"GOOGLE_TTS_LANGUAGE"` // фильтр ListVoices; пусто — все языки
	DefaultVoice    string  `env:"GOOGLE_TTS_VOICE"`
	SpeakingRate    float64 `env:"GOOGLE_TTS_SPEAKING_RATE"`
}

// OpenAITTSConfig конфигурация синтеза через OpenAI Audio API.
type OpenAITTSConfig struct {
	APIKey       string `env:"OPENAI_API_KEY"`
	Model        string `env:"OPENAI_TTS_MODEL"`        // tts-1|tts-1-hd|gpt-4o-mini-tts
	BaseURL      string `env:"OPENAI_BASE_URL"`         // пусто — api.openai.com
	Instructions string `env:"OPENAI_TTS_INSTRUCTIONS"` // манера речи, только для gpt-4o-mini-tts
}

// Enabled — вендор openai появляется в каталоге только при заданном ключе.
func (c OpenAITTSConfig) Enabled() bool { return strings.TrimSpace(c.APIKey) != "" }

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		BindAddr:      "127.0.0.1:8080",
		DefaultFormat: "mp3",
		Playback: PlaybackConfig{
			Enabled:  true,
			VolumeDB: 0,
		},
		YandexTTS: YandexTTSConfig{
			Speed:   "1.0",
			Emotion: "neutral",
		},
		GoogleTTS: GoogleTTSConfig{
			Enabled:         false,
			CredentialsPath: "service-account.json",
			DefaultVoice:    "en-US-Standard-C",
			SpeakingRate:    1.0,
		},
		OpenAITTS: OpenAITTSConfig{
			Model: "gpt-4o-mini-tts",
		},
	}
}

// NewConfig загружает конфигурацию приложения из .env, окружения и флагов командной строки.
// Ошибки конфигурации фатальны для утилит, поэтому здесь паника, как и раньше.
func NewConfig() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

// Parse — то же, что NewConfig, но на переданном FlagSet (удобно в тестах и для подкоманд).
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}

	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага")
	fs.StringVar(&cfg.TTSServerURL, "tts-server-url", cfg.TTSServerURL, "базовый URL TTS-сервиса (ENV TTS_SERVER_URL)")
	fs.StringVar(&cfg.BindAddr, "bind-addr", cfg.BindAddr, "адрес веб-интерфейса, напр. 127.0.0.1:8080")
	fs.StringVar(&cfg.DefaultFormat, "default-format", cfg.DefaultFormat, "формат аудио по умолчанию: mp3|wav")
	fs.StringVar(&cfg.AudioDir, "audio-dir", cfg.AudioDir, "каталог для аудио сессии (пусто — временный)")
	// Каталоги голосов
	fs.StringVar(&cfg.Catalog.PollyPath, "polly-voices", cfg.Catalog.PollyPath, "путь к JSON-каталогу голосов Amazon Polly")
	fs.StringVar(&cfg.Catalog.AzurePath, "azure-voices", cfg.Catalog.AzurePath, "путь к JSON-каталогу голосов Azure")
	// Воспроизведение
	fs.BoolVar(&cfg.Playback.Enabled, "playback-enabled", cfg.Playback.Enabled, "воспроизводить аудио на хосте")
	fs.Float64Var(&cfg.Playback.VolumeDB, "playback-volume-db", cfg.Playback.VolumeDB, "громкость воспроизведения в dB")
	fs.StringVar(&cfg.Playback.SuccessSound, "notify-success-sound", cfg.Playback.SuccessSound, "звук уведомления о новом сообщении (mp3|wav)")
	fs.StringVar(&cfg.Playback.FailureSound, "notify-failure-sound", cfg.Playback.FailureSound, "звук уведомления об ошибке (mp3|wav)")
	// Yandex
	fs.StringVar(&cfg.YandexTTS.APIKey, "yc-tts-api-key", cfg.YandexTTS.APIKey, "API ключ Yandex SpeechKit (включает вендора yandex)")
	fs.StringVar(&cfg.YandexTTS.Speed, "yc-tts-speed", cfg.YandexTTS.Speed, "скорость речи Yandex")
	fs.StringVar(&cfg.YandexTTS.Emotion, "yc-tts-emotion", cfg.YandexTTS.Emotion, "эмоциональная окраска Yandex: neutral|good|evil")
	// Google
	fs.BoolVar(&cfg.GoogleTTS.Enabled, "google-tts-enabled", cfg.GoogleTTS.Enabled, "включить вендора google (Cloud Text-to-Speech)")
	fs.StringVar(&cfg.GoogleTTS.CredentialsPath, "google-tts-credentials", cfg.GoogleTTS.CredentialsPath, "путь к service-account.json")
	fs.StringVar(&cfg.GoogleTTS.Language, "google-tts-language", cfg.GoogleTTS.Language, "фильтр языка для списка голосов Google, напр. ru-RU")
	fs.StringVar(&cfg.GoogleTTS.DefaultVoice, "google-tts-voice", cfg.GoogleTTS.DefaultVoice, "голос Google по умолчанию")
	fs.Float64Var(&cfg.GoogleTTS.SpeakingRate, "google-tts-speaking-rate", cfg.GoogleTTS.SpeakingRate, "скорость речи Google")
	// OpenAI
	fs.StringVar(&cfg.OpenAITTS.APIKey, "openai-api-key", cfg.OpenAITTS.APIKey, "API ключ OpenAI (включает вендора openai)")
	fs.StringVar(&cfg.OpenAITTS.Model, "openai-tts-model", cfg.OpenAITTS.Model, "модель OpenAI TTS")
	fs.StringVar(&cfg.OpenAITTS.BaseURL, "openai-base-url", cfg.OpenAITTS.BaseURL, "базовый URL OpenAI API")
	fs.StringVar(&cfg.OpenAITTS.Instructions, "openai-tts-instructions", cfg.OpenAITTS.Instructions, "инструкции к манере речи OpenAI")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений и готовит окружение для Google SDK.
func (c *Config) Validate() error {
	c.TTSServerURL = strings.TrimRight(strings.TrimSpace(c.TTSServerURL), "/")
	c.DefaultFormat = strings.ToLower(strings.TrimSpace(c.DefaultFormat))
	switch c.DefaultFormat {
	case "mp3", "wav":
	case "":
		c.DefaultFormat = "mp3"
	default:
		return fmt.Errorf("config: unsupported default format %q (mp3|wav)", c.DefaultFormat)
	}
	if c.BindAddr == "" {
		return errors.New("config: empty bind address")
	}

	// Если ENV пуст, но в конфиге указан путь — устанавливаем ENV для ADC.
	if c.GoogleTTS.Enabled {
		cred := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		if cred == "" {
			if cp := strings.TrimSpace(c.GoogleTTS.CredentialsPath); cp != "" {
				_ = os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", cp)
				cred = cp
			}
		}
		if cred == "" {
			return errors.New("google tts: GOOGLE_APPLICATION_CREDENTIALS is not set; use ENV or -google-tts-credentials")
		}
		if _, err := os.Stat(cred); err != nil {
			return fmt.Errorf("google tts: credentials file not found: %s", cred)
		}
	}
	return nil
}
