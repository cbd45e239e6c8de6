package main

import (
	"TTSApp/internal/app/backends"
	"TTSApp/internal/catalog"
	"TTSApp/internal/config"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Небольшая утилита: печатает каталог голосов в JSON.
// Набор вендоров тот же, что у веб-интерфейса (включая google, если он включён в конфиге).
func main() {
	var (
		vendor   string
		language string
	)
	flag.StringVar(&vendor, "vendor", "", "Только этот вендор")
	flag.StringVar(&language, "language", "", "Только этот язык (подстрока, без учёта регистра)")

	cfg := config.NewConfig()

	logger := zap.NewNop().Sugar()
	if cfg.DebugMode {
		zl, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		defer func() { _ = zl.Sync() }()
		logger = zl.Sugar()
	}

	set, err := backends.Build(context.Background(), cfg, logger)
	if err != nil {
		fmt.Println("не удалось загрузить каталог голосов:", err)
		os.Exit(1)
	}
	defer set.Close()

	type vendorOut struct {
		ID           string                  `json:"id"`
		Name         string                  `json:"name"`
		DefaultVoice string                  `json:"defaultVoice"`
		Languages    []catalog.LanguageGroup `json:"languages"`
	}
	var out []vendorOut
	for _, v := range set.Catalog.Vendors() {
		if vendor != "" && v.ID != vendor {
			continue
		}
		vo := vendorOut{ID: v.ID, Name: v.Name, DefaultVoice: v.DefaultVoice}
		for _, g := range v.Languages {
			if language == "" || strings.Contains(strings.ToLower(g.Language), strings.ToLower(language)) {
				vo.Languages = append(vo.Languages, g)
			}
		}
		out = append(out, vo)
	}
	if len(out) == 0 {
		fmt.Println("вендор не найден:", vendor)
		os.Exit(1)
	}

	b, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Println("не удалось сериализовать каталог:", err)
		os.Exit(1)
	}
	fmt.Println(string(b))
}
