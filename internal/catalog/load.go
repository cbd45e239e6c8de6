package catalog

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
)

//go:embed data/*.json
var builtin embed.FS

// Идентификаторы встроенных вендоров.
const (
	VendorPolly  = "polly"
	VendorAzure  = "azure"
	VendorYandex = "yandex"
	VendorGoogle = "google"
	VendorOpenAI = "openai"
)

// File — формат JSON-файла каталога одного вендора.
type File struct {
	DefaultVoice string          `json:"defaultVoice"`
	Voices       []LanguageGroup `json:"voices"`
}

// Source описывает, откуда брать каталог вендора. Path пуст — встроенный файл.
type Source struct {
	ID   string
	Name string
	Path string
}

// Parse разбирает JSON каталога в Vendor.
func Parse(id, name string, data []byte) (Vendor, error) {
	var f File
	if err := sonic.Unmarshal(data, &f); err != nil {
		return Vendor{}, fmt.Errorf("catalog: parse %s: %w", id, err)
	}
	return Vendor{ID: id, Name: name, DefaultVoice: f.DefaultVoice, Languages: f.Voices}, nil
}

// LoadVendor читает каталог из файла или из встроенных данных.
func LoadVendor(src Source) (Vendor, error) {
	var (
		data []byte
		err  error
	)
	if p := strings.TrimSpace(src.Path); p != "" {
		data, err = os.ReadFile(p)
	} else {
		data, err = builtin.ReadFile("data/" + src.ID + ".json")
	}
	if err != nil {
		return Vendor{}, fmt.Errorf("catalog: read %s: %w", src.ID, err)
	}
	return Parse(src.ID, src.Name, data)
}

// Load загружает каталоги из источников в указанном порядке и добавляет extra
// (например, каталог Google, полученный из API).
func Load(sources []Source, extra ...Vendor) (*Catalog, error) {
	vendors := make([]Vendor, 0, len(sources)+len(extra))
	for _, s := range sources {
		v, err := LoadVendor(s)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	vendors = append(vendors, extra...)
	return New(vendors...)
}

// DefaultSources — Amazon Polly и Azure, как в исходной поставке. Пути перекрывают встроенные файлы.
func DefaultSources(pollyPath, azurePath string) []Source {
	return []Source{
		{ID: VendorPolly, Name: "Amazon Polly", Path: pollyPath},
		{ID: VendorAzure, Name: "Azure", Path: azurePath},
	}
}

// YandexSource — встроенный каталог Yandex SpeechKit.
func YandexSource() Source {
	return Source{ID: VendorYandex, Name: "Yandex SpeechKit"}
}

// OpenAISource — встроенный каталог голосов OpenAI.
func OpenAISource() Source {
	return Source{ID: VendorOpenAI, Name: "OpenAI"}
}
