// Package catalog содержит статические каталоги голосов по вендорам.
// Каталог загружается один раз при старте и далее только читается.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	ErrUnknownVendor = errors.New("catalog: unknown vendor")
	ErrEmptyVendorID = errors.New("catalog: empty vendor id")
	ErrDuplicate     = errors.New("catalog: duplicate vendor")
)

// Voice — именованный профиль синтеза.
type Voice struct {
	ID          string `json:"value"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Label — текст кнопки выбора голоса.
func (v Voice) Label() string { return v.Name + " - " + v.Description }

// LanguageGroup — голоса одного языка у одного вендора.
type LanguageGroup struct {
	Language string  `json:"language"`
	Voices   []Voice `json:"voices"`
}

// Vendor — провайдер TTS со своим каталогом.
type Vendor struct {
	ID           string
	Name         string
	DefaultVoice string // имя (не идентификатор) голоса по умолчанию
	Languages    []LanguageGroup
}

// DefaultSelection возвращает голос по умолчанию: сначала по имени из конфигурации,
// иначе первый голос первой группы. false — каталог пуст.
func (v *Vendor) DefaultSelection() (Voice, bool) {
	for _, g := range v.Languages {
		for _, voice := range g.Voices {
			if voice.Name == v.DefaultVoice {
				return voice, true
			}
		}
	}
	if len(v.Languages) > 0 && len(v.Languages[0].Voices) > 0 {
		return v.Languages[0].Voices[0], true
	}
	return Voice{}, false
}

// Group возвращает группу по названию языка.
func (v *Vendor) Group(lang string) (LanguageGroup, bool) {
	for _, g := range v.Languages {
		if g.Language == lang {
			return g, true
		}
	}
	return LanguageGroup{}, false
}

// FindVoice ищет голос по идентификатору во всех группах вендора.
func (v *Vendor) FindVoice(id string) (Voice, bool) {
	for _, g := range v.Languages {
		for _, voice := range g.Voices {
			if voice.ID == id {
				return voice, true
			}
		}
	}
	return Voice{}, false
}

// Catalog — неизменяемый упорядоченный набор вендоров.
type Catalog struct {
	vendors []*Vendor
	byID    map[string]*Vendor
}

// New собирает каталог. Языки каждого вендора сортируются по алфавиту.
// Входные срезы копируются, дальнейшие изменения вызывающего не влияют на каталог.
func New(vendors ...Vendor) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Vendor, len(vendors))}
	for _, v := range vendors {
		if v.ID == "" {
			return nil, ErrEmptyVendorID
		}
		if _, ok := c.byID[v.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, v.ID)
		}
		vv := v
		vv.Languages = make([]LanguageGroup, len(v.Languages))
		for i, g := range v.Languages {
			vv.Languages[i] = LanguageGroup{Language: g.Language, Voices: slices.Clone(g.Voices)}
		}
		sortLanguages(vv.Languages)
		c.vendors = append(c.vendors, &vv)
		c.byID[vv.ID] = &vv
	}
	return c, nil
}

// Vendors возвращает вендоров в порядке загрузки.
func (c *Catalog) Vendors() []*Vendor {
	return slices.Clone(c.vendors)
}

// Vendor возвращает вендора по идентификатору.
func (c *Catalog) Vendor(id string) (*Vendor, error) {
	v, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendor, id)
	}
	return v, nil
}

// First — вендор, активный при старте. nil, если каталог пуст.
func (c *Catalog) First() *Vendor {
	if len(c.vendors) == 0 {
		return nil
	}
	return c.vendors[0]
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.IgnoreCase)
)

// sortLanguages сортирует группы по названию языка с учётом локали.
func sortLanguages(groups []LanguageGroup) {
	// collate.Collator не потокобезопасен
	collatorMu.Lock()
	defer collatorMu.Unlock()
	slices.SortStableFunc(groups, func(a, b LanguageGroup) int {
		return collator.CompareString(a.Language, b.Language)
	})
}
