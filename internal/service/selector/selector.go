package selector

import (
	"TTSApp/internal/catalog"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownLanguage = errors.New("selector: unknown language")
	ErrUnknownVoice    = errors.New("selector: voice not in active vendor")
	ErrNoVendor        = errors.New("selector: no active vendor")
)

// SelectedVoice — выбранная пара (вендор, голос). Нулевое значение — выбор не задан.
type SelectedVoice struct {
	Vendor string        `json:"vendor"`
	Voice  catalog.Voice `json:"voice"`
}

// IsSet — голос выбран.
func (s SelectedVoice) IsSet() bool { return s.Vendor != "" && s.Voice.ID != "" }

// ButtonText — подпись кнопки выбора голоса.
func (s SelectedVoice) ButtonText() string {
	if !s.IsSet() {
		return "Select Voice"
	}
	return s.Voice.Label()
}

// Snapshot — состояние селектора для отображения.
type Snapshot struct {
	Vendor     string                  `json:"vendor"`
	Selected   SelectedVoice           `json:"selected"`
	ButtonText string                  `json:"buttonText"`
	PickerOpen bool                    `json:"pickerOpen"`
	Language   string                  `json:"language"`
	Languages  []catalog.LanguageGroup `json:"languages"`
	Voices     []catalog.Voice         `json:"voices"` // голоса выбранного в окне языка
}

// Selector — выбор вендор → язык → голос поверх внедрённого каталога.
type Selector struct {
	catalog *catalog.Catalog

	mu         sync.RWMutex
	vendor     *catalog.Vendor
	selected   SelectedVoice
	pickerOpen bool
	language   string
}

// New создаёт селектор и активирует первого вендора каталога.
func New(c *catalog.Catalog) *Selector {
	s := &Selector{catalog: c}
	if v := c.First(); v != nil {
		s.activate(v)
	}
	return s
}

// SelectVendor переключает вендора и сбрасывает выбор на его голос по умолчанию.
// Голос предыдущего вендора никогда не сохраняется.
func (s *Selector) SelectVendor(id string) (SelectedVoice, error) {
	v, err := s.catalog.Vendor(id)
	if err != nil {
		return SelectedVoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activate(v)
	return s.selected, nil
}

// activate вызывается под s.mu (или до публикации селектора).
// Язык окна переживает смену вендора, если у нового вендора есть такая группа.
func (s *Selector) activate(v *catalog.Vendor) {
	s.vendor = v
	if _, ok := v.Group(s.language); !ok {
		s.language = ""
	}
	if voice, ok := v.DefaultSelection(); ok {
		s.selected = SelectedVoice{Vendor: v.ID, Voice: voice}
	} else {
		s.selected = SelectedVoice{}
	}
}

// OpenPicker открывает окно выбора голоса.
func (s *Selector) OpenPicker() {
	s.mu.Lock()
	s.pickerOpen = true
	s.mu.Unlock()
}

// ClosePicker закрывает окно. Выбранный язык остаётся до следующего открытия.
func (s *Selector) ClosePicker() {
	s.mu.Lock()
	s.pickerOpen = false
	s.mu.Unlock()
}

// ChooseLanguage фильтрует голоса окна одним языком. Пустая строка сбрасывает фильтр.
// Выбранный голос не меняется.
func (s *Selector) ChooseLanguage(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vendor == nil {
		return ErrNoVendor
	}
	if lang != "" {
		if _, ok := s.vendor.Group(lang); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
		}
	}
	s.language = lang
	return nil
}

// ChooseVoice фиксирует голос активного вендора и закрывает окно.
func (s *Selector) ChooseVoice(voiceID string) (SelectedVoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vendor == nil {
		return SelectedVoice{}, ErrNoVendor
	}
	voice, ok := s.vendor.FindVoice(voiceID)
	if !ok {
		return SelectedVoice{}, fmt.Errorf("%w: %q", ErrUnknownVoice, voiceID)
	}
	s.selected = SelectedVoice{Vendor: s.vendor.ID, Voice: voice}
	s.pickerOpen = false
	return s.selected, nil
}

// Selected — текущий выбор.
func (s *Selector) Selected() SelectedVoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Vendor — идентификатор активного вендора.
func (s *Selector) Vendor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vendor == nil {
		return ""
	}
	return s.vendor.ID
}

// PickerOpen — открыто ли окно выбора.
func (s *Selector) PickerOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pickerOpen
}

// Language — язык, выбранный в окне.
func (s *Selector) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// Languages — группы языков активного вендора.
func (s *Selector) Languages() []catalog.LanguageGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vendor == nil {
		return nil
	}
	return s.vendor.Languages
}

// VisibleVoices — голоса выбранного в окне языка; пусто, пока язык не выбран.
func (s *Selector) VisibleVoices() []catalog.Voice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibleVoices()
}

func (s *Selector) visibleVoices() []catalog.Voice {
	if s.vendor == nil || s.language == "" {
		return nil
	}
	g, _ := s.vendor.Group(s.language)
	return g.Voices
}

// Snapshot — согласованный срез состояния.
func (s *Selector) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Selected:   s.selected,
		ButtonText: s.selected.ButtonText(),
		PickerOpen: s.pickerOpen,
		Language:   s.language,
		Voices:     s.visibleVoices(),
	}
	if s.vendor != nil {
		snap.Vendor = s.vendor.ID
		snap.Languages = s.vendor.Languages
	}
	return snap
}
