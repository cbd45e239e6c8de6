package google

import (
	"TTSApp/internal/catalog"
	"context"
	"fmt"
	"strings"

	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Vendor собирает каталог вендора google из ListVoices. languageCode пуст — все языки.
func (c *Client) Vendor(ctx context.Context, languageCode, defaultVoice string) (catalog.Vendor, error) {
	sdk, err := c.client(ctx)
	if err != nil {
		return catalog.Vendor{}, err
	}
	resp, err := sdk.ListVoices(ctx, &ttspb.ListVoicesRequest{LanguageCode: strings.TrimSpace(languageCode)})
	if err != nil {
		return catalog.Vendor{}, fmt.Errorf("google tts: list voices: %w", err)
	}
	v := BuildVendor(resp.GetVoices(), defaultVoice)
	if c.logger != nil {
		c.logger.Infow("Google voices loaded", "voices", len(resp.GetVoices()), "languages", len(v.Languages))
	}
	return v, nil
}

// BuildVendor группирует голоса по первому языку голоса в порядке появления.
// Порядок языков потом выравнивает catalog.New.
func BuildVendor(voices []*ttspb.Voice, defaultVoice string) catalog.Vendor {
	v := catalog.Vendor{ID: catalog.VendorGoogle, Name: "Google Cloud", DefaultVoice: defaultVoice}
	index := map[string]int{}
	for _, gv := range voices {
		codes := gv.GetLanguageCodes()
		if len(codes) == 0 || gv.GetName() == "" {
			continue
		}
		lang := languageName(codes[0])
		i, ok := index[lang]
		if !ok {
			i = len(v.Languages)
			index[lang] = i
			v.Languages = append(v.Languages, catalog.LanguageGroup{Language: lang})
		}
		v.Languages[i].Voices = append(v.Languages[i].Voices, catalog.Voice{
			ID:          gv.GetName(),
			Name:        gv.GetName(),
			Description: describe(gv),
		})
	}
	return v
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name + " (" + code + ")"
	}
	return code
}

func describe(gv *ttspb.Voice) string {
	gender := strings.ToLower(gv.GetSsmlGender().String())
	if gender != "" {
		gender = strings.ToUpper(gender[:1]) + gender[1:]
	}
	return fmt.Sprintf("%s, %d Hz", gender, gv.GetNaturalSampleRateHertz())
}
