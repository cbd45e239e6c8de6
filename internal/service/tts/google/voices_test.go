package google

import (
	"testing"

	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

func TestBuildVendor(t *testing.T) {
	v := BuildVendor([]*ttspb.Voice{
		{Name: "ru-RU-Standard-A", LanguageCodes: []string{"ru-RU"}, SsmlGender: ttspb.SsmlVoiceGender_FEMALE, NaturalSampleRateHertz: 24000},
		{Name: "en-US-Standard-C", LanguageCodes: []string{"en-US"}, SsmlGender: ttspb.SsmlVoiceGender_FEMALE, NaturalSampleRateHertz: 24000},
		{Name: "ru-RU-Standard-B", LanguageCodes: []string{"ru-RU"}, SsmlGender: ttspb.SsmlVoiceGender_MALE, NaturalSampleRateHertz: 24000},
		{Name: "broken"},
	}, "en-US-Standard-C")

	if v.ID != "google" {
		t.Fatalf("unexpected id: %s", v.ID)
	} else if len(v.Languages) != 2 {
		t.Fatalf("unexpected groups: %+v", v.Languages)
	} else if len(v.Languages[0].Voices) != 2 {
		t.Fatalf("unexpected ru voices: %+v", v.Languages[0].Voices)
	} else if d := v.Languages[0].Voices[1].Description; d != "Male, 24000 Hz" {
		t.Fatalf("unexpected description: %q", d)
	}

	if voice, ok := v.DefaultSelection(); !ok || voice.ID != "en-US-Standard-C" {
		t.Fatalf("unexpected default: %+v", voice)
	}
}

func TestLanguageOf(t *testing.T) {
	for voice, want := range map[string]string{
		"en-US-Standard-C":      "en-US",
		"cmn-CN-Wavenet-A":      "cmn-CN",
		"ru-RU-Chirp3-HD-Aoede": "ru-RU",
		"Kore":                  "",
	} {
		if got := LanguageOf(voice); got != want {
			t.Fatalf("LanguageOf(%q)=%q, want %q", voice, got, want)
		}
	}
}
