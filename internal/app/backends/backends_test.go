package backends

import (
	"TTSApp/internal/catalog"
	"TTSApp/internal/config"
	"TTSApp/internal/service/selector"
	"TTSApp/internal/service/tts"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestBuild_Vendors(t *testing.T) {
	cfg := config.Defaults()
	cfg.TTSServerURL = "http://127.0.0.1:9"

	set, err := Build(context.Background(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	defer set.Close()
	if ids := vendorIDs(set.Catalog); len(ids) != 2 || ids[0] != catalog.VendorPolly || ids[1] != catalog.VendorAzure {
		t.Fatalf("unexpected vendors: %v", ids)
	}

	cfg.YandexTTS.APIKey = "key"
	set, err = Build(context.Background(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	defer set.Close()
	if ids := vendorIDs(set.Catalog); len(ids) != 3 || ids[2] != catalog.VendorYandex {
		t.Fatalf("unexpected vendors: %v", ids)
	}

	cfg.OpenAITTS.APIKey = "sk-test"
	set, err = Build(context.Background(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	defer set.Close()
	if ids := vendorIDs(set.Catalog); len(ids) != 4 || ids[3] != catalog.VendorOpenAI {
		t.Fatalf("unexpected vendors: %v", ids)
	}
	v, err := set.Catalog.Vendor(catalog.VendorOpenAI)
	if err != nil {
		t.Fatal(err)
	} else if sel, ok := v.DefaultSelection(); !ok || sel.ID != "alloy" {
		t.Fatalf("unexpected default voice: %+v", sel)
	}
}

func TestBuild_OpenAIDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.OpenAITTS.APIKey = "sk-test"
	cfg.OpenAITTS.BaseURL = srv.URL
	set, err := Build(context.Background(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatal(err)
	}
	defer set.Close()

	sel := selector.New(set.Catalog)
	if _, err := sel.SelectVendor(catalog.VendorOpenAI); err != nil {
		t.Fatal(err)
	}
	a, err := set.Dispatcher.Synthesize(context.Background(), "hello", sel.Selected(), tts.FormatWAV)
	if err != nil {
		t.Fatal(err)
	} else if string(a.Data) != "RIFF" || a.MIME != "audio/wav" {
		t.Fatalf("unexpected audio: %q %s", a.Data, a.MIME)
	}
}

func TestBuild_BadCatalogPath(t *testing.T) {
	cfg := config.Defaults()
	cfg.Catalog.PollyPath = t.TempDir() + "/missing.json"
	if _, err := Build(context.Background(), cfg, zap.NewNop().Sugar()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEngine(t *testing.T) {
	if e := Engine(config.PlaybackConfig{Enabled: false}); e != nil {
		t.Fatalf("expected nil engine, got %T", e)
	}
	if e := Engine(config.PlaybackConfig{Enabled: true, VolumeDB: -6}); e == nil {
		t.Fatal("expected engine")
	}
}

func vendorIDs(c *catalog.Catalog) []string {
	var ids []string
	for _, v := range c.Vendors() {
		ids = append(ids, v.ID)
	}
	return ids
}
