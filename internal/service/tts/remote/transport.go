package remote

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// loggingTransport логирует исходящие запросы к TTS-сервису: метод, адрес, статус и время.
// Текст запроса попадает в URL, поэтому адрес пишется только на уровне debug.
type loggingTransport struct {
	base   http.RoundTripper
	logger *zap.SugaredLogger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := t.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	if t.logger == nil {
		return rt.RoundTrip(req)
	}

	start := time.Now()
	t.logger.Debugw("-> tts", "method", req.Method, "url", req.URL.String())
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.logger.Warnw("<- tts error", "error", err, "elapsed", time.Since(start).String())
		return resp, err
	}
	t.logger.Debugw("<- tts", "status", resp.StatusCode, "elapsed", time.Since(start).String())
	return resp, nil
}
