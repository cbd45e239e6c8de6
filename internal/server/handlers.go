package server

import (
	"TTSApp/internal/app/session"
	"TTSApp/internal/catalog"
	"TTSApp/internal/service/audio"
	"TTSApp/internal/service/dispatch"
	"TTSApp/internal/service/messages"
	"TTSApp/internal/service/selector"
	"TTSApp/internal/service/tts"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
)

//go:embed static/index.html
var indexHTML []byte

const maxBody = 1 << 20

var ErrBadRequest = errors.New("bad request")

// statusOf сопоставляет ошибку коду ответа.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, dispatch.ErrEmptyText),
		errors.Is(err, dispatch.ErrNoSelection),
		errors.Is(err, catalog.ErrUnknownVendor),
		errors.Is(err, selector.ErrUnknownLanguage),
		errors.Is(err, selector.ErrUnknownVoice),
		errors.Is(err, selector.ErrNoVendor),
		errors.Is(err, tts.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrUnknownMessage), errors.Is(err, audio.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrPlaybackDisabled):
		return http.StatusConflict
	case errors.Is(err, tts.ErrTransport), errors.Is(err, tts.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrClosed), errors.Is(err, audio.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string              `json:"error"`
	Kind  session.FailureKind `json:"kind"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Errorw("HTTP error", "path", r.URL.Path, "status", code, "error", err)
	} else {
		s.logger.Warnw("HTTP error", "path", r.URL.Path, "status", code, "error", err)
	}
	s.writeJSON(w, code, errorResponse{Error: err.Error(), Kind: session.Classify(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Errorw("Failed to encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// decode читает JSON-тело. Пустое тело допустимо, если allowEmpty.
func decode(r *http.Request, v any, allowEmpty bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrBadRequest, err)
	}
	if len(body) == 0 {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: empty body", ErrBadRequest)
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func messageID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid message id", ErrBadRequest)
	}
	return id, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Len()})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	first := session.Event{Type: session.EventState, Data: s.session.State()}
	if err := s.hub.Serve(w, r, first); err != nil {
		s.logger.Warnw("WS upgrade failed", "error", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.State())
}

// respondState — общий ответ для изменений селектора/настроек.
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleVendor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Vendor string `json:"vendor"`
	}
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondState(w, r, s.session.SelectVendor(req.Vendor))
}

func (s *Server) handlePickerOpen(w http.ResponseWriter, r *http.Request) {
	s.session.OpenPicker()
	s.respondState(w, r, nil)
}

func (s *Server) handlePickerClose(w http.ResponseWriter, r *http.Request) {
	s.session.ClosePicker()
	s.respondState(w, r, nil)
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondState(w, r, s.session.ChooseLanguage(req.Language))
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Voice string `json:"voice"`
	}
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondState(w, r, s.session.ChooseVoice(req.Voice))
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respondState(w, r, s.session.SetFormat(req.Format))
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.session.SetInput(req.Text)
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit: необязательное {"text": ...} заменяет поле ввода перед отправкой.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text *string `json:"text"`
	}
	if err := decode(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	var (
		msg messages.AudioMessage
		err error
	)
	if req.Text != nil {
		msg, err = s.session.SubmitText(r.Context(), *req.Text)
	} else {
		msg, err = s.session.Submit(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.session.DismissFailure()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	playing, err := s.session.Toggle(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, session.PlaybackView{ID: id, Playing: playing})
}

// handleAudio отдаёт аудио для встроенного проигрывателя страницы (с поддержкой Range).
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, res, err := s.session.Audio(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", res.MIME)
	http.ServeContent(w, r, "", st.ModTime(), f)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := messageID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, res, name, err := s.session.Download(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", res.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(res.Size))
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warnw("Download interrupted", "id", id, "error", err)
	}
}
