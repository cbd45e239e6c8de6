package session

import (
	"TTSApp/internal/service/dispatch"
	"TTSApp/internal/service/download"
	"TTSApp/internal/service/messages"
	"TTSApp/internal/service/selector"
	"TTSApp/internal/service/tts"
	"context"
	"errors"
	"time"
)

// FailureKind — класс ошибки отправки, показываемый пользователю.
type FailureKind string

const (
	FailureTransport        FailureKind = "transport"
	FailureMalformed        FailureKind = "malformed"
	FailureInvalidSelection FailureKind = "invalid_selection"
	FailureEmptyText        FailureKind = "empty_text"
	FailureUnsupported      FailureKind = "unsupported_format"
	FailureInternal         FailureKind = "internal"
)

// Failure — последняя ошибка отправки.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// Classify сопоставляет ошибку синтеза классу для view.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, dispatch.ErrEmptyText):
		return FailureEmptyText
	case errors.Is(err, dispatch.ErrNoSelection):
		return FailureInvalidSelection
	case errors.Is(err, tts.ErrUnsupportedFormat):
		return FailureUnsupported
	case errors.Is(err, tts.ErrMalformedResponse):
		return FailureMalformed
	case errors.Is(err, tts.ErrTransport),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return FailureTransport
	default:
		return FailureInternal
	}
}

// VendorView — вкладка вендора.
type VendorView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageView — сообщение журнала с состоянием панели.
type MessageView struct {
	messages.AudioMessage
	Playing  bool   `json:"playing"`
	Filename string `json:"filename"`
	Download string `json:"download"`
}

// AppendedView — данные события message_appended.
type AppendedView struct {
	Message MessageView `json:"message"`
	Index   int         `json:"index"`
	Len     int         `json:"len"`
	Scroll  bool        `json:"scroll"`
}

type PlaybackView struct {
	ID      int64 `json:"id"`
	Playing bool  `json:"playing"`
}

type InputView struct {
	Text string `json:"text"`
}

// State — полный срез состояния для отрисовки страницы.
type State struct {
	Vendors         []VendorView      `json:"vendors"`
	Selector        selector.Snapshot `json:"selector"`
	Format          tts.Format        `json:"format"`
	Formats         []tts.Format      `json:"formats"`
	Input           string            `json:"input"`
	Messages        []MessageView     `json:"messages"`
	Failure         *Failure          `json:"failure,omitempty"`
	Pending         int               `json:"pending"`
	PlaybackEnabled bool              `json:"playbackEnabled"`
}

func (s *Session) messageView(m messages.AudioMessage) MessageView {
	return MessageView{
		AudioMessage: m,
		Playing:      s.playing(m.ID),
		Filename:     download.Filename(m.Text, m.ID, m.Format),
		Download:     download.Path(m.ID),
	}
}

// State собирает срез состояния.
func (s *Session) State() State {
	st := State{
		Selector:        s.selector.Snapshot(),
		Formats:         []tts.Format{tts.FormatMP3, tts.FormatWAV},
		PlaybackEnabled: s.engine != nil,
	}
	for _, v := range s.catalog.Vendors() {
		st.Vendors = append(st.Vendors, VendorView{ID: v.ID, Name: v.Name})
	}
	list := s.list.Messages()
	st.Messages = make([]MessageView, 0, len(list))
	for _, m := range list {
		st.Messages = append(st.Messages, s.messageView(m))
	}

	s.mu.Lock()
	st.Format = s.format
	st.Input = s.input
	st.Failure = s.failure
	st.Pending = s.pending
	s.mu.Unlock()
	return st
}
