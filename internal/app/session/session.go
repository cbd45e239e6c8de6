// Package session — слой обработчиков событий интерфейса: ввод, формат, отправка,
// выбор голоса, журнал сообщений и панели воспроизведения одной сессии.
package session

import (
	"TTSApp/internal/catalog"
	"TTSApp/internal/service/audio"
	"TTSApp/internal/service/dispatch"
	"TTSApp/internal/service/download"
	"TTSApp/internal/service/messages"
	"TTSApp/internal/service/playback"
	"TTSApp/internal/service/selector"
	"TTSApp/internal/service/tts"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrClosed           = errors.New("session: closed")
	ErrUnknownMessage   = errors.New("session: unknown message")
	ErrPlaybackDisabled = errors.New("session: playback disabled")
)

// Типы событий для view.
const (
	EventState           = "state"
	EventMessageAppended = "message_appended"
	EventPlayback        = "playback"
	EventFailure         = "failure"
	EventInput           = "input"
)

// Event — уведомление view. Data сериализуется в JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Synthesizer — то, что сессии нужно от диспетчера.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, sel selector.SelectedVoice, format tts.Format) (*tts.Audio, error)
}

// Store — хранилище аудио сообщений.
type Store interface {
	Save(id int64, a *tts.Audio) (audio.Resource, error)
	Open(id int64) (*os.File, audio.Resource, error)
	Read(id int64) ([]byte, error)
	Close() error
}

var (
	_ Synthesizer = (*dispatch.Dispatcher)(nil)
	_ Store       = (*audio.FileStore)(nil)
)

// Options — зависимости сессии. Engine == nil отключает воспроизведение на хосте.
type Options struct {
	Catalog    *catalog.Catalog
	Dispatcher Synthesizer
	Store      Store
	Engine     playback.Engine
	Format     tts.Format
	Logger     *zap.SugaredLogger
	Notify     func(Event)
	Now        func() time.Time
}

// Session — состояние одной вкладки интерфейса.
type Session struct {
	catalog    *catalog.Catalog
	selector   *selector.Selector
	dispatcher Synthesizer
	list       *messages.List
	store      Store
	engine     playback.Engine
	logger     *zap.SugaredLogger
	now        func() time.Time

	notifyMu sync.RWMutex
	notify   func(Event)

	seq atomic.Uint64

	mu      sync.Mutex
	input   string
	format  tts.Format
	panels  map[int64]*playback.Panel
	lastID  int64
	failure *Failure
	pending int
	closed  bool
}

// New собирает сессию. Каталог внедряется явно, глобального состояния нет.
func New(opts Options) *Session {
	format := opts.Format
	if _, err := tts.ParseFormat(string(format)); err != nil {
		format = tts.FormatMP3
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Session{
		catalog:    opts.Catalog,
		selector:   selector.New(opts.Catalog),
		dispatcher: opts.Dispatcher,
		list:       messages.NewList(),
		store:      opts.Store,
		engine:     opts.Engine,
		logger:     logger,
		now:        now,
		notify:     opts.Notify,
		format:     format,
		panels:     map[int64]*playback.Panel{},
	}
	// Рост журнала → прокрутка к последнему сообщению.
	s.list.Subscribe(func(e messages.Event) {
		s.emit(Event{Type: EventMessageAppended, Data: AppendedView{
			Message: s.messageView(e.Message),
			Index:   e.Index,
			Len:     e.Len,
			Scroll:  true,
		}})
	})
	return s
}

// SetNotifier заменяет получателя событий (веб-сервер подключается после создания сессии).
func (s *Session) SetNotifier(fn func(Event)) {
	s.notifyMu.Lock()
	s.notify = fn
	s.notifyMu.Unlock()
}

func (s *Session) emit(e Event) {
	s.notifyMu.RLock()
	fn := s.notify
	s.notifyMu.RUnlock()
	if fn != nil {
		fn(e)
	}
}

// OnOutcome превращает события сессии в два колбэка: сообщение добавлено / ошибка отправки.
// Пустой колбэк пропускается.
func OnOutcome(success, failure func()) func(Event) {
	return func(e Event) {
		switch {
		case e.Type == EventMessageAppended && success != nil:
			success()
		case e.Type == EventFailure && failure != nil:
			failure()
		}
	}
}

func (s *Session) emitState() { s.emit(Event{Type: EventState, Data: s.State()}) }

// SelectVendor переключает вендора; выбор сбрасывается на его голос по умолчанию.
func (s *Session) SelectVendor(id string) error {
	if _, err := s.selector.SelectVendor(id); err != nil {
		return err
	}
	s.logger.Infow("Vendor selected", "vendor", id, "voice", s.selector.Selected().Voice.ID)
	s.emitState()
	return nil
}

func (s *Session) OpenPicker() {
	s.selector.OpenPicker()
	s.emitState()
}

func (s *Session) ClosePicker() {
	s.selector.ClosePicker()
	s.emitState()
}

func (s *Session) ChooseLanguage(lang string) error {
	if err := s.selector.ChooseLanguage(lang); err != nil {
		return err
	}
	s.emitState()
	return nil
}

func (s *Session) ChooseVoice(voiceID string) error {
	sel, err := s.selector.ChooseVoice(voiceID)
	if err != nil {
		return err
	}
	s.logger.Infow("Voice selected", "vendor", sel.Vendor, "voice", sel.Voice.ID)
	s.emitState()
	return nil
}

// Selected — текущий голос.
func (s *Session) Selected() selector.SelectedVoice { return s.selector.Selected() }

// SetFormat меняет формат следующих запросов.
func (s *Session) SetFormat(f string) error {
	format, err := tts.ParseFormat(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.format = format
	s.mu.Unlock()
	s.emitState()
	return nil
}

// Format — текущий формат.
func (s *Session) Format() tts.Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// SetInput заменяет текст поля ввода.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
}

// Input — текст поля ввода.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Submit отправляет текущий текст. Пустой текст — без запроса и без сообщения.
// При успехе поле ввода очищается (если его не изменили, пока шёл запрос) и в журнал
// добавляется ровно одно сообщение. При ошибке журнал и текст не меняются.
func (s *Session) Submit(ctx context.Context) (messages.AudioMessage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return messages.AudioMessage{}, ErrClosed
	}
	text, format := s.input, s.format
	s.mu.Unlock()
	return s.submit(ctx, text, format)
}

// SubmitText записывает text в поле ввода и отправляет именно его.
// Параллельная правка поля не подменяет отправляемый текст.
func (s *Session) SubmitText(ctx context.Context, text string) (messages.AudioMessage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return messages.AudioMessage{}, ErrClosed
	}
	s.input = text
	format := s.format
	s.mu.Unlock()
	return s.submit(ctx, text, format)
}

func (s *Session) submit(ctx context.Context, text string, format tts.Format) (messages.AudioMessage, error) {
	if strings.TrimSpace(text) == "" {
		return messages.AudioMessage{}, dispatch.ErrEmptyText
	}

	sel := s.selector.Selected()
	seq := s.seq.Add(1)
	s.trackPending(1)
	defer s.trackPending(-1)

	s.logger.Infow("Submitting text", "seq", seq, "vendor", sel.Vendor, "voice", sel.Voice.ID, "format", format)
	a, err := s.dispatcher.Synthesize(ctx, text, sel, format)
	if err != nil {
		s.fail(err)
		return messages.AudioMessage{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return messages.AudioMessage{}, ErrClosed
	}
	id := s.nextID()
	res, err := s.store.Save(id, a)
	if err != nil {
		s.mu.Unlock()
		s.fail(fmt.Errorf("save audio: %w", err))
		return messages.AudioMessage{}, err
	}
	msg := messages.AudioMessage{
		ID:       id,
		Seq:      seq,
		Text:     text,
		AudioSrc: res.URL,
		Voice:    sel.Voice.Name,
		Vendor:   sel.Vendor,
		Format:   format,
	}
	if s.engine != nil {
		s.panels[id] = playback.NewPanel(id, format, func() ([]byte, error) { return s.store.Read(id) }, s.engine, s.playbackChanged)
	}
	cleared := s.input == text
	if cleared {
		s.input = ""
	}
	s.failure = nil
	s.mu.Unlock()

	s.list.Append(msg)
	if cleared {
		s.emit(Event{Type: EventInput, Data: InputView{Text: ""}})
	}
	s.logger.Infow("Message appended", "id", id, "seq", seq, "bytes", res.Size)
	return msg, nil
}

// nextID — время создания в мс, строго возрастающее. Вызывается под s.mu.
func (s *Session) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Session) trackPending(delta int) {
	s.mu.Lock()
	s.pending += delta
	s.mu.Unlock()
}

// Pending — количество запросов в полёте.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) fail(err error) {
	f := &Failure{Kind: Classify(err), Message: err.Error(), At: s.now()}
	s.mu.Lock()
	s.failure = f
	s.mu.Unlock()
	s.logger.Errorw("Submission failed", "kind", f.Kind, "error", err)
	s.emit(Event{Type: EventFailure, Data: f})
}

// LastFailure — последняя ошибка отправки (сбрасывается успешной отправкой).
func (s *Session) LastFailure() *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// DismissFailure скрывает баннер ошибки.
func (s *Session) DismissFailure() {
	s.mu.Lock()
	s.failure = nil
	s.mu.Unlock()
	s.emitState()
}

// Messages — журнал сообщений.
func (s *Session) Messages() []messages.AudioMessage { return s.list.Messages() }

// Toggle переключает воспроизведение сообщения.
func (s *Session) Toggle(id int64) (bool, error) {
	if s.engine == nil {
		return false, ErrPlaybackDisabled
	}
	s.mu.Lock()
	p, ok := s.panels[id]
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false, ErrClosed
	}
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	return p.Toggle()
}

func (s *Session) playbackChanged(id int64, playing bool) {
	s.emit(Event{Type: EventPlayback, Data: PlaybackView{ID: id, Playing: playing}})
}

func (s *Session) playing(id int64) bool {
	s.mu.Lock()
	p, ok := s.panels[id]
	s.mu.Unlock()
	return ok && p.Playing()
}

// Download открывает аудио сообщения и возвращает имя файла для сохранения.
func (s *Session) Download(id int64) (*os.File, audio.Resource, string, error) {
	m, ok := s.list.Get(id)
	if !ok {
		return nil, audio.Resource{}, "", fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	f, res, err := s.store.Open(id)
	if err != nil {
		return nil, audio.Resource{}, "", err
	}
	return f, res, download.Filename(m.Text, m.ID, m.Format), nil
}

// Audio открывает аудио сообщения для встроенного проигрывания в странице.
func (s *Session) Audio(id int64) (*os.File, audio.Resource, error) {
	if _, ok := s.list.Get(id); !ok {
		return nil, audio.Resource{}, fmt.Errorf("%w: %d", ErrUnknownMessage, id)
	}
	return s.store.Open(id)
}

// Close останавливает воспроизведение и освобождает аудио всех сообщений.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	panels := s.panels
	s.panels = map[int64]*playback.Panel{}
	s.mu.Unlock()

	for _, p := range panels {
		p.Close()
	}
	s.logger.Infow("Session closed", "messages", s.list.Len())
	return s.store.Close()
}
