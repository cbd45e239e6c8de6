package messages

import (
	"TTSApp/internal/service/tts"
	"cmp"
	"slices"
	"sync"
)

// AudioMessage — результат одной отправки. После добавления не меняется.
type AudioMessage struct {
	ID       int64      `json:"id"`  // время создания, мс
	Seq      uint64     `json:"seq"` // порядковый номер отправки
	Text     string     `json:"text"`
	AudioSrc string     `json:"audioSrc"`
	Voice    string     `json:"voice"` // отображаемое имя голоса
	Vendor   string     `json:"vendor"`
	Format   tts.Format `json:"format"`
}

// Event — изменение длины списка. View прокручивается к последнему сообщению.
type Event struct {
	Message AudioMessage
	Index   int
	Len     int
}

// List — упорядоченный журнал сообщений сессии, только добавление.
// Порядок определяется Seq (порядком отправки), а не порядком завершения запросов.
type List struct {
	mu        sync.RWMutex
	items     []AudioMessage
	listeners map[int]func(Event)
	nextSub   int
}

func NewList() *List {
	return &List{listeners: map[int]func(Event){}}
}

// Append вставляет сообщение по Seq и уведомляет подписчиков. Возвращает индекс вставки.
func (l *List) Append(m AudioMessage) int {
	l.mu.Lock()
	i, _ := slices.BinarySearchFunc(l.items, m.Seq, func(e AudioMessage, seq uint64) int {
		return cmp.Compare(e.Seq, seq)
	})
	// при равных Seq — после существующих
	for i < len(l.items) && l.items[i].Seq == m.Seq {
		i++
	}
	l.items = slices.Insert(l.items, i, m)
	ev := Event{Message: m, Index: i, Len: len(l.items)}
	listeners := make([]func(Event), 0, len(l.listeners))
	for _, fn := range l.listeners {
		listeners = append(listeners, fn)
	}
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
	return i
}

// Len — текущая длина.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Messages возвращает копию списка.
func (l *List) Messages() []AudioMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// Get ищет сообщение по ID.
func (l *List) Get(id int64) (AudioMessage, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.items {
		if m.ID == id {
			return m, true
		}
	}
	return AudioMessage{}, false
}

// Subscribe регистрирует обработчик изменения длины. Возвращает функцию отписки.
func (l *List) Subscribe(fn func(Event)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.listeners[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}
