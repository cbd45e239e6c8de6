package audio

import (
	"TTSApp/internal/service/tts"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("audio: resource not found")
	ErrClosed   = errors.New("audio: store closed")
)

// Resource — аудио одного сообщения, сохранённое в хранилище.
type Resource struct {
	ID     int64
	Path   string
	URL    string // локальный адрес для воспроизведения в странице
	Format tts.Format
	MIME   string
	Size   int
}

// FileStore сохраняет аудио сессии в каталог и удаляет его при Close.
// Сообщения из сессии не удаляются, поэтому ресурсы живут до её закрытия.
// Каталог создаётся при первом сохранении; если он был временным — удаляется целиком.
type FileStore struct {
	dir     string
	ownsDir bool
	logger  *zap.SugaredLogger

	mu        sync.Mutex
	resources map[int64]Resource
	closed    bool
}

// NewFileStore создаёт хранилище. Пустой dir — временный каталог, удаляемый при Close.
func NewFileStore(dir string, logger *zap.SugaredLogger) (*FileStore, error) {
	owns := false
	if dir == "" {
		d, err := os.MkdirTemp("", "tts-app-audio-")
		if err != nil {
			return nil, err
		}
		dir, owns = d, true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, ownsDir: owns, logger: logger, resources: map[int64]Resource{}}, nil
}

// Dir — каталог хранилища.
func (s *FileStore) Dir() string { return s.dir }

// Save пишет {dir}/{id}.{ext} и возвращает ресурс.
func (s *FileStore) Save(id int64, a *tts.Audio) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Resource{}, ErrClosed
	}
	if _, ok := s.resources[id]; ok {
		return Resource{}, fmt.Errorf("audio: duplicate id %d", id)
	}

	name := strconv.FormatInt(id, 10) + "." + a.Format.Ext()
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return Resource{}, err
	}
	r := Resource{
		ID:     id,
		Path:   path,
		URL:    "/api/messages/" + strconv.FormatInt(id, 10) + "/audio",
		Format: a.Format,
		MIME:   a.MIME,
		Size:   len(a.Data),
	}
	s.resources[id] = r
	return r, nil
}

// Get возвращает ресурс по идентификатору.
func (s *FileStore) Get(id int64) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return r, nil
}

// Open открывает файл ресурса на чтение.
func (s *FileStore) Open(id int64) (*os.File, Resource, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, Resource{}, err
	}
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, Resource{}, err
	}
	return f, r, nil
}

// Read читает данные ресурса целиком.
func (s *FileStore) Read(id int64) ([]byte, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(r.Path)
}

// Len — количество удерживаемых ресурсов.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// Close освобождает все ресурсы сессии.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	resources := s.resources
	s.resources = map[int64]Resource{}
	s.mu.Unlock()

	var errs []error
	for _, r := range resources {
		if err := os.Remove(r.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if s.ownsDir {
		if err := os.RemoveAll(s.dir); err != nil {
			errs = append(errs, err)
		}
	}
	if s.logger != nil {
		s.logger.Infow("Audio store released", "resources", len(resources), "dir", s.dir)
	}
	return errors.Join(errs...)
}
