// Package server — веб-интерфейс: страница, JSON API и websocket-события сессии.
package server

import (
	"TTSApp/internal/app/session"
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server обслуживает одну сессию.
type Server struct {
	addr    string
	session *session.Session
	hub     *Hub
	srv     *http.Server
	logger  *zap.SugaredLogger
	running atomic.Bool
	bound   atomic.Value // string
}

// New создаёт сервер и подписывает websocket-хаб на события сессии.
// listeners получают те же события после рассылки клиентам.
func New(addr string, sess *session.Session, logger *zap.SugaredLogger, listeners ...func(session.Event)) *Server {
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	s := &Server{addr: addr, session: sess, logger: logger, hub: NewHub(logger)}
	sess.SetNotifier(func(e session.Event) {
		s.hub.Broadcast(e)
		for _, fn := range listeners {
			fn(e)
		}
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Без WriteTimeout: синтез ограничен контекстом запроса.
		IdleTimeout: 60 * time.Second,
	}
	return s
}

// Handler — маршруты интерфейса.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/vendor", s.handleVendor)
		r.Post("/picker/open", s.handlePickerOpen)
		r.Post("/picker/close", s.handlePickerClose)
		r.Post("/language", s.handleLanguage)
		r.Post("/voice", s.handleVoice)
		r.Post("/format", s.handleFormat)
		r.Post("/input", s.handleInput)
		r.Post("/submit", s.handleSubmit)
		r.Post("/failure/dismiss", s.handleDismiss)
		r.Route("/messages/{id}", func(r chi.Router) {
			r.Post("/toggle", s.handleToggle)
			r.Get("/audio", s.handleAudio)
			r.Get("/download", s.handleDownload)
		})
	})
	return r
}

// Start запускает сервер в отдельной горутине и немедленно возвращается.
// Отмена ctx останавливает сервер.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return err
	}
	s.bound.Store(ln.Addr().String())

	go func() {
		s.logger.Infow("Web UI listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Web UI stopped with error", "error", err)
		} else {
			s.logger.Infow("Web UI stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер и
// вызывает closers. Ошибка старта тоже отменяет группу, ресурсы освобождаются в любом случае.
func (s *Server) Run(ctx context.Context, closers ...func() error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return s.Stop(context.WithoutCancel(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		var errs []error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

// Stop — graceful shutdown, websocket-клиенты отключаются.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("web ui shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

// Addr — фактический адрес после Start (или настроенный до него).
func (s *Server) Addr() string {
	if v, ok := s.bound.Load().(string); ok {
		return v
	}
	return s.addr
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/healthz" {
			return
		}
		s.logger.Debugw("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}
