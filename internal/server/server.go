// Package server is the local preview server: it serves a directory of pages
// with the configured analytics snippet injected on the fly.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/getlawrence/gawriter/internal/config"
	"github.com/getlawrence/gawriter/internal/detector"
	"github.com/getlawrence/gawriter/internal/injector"
	"github.com/getlawrence/gawriter/internal/logger"
	"github.com/getlawrence/gawriter/internal/templates"
	"github.com/getlawrence/gawriter/pkg/analytics"
	"github.com/getlawrence/gawriter/pkg/analytics/httpwriter"
	"github.com/getlawrence/gawriter/pkg/analytics/intents"
)

// state is everything a config reload replaces.
type state struct {
	factory   httpwriter.Factory
	scan      config.ScanConfig
	root      string
	modes     []analytics.Mode
	accountID string
}

// Server serves previews of the pages under the configured root
type Server struct {
	log    *zap.Logger
	engine *templates.TemplateEngine
	inj    *injector.Injector
	state  atomic.Pointer[state]
}

// New creates a server for cfg.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	engine, err := templates.NewTemplateEngine()
	if err != nil {
		return nil, err
	}
	s := &Server{
		log:    log,
		engine: engine,
		inj:    injector.New(injector.Options{}, nil),
	}
	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload swaps in a new configuration. On error the previous one stays
// active.
func (s *Server) Reload(cfg *config.Config) error {
	factory, err := httpwriter.SettingsFactory(cfg.Analytics, analytics.WithLogger(logger.NewZapLogger(s.log)))
	if err != nil {
		return fmt.Errorf("invalid analytics settings: %w", err)
	}
	if cfg.Serve.Intents != "" {
		doc, err := intents.Load(cfg.Serve.Intents)
		if err != nil {
			return err
		}
		base := factory
		factory = func(r *http.Request) (*analytics.Writer, error) {
			w, err := base(r)
			if err != nil {
				return nil, err
			}
			if err := doc.Apply(w); err != nil {
				return nil, err
			}
			return w, nil
		}
	}

	root := cfg.Serve.Root
	if root == "" {
		root = "."
	}
	modes := append([]analytics.Mode{cfg.Analytics.EffectiveMode()}, cfg.Analytics.AlternateModes...)
	s.state.Store(&state{
		factory:   factory,
		scan:      cfg.Scan,
		root:      root,
		modes:     modes,
		accountID: cfg.Analytics.AccountID,
	})
	s.log.Info("configuration loaded",
		zap.String("root", root),
		zap.String("mode", modes[0].String()),
		zap.String("account_id", cfg.Analytics.AccountID),
	)
	return nil
}

// Handler returns the HTTP handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /_preview", s.handlePreview)
	mux.HandleFunc("GET /_audit", s.handleAudit)
	mux.HandleFunc("GET /", s.handlePage)

	factory := func(r *http.Request) (*analytics.Writer, error) {
		return s.state.Load().factory(r)
	}
	return Chain(mux,
		RequestID(),
		AccessLog(s.log),
		RecoverPanic(s.log),
		httpwriter.Middleware(factory, httpwriter.WithErrorHandler(s.writerError)),
	)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("preview server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) writerError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("failed to create analytics writer", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.state.Load()
	analysis, err := s.analyze(r.Context(), st)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := templates.IndexData{Root: st.root}
	for _, p := range analysis.Pages {
		link := templates.PageLink{Path: p.RelPath, Tagged: p.Tagged()}
		for _, m := range p.Modes() {
			link.Modes = append(link.Modes, m.String())
		}
		data.Pages = append(data.Pages, link)
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	st := s.state.Load()
	data := templates.PreviewData{Title: "Snippet preview", Link: r.URL.Query().Get("link")}
	for _, m := range st.modes {
		data.Modes = append(data.Modes, m.String())
	}
	s.render(w, r, "preview.html", data)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.analyze(r.Context(), s.state.Load())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(analysis); err != nil {
		s.log.Warn("failed to encode audit", zap.Error(err))
	}
}

// handlePage serves HTML pages with the snippet injected and every other
// file as is. ?mode= renders the snippet in another supported mode.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	st := s.state.Load()
	rel := path.Clean("/" + r.URL.Path)[1:]
	full := filepath.Join(st.root, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil || info.IsDir() || detector.DetectPageLanguage(full) == "" {
		http.FileServer(http.Dir(st.root)).ServeHTTP(w, r)
		return
	}

	aw, ok := httpwriter.FromContext(r.Context())
	if !ok {
		s.fail(w, r, httpwriter.ErrNoWriter)
		return
	}
	mode := aw.Mode()
	if q := r.URL.Query().Get("mode"); q != "" {
		if mode, err = analytics.ParseMode(q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	snippet, err := aw.RenderMode(mode)
	if errors.Is(err, analytics.ErrModeNotSupported) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	head, err := aw.RenderHeadMode(mode)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	content, err := os.ReadFile(full)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page := detector.Page{Path: full, RelPath: rel}
	out, result, err := s.inj.Preview(r.Context(), page, content, snippet, head)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if result.Skipped != "" {
		w.Header().Set("X-Gawriter-Skipped", result.Skipped)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(out)
}

func (s *Server) analyze(ctx context.Context, st *state) (*detector.Analysis, error) {
	return detector.NewManager(st.scan).AnalyzePages(ctx, st.root)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.engine.Execute(r.Context(), w, name, data); err != nil {
		s.fail(w, r, err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
