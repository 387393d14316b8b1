// Package httpwriter attaches a fresh analytics.Writer to every HTTP request
// and exposes it to html/template.
package httpwriter

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/getlawrence/gawriter/pkg/analytics"
)

// ErrNoWriter is returned when a request context carries no writer.
var ErrNoWriter = errors.New("no analytics writer in context")

// Factory builds the writer for one request.
type Factory func(r *http.Request) (*analytics.Writer, error)

// SettingsFactory returns a Factory creating writers from s. The settings are
// validated once, up front.
func SettingsFactory(s analytics.Settings, extra ...analytics.Option) (Factory, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)
	return func(*http.Request) (*analytics.Writer, error) {
		return analytics.New(s.AccountID, opts...)
	}, nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying w.
func NewContext(ctx context.Context, w *analytics.Writer) context.Context {
	return context.WithValue(ctx, ctxKey{}, w)
}

// FromContext returns the writer stored by NewContext or Middleware.
func FromContext(ctx context.Context) (*analytics.Writer, bool) {
	w, ok := ctx.Value(ctxKey{}).(*analytics.Writer)
	return w, ok && w != nil
}

type middlewareConfig struct {
	onError func(http.ResponseWriter, *http.Request, error)
}

// Option configures Middleware.
type Option func(*middlewareConfig)

// WithErrorHandler replaces the default handling of factory errors, which
// answers 500 Internal Server Error.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onError = fn
		}
	}
}

// Middleware creates one writer per request with factory and stores it in
// the request context.
func Middleware(factory Factory, opts ...Option) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		onError: func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			aw, err := factory(r)
			if err != nil {
				cfg.onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), aw)))
		})
	}
}

// FuncMap exposes the writer in ctx to templates:
//
//	{{ analyticsHead }}             elements for <head> (AMP)
//	{{ analytics }}                 the snippet in the writer's mode
//	{{ analyticsMode "amp" }}       the snippet in another mode
//	<a {{ analyticsLinkAttrs .URL }}>  cross-domain link attributes (ga.js)
func FuncMap(ctx context.Context) template.FuncMap {
	writer := func() (*analytics.Writer, error) {
		w, ok := FromContext(ctx)
		if !ok {
			return nil, ErrNoWriter
		}
		return w, nil
	}
	return template.FuncMap{
		"analytics": func() (template.HTML, error) {
			w, err := writer()
			if err != nil {
				return "", err
			}
			out, err := w.Render()
			return template.HTML(out), err
		},
		"analyticsMode": func(mode string) (template.HTML, error) {
			w, err := writer()
			if err != nil {
				return "", err
			}
			m, err := analytics.ParseMode(mode)
			if err != nil {
				return "", err
			}
			out, err := w.RenderMode(m)
			return template.HTML(out), err
		},
		"analyticsHead": func() (template.HTML, error) {
			w, err := writer()
			if err != nil {
				return "", err
			}
			out, err := w.RenderHead()
			return template.HTML(out), err
		},
		"analyticsLinkAttrs": func(link string) (template.HTMLAttr, error) {
			w, err := writer()
			if err != nil {
				return "", err
			}
			return template.HTMLAttr(w.RenderCrossdomainLinkAttrs(link)), nil
		},
	}
}
