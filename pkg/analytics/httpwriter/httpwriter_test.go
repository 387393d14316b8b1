package httpwriter

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/getlawrence/gawriter/pkg/analytics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func gajsFactory(t *testing.T) Factory {
	t.Helper()
	f, err := SettingsFactory(analytics.Settings{AccountID: "UA-123123-1", Mode: analytics.ModeGAJS})
	require.NoError(t, err)
	return f
}

func TestMiddleware_FreshWriterPerRequest(t *testing.T) {
	t.Parallel()

	var seen []*analytics.Writer
	h := Middleware(gajsFactory(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		aw, ok := FromContext(r.Context())
		require.True(t, ok)
		aw.TrackEvent(analytics.Fields{analytics.FieldCategory: "c", analytics.FieldAction: "a"})
		seen = append(seen, aw)
		out, err := aw.Render()
		require.NoError(t, err)
		_, _ = w.Write([]byte(out))
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		// intents from the previous request must not leak into this one
		assert.Equal(t, 1, strings.Count(rr.Body.String(), "_trackEvent"))
	}
	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
}

func TestMiddleware_FactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := func(*http.Request) (*analytics.Writer, error) { return nil, boom }
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run when the factory fails")
	})

	rr := httptest.NewRecorder()
	Middleware(failing)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}

	var got error
	rr = httptest.NewRecorder()
	Middleware(failing, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusServiceUnavailable)
	}))(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.ErrorIs(t, got, boom)
}

func TestSettingsFactory_Validates(t *testing.T) {
	_, err := SettingsFactory(analytics.Settings{})
	require.ErrorIs(t, err, analytics.ErrMissingAccountID)
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	_, ok = FromContext(NewContext(context.Background(), nil))
	assert.False(t, ok)
}

const page = `<html><head>{{ analyticsHead }}</head><body>` +
	`<a href="{{ .URL }}" {{ analyticsLinkAttrs .URL }}>out</a>` +
	`{{ analytics }}</body></html>`

func TestFuncMap_Template(t *testing.T) {
	t.Parallel()

	base := template.Must(template.New("page").Funcs(FuncMap(context.Background())).Parse(page))
	h := Middleware(gajsFactory(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmpl := template.Must(base.Clone()).Funcs(FuncMap(r.Context()))
		require.NoError(t, tmpl.Execute(w, map[string]string{"URL": "https://example.com/foo.html"}))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `<head></head>`)
	assert.Contains(t, body, `onclick="_gaq.push(['_link','https://example.com/foo.html']); return false;"`)
	assert.Contains(t, body, "_gaq.push(['_setAccount','UA-123123-1']);")
}

func TestFuncMap_NoWriter(t *testing.T) {
	tmpl := template.Must(template.New("x").Funcs(FuncMap(context.Background())).Parse(`{{ analytics }}`))
	err := tmpl.Execute(&strings.Builder{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoWriter))
}

func TestFuncMap_AlternateMode(t *testing.T) {
	w, err := analytics.New("UA-1", analytics.WithMode(analytics.ModeGtag), analytics.WithAlternateModes(analytics.ModeAMP))
	require.NoError(t, err)
	ctx := NewContext(context.Background(), w)

	tmpl := template.Must(template.New("x").Funcs(FuncMap(ctx)).Parse(`{{ analyticsMode "amp" }}`))
	var out strings.Builder
	require.NoError(t, tmpl.Execute(&out, nil))
	assert.Contains(t, out.String(), `<amp-analytics type="googleanalytics">`)

	tmpl = template.Must(template.New("y").Funcs(FuncMap(ctx)).Parse(`{{ analyticsMode "ga.js" }}`))
	require.Error(t, tmpl.Execute(&strings.Builder{}, nil))
}
