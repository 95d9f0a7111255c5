package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"optimize/internal/experiment/cookie"
	"optimize/internal/experiment/metrics"
	"optimize/internal/experiment/models"
	"optimize/internal/experiment/registry"
)

const (
	layoutCookie = "flask_google_optimize__L1"
	googlebotUA  = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	chromeUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type MiddlewareSuite struct {
	suite.Suite
	registry *registry.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.registry = registry.New()
	_, err := s.registry.Declare("layout", "L1", []models.Variation{{Key: "small", Weight: 0.5}, {Key: "big", Weight: 0.5}})
	s.Require().NoError(err)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.metrics = metrics.New(prometheus.NewRegistry())
}

func (s *MiddlewareSuite) serve(mw *Middleware, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw.Handler(h).ServeHTTP(rec, req)
	return rec
}

func runLayout(w http.ResponseWriter, r *http.Request) {
	experiments, ok := FromContext(r.Context())
	if !ok {
		http.Error(w, "no experiments", http.StatusInternalServerError)
		return
	}
	if err := experiments.Run("layout"); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, _ = io.WriteString(w, experiments.String())
}

func (s *MiddlewareSuite) layoutCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == layoutCookie {
			return c
		}
	}
	return nil
}

func (s *MiddlewareSuite) TestSetsCookieBeforeBody() {
	mw := New(s.registry, s.logger, WithMetrics(s.metrics))
	rec := s.serve(mw, runLayout, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusOK, rec.Code)
	c := s.layoutCookie(rec)
	s.Require().NotNil(c)
	s.Contains([]string{"0", "1"}, c.Value)
	s.Equal(cookie.DefaultMaxAge, c.MaxAge)
	s.Contains(rec.Body.String(), "layout=")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CookiesWritten))
}

func (s *MiddlewareSuite) TestKeepsExistingAssignment() {
	mw := New(s.registry, s.logger)
	for range 10 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: layoutCookie, Value: "1"})
		rec := s.serve(mw, runLayout, req)

		s.Equal("layout=big", rec.Body.String())
		c := s.layoutCookie(rec)
		s.Require().NotNil(c)
		s.Equal("1", c.Value, "cookie lifetime is refreshed with the same value")
	}
}

func (s *MiddlewareSuite) TestFlushesWhenHandlerWritesNothing() {
	mw := New(s.registry, s.logger)
	rec := s.serve(mw, func(w http.ResponseWriter, r *http.Request) {
		experiments, _ := FromContext(r.Context())
		s.Require().NoError(experiments.Run("layout"))
	}, httptest.NewRequest(http.MethodGet, "/", nil))

	s.NotNil(s.layoutCookie(rec))
}

func (s *MiddlewareSuite) TestNoCookiesWithoutRun() {
	mw := New(s.registry, s.logger)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: layoutCookie, Value: "1"})
	rec := s.serve(mw, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, req)

	s.Empty(rec.Result().Cookies())
}

func (s *MiddlewareSuite) TestWakeUp() {
	mw := New(s.registry, s.logger, WithWakeUp(true))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: layoutCookie, Value: "1"})

	var index int
	rec := s.serve(mw, func(w http.ResponseWriter, r *http.Request) {
		experiments, _ := FromContext(r.Context())
		a, err := experiments.VariationFor("layout")
		s.Require().NoError(err)
		index = a.Index
		w.WriteHeader(http.StatusOK)
	}, req)

	s.Equal(1, index)
	s.NotNil(s.layoutCookie(rec))
}

func (s *MiddlewareSuite) TestSkipBots() {
	mw := New(s.registry, s.logger, WithSkipBots(true), WithMetrics(s.metrics))

	s.Run("crawler gets no cookie", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", googlebotUA)
		rec := s.serve(mw, runLayout, req)
		s.Equal(http.StatusOK, rec.Code)
		s.Nil(s.layoutCookie(rec))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.FlushesSkipped))
	})

	s.Run("browser gets a cookie", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", chromeUA)
		rec := s.serve(mw, runLayout, req)
		s.NotNil(s.layoutCookie(rec))
	})
}

func (s *MiddlewareSuite) TestSecureCookiesAndCodec() {
	mw := New(s.registry, s.logger, WithSecureCookies(true), WithCodec(cookie.Codec{Namespace: "shop", MaxAge: 120}))
	rec := s.serve(mw, runLayout, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal("shop__L1", cookies[0].Name)
	s.Equal(120, cookies[0].MaxAge)
	s.True(cookies[0].Secure)
}

func (s *MiddlewareSuite) TestFromContext() {
	_, ok := FromContext(context.Background())
	s.False(ok)
}

func (s *MiddlewareSuite) TestStreamingFlushWritesCookieFirst() {
	mw := New(s.registry, s.logger)
	rec := s.serve(mw, func(w http.ResponseWriter, r *http.Request) {
		experiments, _ := FromContext(r.Context())
		s.Require().NoError(experiments.Run("layout"))
		http.NewResponseController(w).Flush()
	}, httptest.NewRequest(http.MethodGet, "/", nil))

	s.True(rec.Flushed)
	s.NotNil(s.layoutCookie(rec))
}
