package httptransport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"optimize/internal/experiment/metrics"
	experimentmiddleware "optimize/internal/experiment/middleware"
	"optimize/internal/experiment/models"
	"optimize/internal/experiment/registry"
	platformmetrics "optimize/internal/platform/metrics"
	"optimize/pkg/platform/middleware/requestid"
	"optimize/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	reg := registry.New()
	_, err := reg.Declare("layout", "L1", []models.Variation{{Key: "small", Weight: 0.7}, {Key: "big", Weight: 0.3}})
	s.Require().NoError(err)

	promReg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = NewRouter(Deps{
		Registry:    reg,
		Experiments: experimentmiddleware.New(reg, logger, experimentmiddleware.WithMetrics(metrics.New(promReg))),
		HTTPMetrics: platformmetrics.New(promReg),
		Metrics:     platformmetrics.Handler(promReg),
		Logger:      logger,
	})
}

func (s *RouterSuite) get(method, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := testutil.WithCookies(httptest.NewRequest(method, path, nil), cookies...)
	return testutil.DoRequest(s.router, req)
}

func (s *RouterSuite) TestHealthz() {
	rec := s.get(http.MethodGet, "/healthz")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get(requestid.Header))
	s.Empty(rec.Result().Cookies())

	var body map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	s.Equal("ok", body["status"])
	s.EqualValues(1, body["experiments"])
}

func (s *RouterSuite) TestRoundTripAcrossRequests() {
	first := s.get(http.MethodPost, "/experiments/layout/run")
	s.Require().Equal(http.StatusOK, first.Code)
	cookies := first.Result().Cookies()
	s.Require().Len(cookies, 1)

	chosen := testutil.UnmarshalResponse[models.Assignment](s.T(), first)
	s.Equal("flask_google_optimize__L1", cookies[0].Name)

	for range 5 {
		next := s.get(http.MethodPost, "/experiments/layout/run", cookies[0])
		again := testutil.UnmarshalResponse[models.Assignment](s.T(), next)
		s.Equal(chosen.Index, again.Index)
		refreshed := testutil.ResponseCookie(next, cookies[0].Name)
		s.Require().NotNil(refreshed)
		s.Equal(cookies[0].Value, refreshed.Value)
	}
}

func (s *RouterSuite) TestMetricsEndpoint() {
	s.get(http.MethodPost, "/experiments/layout/run")
	rec := s.get(http.MethodGet, "/metrics")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "optimize_assignments_total")
	s.Contains(rec.Body.String(), "optimize_cookies_written_total 1")
	s.Empty(rec.Result().Cookies())
}
