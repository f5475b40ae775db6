package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const callbackScheme = "dobbie://linkedin/callback"

// Server is the HTTP surface of the exchange backend.
type Server struct {
	cfg     Config
	svc     *Service
	log     zerolog.Logger
	echo    *echo.Echo
	seen    *ttlcache.Cache[string, struct{}]
	metrics *metrics
}

type metrics struct {
	exchanges *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		exchanges: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "dobbie",
			Subsystem: "exchange",
			Name:      "requests_total",
			Help:      "Token exchange requests by outcome.",
		}, []string{"outcome"}),
	}
}

// NewServer wires the routes, the replay guard and the metrics registry.
func NewServer(cfg Config, svc *Service, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	seen := ttlcache.New[string, struct{}](
		ttlcache.WithTTL[string, struct{}](cfg.CodeTTL),
	)

	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		log:     log,
		echo:    e,
		seen:    seen,
		metrics: newMetrics(reg),
	}

	e.GET("/health", s.handleHealth)
	e.GET("/linkedin", s.handleCallbackRedirect)
	e.POST("/linkedin/exchange", s.handleExchange)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return s
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.seen.Start()
	defer s.seen.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.cfg.Listen)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleCallbackRedirect receives the browser-facing OAuth callback and
// bounces the code into the app's custom URL scheme.
func (s *Server) handleCallbackRedirect(c echo.Context) error {
	q := url.Values{}
	if errParam := c.QueryParam("error"); errParam != "" {
		q.Set("error", errParam)
		s.log.Info().Str("error", errParam).Msg("forwarding oauth error to app")
		return c.Redirect(http.StatusFound, callbackScheme+"?"+q.Encode())
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "invalid_callback",
			Message: "code is required",
		})
	}
	q.Set("code", code)
	if state := c.QueryParam("state"); state != "" {
		q.Set("state", state)
	}

	s.log.Info().Str("target", callbackScheme).Msg("redirecting oauth callback")
	return c.Redirect(http.StatusFound, callbackScheme+"?"+q.Encode())
}

type exchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleExchange(c echo.Context) error {
	var req exchangeRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		s.metrics.exchanges.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "code is required",
		})
	}

	// Authorization codes are single use. A replay within the TTL window
	// is rejected without hitting LinkedIn.
	if s.seen.Has(req.Code) {
		s.metrics.exchanges.WithLabelValues("replay").Inc()
		s.log.Warn().Msg("rejected replayed authorization code")
		return c.JSON(http.StatusConflict, errorResponse{
			Error:   "code_replayed",
			Message: "authorization code already used",
		})
	}

	result, err := s.svc.Exchange(c.Request().Context(), req.Code, req.RedirectURI)
	if err != nil {
		// A transient upstream failure leaves the code unburned so the
		// client can retry it; a definitive rejection or a code LinkedIn
		// already consumed is cached like a success.
		var ue *upstreamError
		if errors.As(err, &ue) && ue.definitive {
			s.seen.Set(req.Code, struct{}{}, ttlcache.DefaultTTL)
		}
		s.metrics.exchanges.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("token exchange failed")
		return c.JSON(http.StatusBadRequest, errorResponse{
			Error:   "exchange_failed",
			Message: "token exchange failed",
		})
	}
	s.seen.Set(req.Code, struct{}{}, ttlcache.DefaultTTL)

	s.metrics.exchanges.WithLabelValues("ok").Inc()
	s.log.Info().Str("member_id", result.MemberID).Msg("token exchange succeeded")
	return c.JSON(http.StatusOK, result)
}
