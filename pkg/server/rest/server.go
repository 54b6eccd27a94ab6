package rest

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
	"github.com/mpapenbr/fantasy-league-service/pkg/notify"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/api"
	"github.com/mpapenbr/fantasy-league-service/pkg/rules"
)

// Ranker produces the current leaderboard
type Ranker interface {
	List(ctx context.Context) ([]*model.RankedTeam, error)
}

// HealthCheck reports whether the backing services are usable
type HealthCheck func(ctx context.Context) error

func NewServer(opts ...Option) *Server {
	ret := &Server{
		log:      log.Default().Named("rest"),
		rules:    rules.Noop{},
		notifier: notify.Noop{},
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("fls")
	}
	ret.metrics = newMetrics(ret.registry)
	ret.mux = http.NewServeMux()
	ret.registerRoutes()
	return ret
}

type Option func(*Server)

func WithRepositories(repos api.Repositories) Option {
	return func(srv *Server) {
		srv.repos = repos
	}
}

func WithTxManager(txMgr api.TransactionManager) Option {
	return func(srv *Server) {
		srv.txManager = txMgr
	}
}

func WithRanker(r Ranker) Option {
	return func(srv *Server) {
		srv.ranker = r
	}
}

func WithRulesEvaluator(e rules.Evaluator) Option {
	return func(srv *Server) {
		srv.rules = e
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(srv *Server) {
		srv.notifier = n
	}
}

func WithHealthCheck(hc HealthCheck) Option {
	return func(srv *Server) {
		srv.healthCheck = hc
	}
}

// WithRegistry sets the registry used for the request metrics.
// By default each server has its own registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(srv *Server) {
		srv.registry = reg
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(srv *Server) {
		srv.tracer = tracer
	}
}

func WithLogger(l *log.Logger) Option {
	return func(srv *Server) {
		srv.log = l
	}
}

type Server struct {
	repos       api.Repositories
	txManager   api.TransactionManager
	ranker      Ranker
	rules       rules.Evaluator
	notifier    notify.Notifier
	healthCheck HealthCheck
	registry    *prometheus.Registry
	metrics     *metrics
	tracer      trace.Tracer
	log         *log.Logger
	mux         *http.ServeMux
}

// Handler returns the root handler including request id and panic handling
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withRecover(s.mux))
}

func (s *Server) registerRoutes() {
	s.handle("POST /api/users", s.handleCreateUser)
	s.handle("POST /api/teams", s.handleCreateTeam)
	s.handle("GET /api/teams", s.handleListTeams)
	s.handle("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metricsHandler())
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(pattern, h))
}

// runInTx uses the transaction manager if one is configured
func (s *Server) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.RunInTx(ctx, fn)
}
