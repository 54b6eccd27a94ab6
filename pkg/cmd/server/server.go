package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // served on localhost only
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/cmd/util"
	"github.com/mpapenbr/fantasy-league-service/pkg/config"
	"github.com/mpapenbr/fantasy-league-service/pkg/db/postgres"
	"github.com/mpapenbr/fantasy-league-service/pkg/leaderboard"
	"github.com/mpapenbr/fantasy-league-service/pkg/notify"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/bob"
	"github.com/mpapenbr/fantasy-league-service/pkg/rules"
	"github.com/mpapenbr/fantasy-league-service/pkg/server/rest"
)

//nolint:funlen // flag definitions
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the REST server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.ServerAddr,
		"addr",
		"a",
		"localhost:8080",
		"REST server listen address")
	cmd.Flags().BoolVar(&config.EnforceRosterRules,
		"enforce-roster-rules",
		false,
		"reject teams violating the roster rules (5 drivers, 2 constructors, budget 100)")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"if set, user and team creation events are published to this NATS server")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints to console)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	util.AddStandingsFlags(cmd)
	return cmd
}

//nolint:funlen,cyclop // startup sequence
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, sqlLogger := util.SetupLogger()
	var telemetry *config.Telemetry

	log.Debug("Config:",
		log.String("addr", config.ServerAddr),
		log.String("standingsURL", config.StandingsURL),
		log.Int("season", config.Season),
		log.Bool("enforceRosterRules", config.EnforceRosterRules),
		log.String("natsURL", config.NatsURL),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // served on localhost only
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	util.WaitForDatabase()

	pgTraceOption := postgres.WithTracer(sqlLogger, log.DebugLevel)
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err == nil {
			pgTraceOption = postgres.WithOtlpTracer()
		} else {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	pool := postgres.InitWithURL(config.DB, pgTraceOption)
	defer pool.Close()

	restServer, cleanup, err := buildRestServer(pool)
	if err != nil {
		return err
	}
	defer cleanup()

	//nolint:gosec // served on localhost only
	server := &http.Server{
		Addr: config.ServerAddr,
		Handler: h2c.NewHandler(
			newCORS().Handler(otelhttp.NewHandler(restServer.Handler(), "fls")),
			&http2.Server{}),
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting REST server", log.String("addr", config.ServerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err := <-errChan:
		if err != nil {
			log.Error("server could not be started", log.ErrorField(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", log.ErrorField(err))
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func buildRestServer(pool *pgxpool.Pool) (
	srv *rest.Server, cleanup func(), err error,
) {
	cleanup = func() {}
	fetcher, err := util.NewStandingsClient()
	if err != nil {
		return nil, cleanup, err
	}
	repos := bob.NewRepositoriesFromPool(pool)
	ranker := leaderboard.NewService(
		leaderboard.WithTeamRepository(repos.Team()),
		leaderboard.WithFetcher(fetcher),
		leaderboard.WithSeason(config.Season))

	opts := []rest.Option{
		rest.WithRepositories(repos),
		rest.WithTxManager(bob.NewTransactionManagerFromPool(pool)),
		rest.WithRanker(ranker),
		rest.WithHealthCheck(pool.Ping),
	}
	if config.EnforceRosterRules {
		evaluator, err := rules.NewOpaEvaluator()
		if err != nil {
			return nil, cleanup, err
		}
		log.Info("Roster rules are enforced")
		opts = append(opts, rest.WithRulesEvaluator(evaluator))
	}
	if config.NatsURL != "" {
		nc, err := nats.Connect(config.NatsURL, nats.Name("fls"))
		if err != nil {
			return nil, cleanup, fmt.Errorf("connecting to nats: %w", err)
		}
		log.Info("Publishing creation events", log.String("nats", nc.ConnectedUrl()))
		cleanup = func() {
			if err := nc.Drain(); err != nil {
				log.Warn("draining nats connection", log.ErrorField(err))
			}
		}
		opts = append(opts, rest.WithNotifier(notify.NewNatsNotifier(nc)))
	}
	return rest.NewServer(opts...), cleanup, nil
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func newCORS() *cors.Cors {
	// The SPA is served from a different origin
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{rest.HeaderRequestID},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
