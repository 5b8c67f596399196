package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"debatearena/pkg/config"
	"debatearena/pkg/debate"
	"debatearena/pkg/dispatch"
	"debatearena/pkg/judge"
	"debatearena/pkg/llm/middleware/metrics"
	"debatearena/pkg/logx"
	"debatearena/pkg/persistence"
	"debatearena/pkg/rating"
)

// EnvPassword holds the secrets file password for non-interactive use.
const EnvPassword = "DEBATEARENA_PASSWORD"

// app holds the services shared by every command. Services are built on
// first use so commands that need none of them stay cheap.
type app struct {
	projectDir  string
	metricsAddr string
	debug       bool

	// Test seams.
	clientFactory dispatch.ClientFactory
	readPassword  func(prompt string) (string, error)
	stdin         io.Reader

	logger       *logx.Logger
	cfg          config.Config
	password     string
	store        persistence.Store
	recorder     metrics.Recorder
	dispatcher   *dispatch.Service
	ratings      *rating.Engine
	orchestrator *debate.Orchestrator
	judges       *judge.Engine
	metricsSrv   *http.Server
}

func newApp() *app {
	return &app{
		projectDir:   ".",
		logger:       logx.NewLogger("cli"),
		readPassword: terminalPassword,
		stdin:        os.Stdin,
	}
}

// loadConfig loads the project config and, when present, the encrypted secrets.
func (a *app) loadConfig() error {
	if a.debug {
		logx.SetDebugConfig(true)
	}
	if err := config.LoadConfig(a.projectDir); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("get config: %w", err)
	}
	a.cfg = cfg
	return a.loadSecrets()
}

func (a *app) loadSecrets() error {
	if !config.SecretsFileExists(a.projectDir) {
		return nil
	}
	password := os.Getenv(EnvPassword)
	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			a.logger.Warn("Secrets file present but %s is not set and stdin is not a terminal; using environment credentials only", EnvPassword)
			return nil
		}
		p, err := a.readPassword("Secrets password: ")
		if err != nil {
			return err
		}
		password = p
	}
	secrets, err := config.DecryptSecretsFile(a.projectDir, password)
	if err != nil {
		return fmt.Errorf("decrypt secrets: %w", err)
	}
	config.SetDecryptedSecrets(secrets)
	a.password = password
	a.logger.Debug("Loaded %d secrets", len(secrets))
	return nil
}

// services builds the store, dispatch layer and engines.
func (a *app) services() error {
	if a.store != nil {
		return nil
	}

	a.recorder = metrics.Nop()
	addr := a.metricsAddr
	if addr == "" && a.cfg.Metrics.Enabled {
		addr = a.cfg.Metrics.ListenAddr
	}
	if addr != "" {
		a.startMetrics(addr)
	}

	store, err := persistence.Open(a.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store

	opts := []dispatch.Option{dispatch.WithRecorder(a.recorder)}
	if a.clientFactory != nil {
		opts = append(opts, dispatch.WithClientFactory(a.clientFactory))
	}
	a.dispatcher = dispatch.NewService(a.cfg, opts...)
	a.ratings = rating.NewEngine(store)
	a.orchestrator = debate.NewOrchestrator(a.dispatcher, store, debate.WithRecorder(a.recorder))
	a.judges = judge.NewEngine(a.dispatcher, store, a.ratings,
		judge.WithRecorder(a.recorder),
		judge.WithRateDraws(a.cfg.Judging.RateDraws),
		judge.WithMaxTokens(a.cfg.Judging.MaxTokens),
	)
	return nil
}

func (a *app) startMetrics(addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.recorder = metrics.NewPrometheusRecorder(reg)

	a.metricsSrv = &http.Server{Addr: addr, Handler: metricsRouter(reg), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server on %s failed: %v", addr, err)
		}
	}()
	a.logger.Info("Serving metrics on %s/metrics", addr)
}

// metricsRouter serves /metrics for reg and a liveness probe on /health.
func metricsRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/health", healthHandler)
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// close releases the store and stops the metrics server.
func (a *app) close() error {
	var errs []error
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
		a.metricsSrv = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.store = nil
	}
	return errors.Join(errs...)
}

// displayName returns the registry display name for modelID, or the id itself.
func (a *app) displayName(modelID string) string {
	if a.dispatcher != nil {
		if info, err := a.dispatcher.GetModelInfo(modelID); err == nil && info.DisplayName != "" {
			return info.DisplayName
		}
	}
	return modelID
}

// readLine reads one trimmed line from the app's stdin.
func (a *app) readLine() (string, error) {
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func terminalPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := string(b)
	for i := range b {
		b[i] = 0
	}
	return password, nil
}
