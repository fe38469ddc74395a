// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/command"
	"github.com/smartdevs17/multichain-watcher/internal/metrics"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/monitor"
	"github.com/smartdevs17/multichain-watcher/internal/notification"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
	Version       string        `json:"version"`
}

// MonitorStatus is the read side of the chain monitor
type MonitorStatus interface {
	GetStats() *monitor.MonitorStats
	GetHealth() *monitor.HealthStatus
}

// AddressSnapshots exposes the tracked address sets
type AddressSnapshots interface {
	Snapshot(scope models.ScopeKey) registry.AddressSet
}

// DispatcherStatus is the read side of the notification dispatcher
type DispatcherStatus interface {
	GetStats() *notification.DispatcherStats
}

// StorePinger checks the address store
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the components the API reads from. Nil members disable the
// matching health component.
type Dependencies struct {
	Chains     []models.ChainConfig
	Commands   *command.Handler
	Addresses  AddressSnapshots
	Monitor    MonitorStatus
	Dispatcher DispatcherStatus
	Store      StorePinger
	Metrics    *metrics.Manager
	Gatherer   prometheus.Gatherer
}

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config *ServerConfig
	deps   Dependencies
	server *http.Server
	router *mux.Router
	logger *logrus.Entry
	cancel context.CancelFunc
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(config *ServerConfig, deps Dependencies) *HTTPServer {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &HTTPServer{
		config: config,
		deps:   deps,
		logger: utils.ComponentLogger("http_server"),
	}
	s.setupRouter()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.deps.Metrics != nil {
		s.router.Use(s.metricsMiddleware)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	api.HandleFunc("/chains", s.listChainsHandler).Methods("GET")
	api.HandleFunc("/addresses/{scope}", s.listAddressesHandler).Methods("GET")
	api.HandleFunc("/addresses", s.addAddressHandler).Methods("POST")
	api.HandleFunc("/balance/{network}/{address}", s.balanceHandler).Methods("GET")
	api.HandleFunc("/commands", s.commandHandler).Methods("POST")
	api.HandleFunc("/monitor/status", s.monitorStatusHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.deps.Metrics != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.updateComponentHealth()
		go s.componentHealthUpdater(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Catch immediate bind errors
	select {
	case err := <-errChan:
		return utils.WrapError(utils.ErrCodeStartupConfig, "Failed to start HTTP server", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (s *HTTPServer) componentHealthUpdater(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateComponentHealth()
		}
	}
}

func (s *HTTPServer) updateComponentHealth() {
	pm := s.deps.Metrics.GetPrometheusMetrics()
	for name, healthy := range s.componentHealth(context.Background()) {
		pm.UpdateComponentHealth(name, healthy)
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) componentHealth(ctx context.Context) map[string]bool {
	components := make(map[string]bool)
	if s.deps.Store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		components["storage"] = s.deps.Store.Ping(pingCtx) == nil
		cancel()
	}
	if s.deps.Monitor != nil {
		components["monitor"] = s.deps.Monitor.GetHealth().Healthy
	}
	if s.deps.Dispatcher != nil {
		components["notification"] = s.deps.Dispatcher.GetStats().IsRunning
	}
	return components
}

func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	components := s.componentHealth(r.Context())
	status, code := "healthy", http.StatusOK
	for _, ok := range components {
		if !ok {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	resp := map[string]interface{}{
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"version":    s.config.Version,
		"components": components,
	}
	if s.deps.Monitor != nil {
		if h := s.deps.Monitor.GetHealth(); len(h.Issues) > 0 {
			resp["issues"] = h.Issues
		}
	}
	s.writeJSON(w, code, resp)
}

type chainInfo struct {
	ID     string        `json:"id"`
	Family models.Family `json:"family"`
	Symbol string        `json:"symbol"`
}

// listChainsHandler lists configured chains; endpoints are left out since they often embed API keys
func (s *HTTPServer) listChainsHandler(w http.ResponseWriter, r *http.Request) {
	chains := make([]chainInfo, 0, len(s.deps.Chains))
	for _, c := range s.deps.Chains {
		chains = append(chains, chainInfo{ID: c.ID, Family: c.Family, Symbol: c.Symbol()})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"chains": chains,
		"count":  len(chains),
	})
}

func (s *HTTPServer) listAddressesHandler(w http.ResponseWriter, r *http.Request) {
	scope, err := models.ParseScopeKey(mux.Vars(r)["scope"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid scope", err)
		return
	}
	addresses := s.deps.Addresses.Snapshot(scope).Sorted()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scope":     scope,
		"addresses": addresses,
		"count":     len(addresses),
	})
}

type addAddressRequest struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

func (s *HTTPServer) addAddressHandler(w http.ResponseWriter, r *http.Request) {
	var req addAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Network == "" || req.Address == "" {
		s.writeError(w, http.StatusBadRequest, "network and address are required", nil)
		return
	}

	res, sel, err := s.deps.Commands.AddAddress(r.Context(), req.Network, req.Address)
	if err != nil {
		s.writeAppError(w, err)
		return
	}

	status := http.StatusCreated
	if res == registry.AlreadyTracked {
		status = http.StatusOK
	}
	s.writeJSON(w, status, map[string]interface{}{
		"result":  res,
		"scope":   sel.Scope(),
		"address": utils.NormalizeAddress(req.Address),
	})
}

func (s *HTTPServer) balanceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.deps.Commands.Balance(r.Context(), vars["network"], vars["address"])
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type commandRequest struct {
	Text string `json:"text"`
}

// commandHandler runs a chat-style command and returns the reply text
func (s *HTTPServer) commandHandler(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"reply": s.deps.Commands.Handle(r.Context(), req.Text),
	})
}

func (s *HTTPServer) monitorStatusHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"timestamp": time.Now().UTC()}
	if s.deps.Monitor != nil {
		resp["monitor"] = s.deps.Monitor.GetStats()
		resp["health"] = s.deps.Monitor.GetHealth()
	}
	if s.deps.Dispatcher != nil {
		resp["notifications"] = s.deps.Dispatcher.GetStats()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeAppError maps error codes onto HTTP statuses
func (s *HTTPServer) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case utils.HasCode(err, utils.ErrCodeValidation):
		s.writeError(w, http.StatusBadRequest, "Invalid network", err)
	case utils.HasCode(err, utils.ErrCodeInvalidAddress):
		s.writeError(w, http.StatusBadRequest, "Invalid address", err)
	case utils.HasCode(err, utils.ErrCodeChainUnavailable):
		s.writeError(w, http.StatusBadGateway, "Chain unavailable", err)
	case utils.HasCode(err, utils.ErrCodePersistFailure):
		s.writeError(w, http.StatusInternalServerError, "Failed to persist address", err)
	default:
		s.writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"status":  status,
			"message": message,
		}).Warn("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}
