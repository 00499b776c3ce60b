package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/t-botz/federation/internal/metrics"
	"github.com/t-botz/federation/internal/supergraph"
)

// Health states reported by the Monitor.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// ServiceHealth tracks the health of one service of the active supergraph.
// Thread-safe: Protected by Monitor's mutex when accessed.
type ServiceHealth struct {
	LastCheck        time.Time `json:"lastCheck"`        // Timestamp of the last probe
	LastHealthy      time.Time `json:"lastHealthy"`      // Timestamp of the last successful probe
	Service          string    `json:"service"`          // Service name from the supergraph
	URL              string    `json:"url"`              // Routing URL that was probed
	Status           string    `json:"status"`           // "healthy", "unhealthy" or "unknown"
	LastError        string    `json:"lastError,omitempty"`
	ConsecutiveFails int       `json:"consecutiveFails"` // Failed probes since the last success
}

// Monitor periodically probes the services of the active supergraph.
// Unlike the Gate it never blocks a cut-over; it only reports.
// Thread-safe: All methods are safe for concurrent access.
type Monitor struct {
	services    map[string]*ServiceHealth // Current health per service name
	prober      Prober                    // Probe used for every check
	onUnhealthy func(service string)      // Callback when a service becomes unhealthy
	logger      *slog.Logger
	metrics     *metrics.Metrics
	ctx         context.Context    // Context for cancellation
	cancel      context.CancelFunc // Cancel function for shutdown
	interval    time.Duration      // How often to probe
	timeout     time.Duration      // Bound for one probe
	mu          sync.RWMutex       // Protects services map
	wg          sync.WaitGroup     // Wait group for graceful shutdown
	maxFailures int                // Failures before marking unhealthy
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithMaxFailures sets how many consecutive failures mark a service unhealthy.
func WithMaxFailures(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.maxFailures = n
		}
	}
}

// WithProbeTimeout bounds a single probe.
func WithProbeTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithMonitorLogger sets the logger.
func WithMonitorLogger(l *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMonitorMetrics exports per-service health gauges to reg.
func WithMonitorMetrics(mt *metrics.Metrics) MonitorOption {
	return func(m *Monitor) { m.metrics = mt }
}

// NewMonitor creates a monitor probing every interval.
// Services are marked unhealthy after 3 consecutive failures by default.
//
// Parameters:
//   - prober: Probe used for each service
//   - interval: How often to probe (recommended: 30s)
//
// Example:
//
//	monitor := NewMonitor(NewHTTPProber(nil), 30*time.Second)
//	monitor.Start(ctx, coord.Services)
func NewMonitor(prober Prober, interval time.Duration, opts ...MonitorOption) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Monitor{
		prober:      prober,
		interval:    interval,
		timeout:     2 * time.Second,
		maxFailures: 3,
		services:    make(map[string]*ServiceHealth),
		logger:      slog.New(slog.DiscardHandler),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetOnUnhealthy sets the callback invoked when a service becomes unhealthy.
func (m *Monitor) SetOnUnhealthy(callback func(service string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUnhealthy = callback
}

// Start probes the services returned by provider in the background until
// ctx or the monitor is canceled. Stop waits for the probing to end.
//
// Parameters:
//   - ctx: Context for cancellation
//   - provider: Function returning the services of the active supergraph
//
// Example:
//
//	monitor.Start(ctx, func() []supergraph.Service {
//	    return coord.Services()
//	})
//	defer monitor.Stop()
func (m *Monitor) Start(ctx context.Context, provider func() []supergraph.Service) {
	if ctx == nil {
		ctx = m.ctx
	}
	m.wg.Add(1)
	go m.run(ctx, provider)
}

func (m *Monitor) run(ctx context.Context, provider func() []supergraph.Service) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("service health monitor started", "interval", m.interval)

	m.checkAll(ctx, provider())

	for {
		select {
		case <-ticker.C:
			m.checkAll(ctx, provider())
		case <-ctx.Done():
			m.logger.Debug("service health monitor stopping", "reason", "context canceled")
			return
		case <-m.ctx.Done():
			m.logger.Debug("service health monitor stopping", "reason", "stopped")
			return
		}
	}
}

// Stop shuts the monitor down and waits for Start to return.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
	m.logger.Info("service health monitor stopped")
}

// checkAll probes every service and forgets those that left the supergraph.
func (m *Monitor) checkAll(ctx context.Context, services []supergraph.Service) {
	current := make(map[string]bool, len(services))

	var wg sync.WaitGroup
	for _, svc := range services {
		current[svc.Name] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.check(ctx, svc)
		}()
	}
	wg.Wait()

	m.mu.Lock()
	for name := range m.services {
		if !current[name] {
			delete(m.services, name)
			m.metrics.ForgetService(name)
			m.logger.Info("removed service from health monitoring", "service", name)
		}
	}
	m.mu.Unlock()
}

// check probes one service and updates its record.
func (m *Monitor) check(ctx context.Context, svc supergraph.Service) {
	m.mu.Lock()
	health, exists := m.services[svc.Name]
	if !exists {
		health = &ServiceHealth{
			Service:     svc.Name,
			Status:      StatusUnknown,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		m.services[svc.Name] = health
	}
	health.URL = svc.URL
	m.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(probeCtx, svc)
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	health.LastCheck = time.Now()

	if err != nil {
		health.ConsecutiveFails++
		health.LastError = err.Error()
		m.logger.Warn("service health check failed",
			"service", svc.Name, "url", svc.URL,
			"attempt", health.ConsecutiveFails, "max", m.maxFailures, "error", err)

		if health.ConsecutiveFails >= m.maxFailures {
			previous := health.Status
			health.Status = StatusUnhealthy
			m.metrics.SetServiceHealthy(svc.Name, false)

			if previous != StatusUnhealthy {
				m.logger.Error("service marked unhealthy",
					"service", svc.Name, "failures", health.ConsecutiveFails)
				if m.onUnhealthy != nil {
					// Call callback without holding the lock
					go m.onUnhealthy(svc.Name)
				}
			}
		}
		return
	}

	if health.Status == StatusUnhealthy {
		m.logger.Info("service recovered", "service", svc.Name)
	}
	health.Status = StatusHealthy
	health.ConsecutiveFails = 0
	health.LastError = ""
	health.LastHealthy = time.Now()
	m.metrics.SetServiceHealthy(svc.Name, true)
}

// GetServiceHealth returns a copy of the record for service, or nil when
// the service is not monitored.
func (m *Monitor) GetServiceHealth(service string) *ServiceHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health, exists := m.services[service]
	if !exists {
		return nil
	}
	cp := *health
	return &cp
}

// GetAllServiceHealth returns a copy of every record keyed by service name.
//
// Example:
//
//	for name, health := range monitor.GetAllServiceHealth() {
//	    logger.Info("service health", "service", name, "status", health.Status)
//	}
func (m *Monitor) GetAllServiceHealth() map[string]*ServiceHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*ServiceHealth, len(m.services))
	for name, health := range m.services {
		cp := *health
		result[name] = &cp
	}
	return result
}

// IsHealthy reports whether service passed its last probe.
// Returns false if the service is not monitored.
func (m *Monitor) IsHealthy(service string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health, exists := m.services[service]
	if !exists {
		return false
	}
	return health.Status == StatusHealthy
}
