// Package health runs component health checks for the calculator service:
// the result cache, the feedback store and the reference tables.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State string

const (
	StateHealthy   State = "healthy"
	StateWarning   State = "warning"
	StateUnhealthy State = "unhealthy"
	StateUnknown   State = "unknown"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name        string                 `json:"name"`
	Status      State                  `json:"status"`
	Message     string                 `json:"message"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Status aggregates every component check.
type Status struct {
	Overall    State                      `json:"overall"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	CheckCount int64                      `json:"check_count"`
}

// Check is one health probe.
type Check interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// Config controls the checker.
type Config struct {
	Version       string
	Timeout       time.Duration
	CheckInterval time.Duration
}

// Checker runs registered checks on demand or on a ticker.
type Checker struct {
	config  Config
	logger  *logrus.Logger
	started time.Time

	mu     sync.RWMutex
	checks map[string]Check
	status Status

	stopOnce sync.Once
	stop     chan struct{}
}

func NewChecker(config Config, logger *logrus.Logger) *Checker {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 30 * time.Second
	}
	return &Checker{
		config:  config,
		logger:  logger,
		started: time.Now(),
		checks:  make(map[string]Check),
		status:  Status{Overall: StateUnknown, Version: config.Version, Components: map[string]ComponentHealth{}},
		stop:    make(chan struct{}),
	}
}

// Register adds or replaces a check by name.
func (h *Checker) Register(check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[check.Name()] = check
}

// Names returns the registered check names, sorted.
func (h *Checker) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check in parallel and stores the result.
func (h *Checker) Run(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	h.mu.RLock()
	checks := make([]Check, 0, len(h.checks))
	for _, c := range h.checks {
		checks = append(checks, c)
	}
	h.mu.RUnlock()

	results := make(chan ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for _, c := range checks {
		wg.Add(1)
		go func(c Check) {
			defer wg.Done()
			start := time.Now()
			res := c.Check(ctx)
			res.Name = c.Name()
			res.LastChecked = time.Now()
			res.Duration = time.Since(start)
			results <- res
		}(c)
	}
	wg.Wait()
	close(results)

	components := make(map[string]ComponentHealth, len(checks))
	overall := StateHealthy
	var unhealthy []string
	for res := range results {
		components[res.Name] = res
		switch res.Status {
		case StateUnhealthy:
			overall = StateUnhealthy
			unhealthy = append(unhealthy, res.Name)
		case StateWarning:
			if overall == StateHealthy {
				overall = StateWarning
			}
		}
	}
	sort.Strings(unhealthy)

	h.mu.Lock()
	h.status = Status{
		Overall:    overall,
		Version:    h.config.Version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Timestamp:  time.Now(),
		Components: components,
		CheckCount: h.status.CheckCount + 1,
	}
	status := h.copyStatusLocked()
	h.mu.Unlock()

	if overall != StateHealthy {
		h.logger.WithFields(logrus.Fields{
			"overall_status":       overall,
			"unhealthy_components": unhealthy,
		}).Warn("Health check completed with issues")
	} else {
		h.logger.Debug("Health check completed successfully")
	}
	return status
}

// Status returns the most recent result without running checks.
func (h *Checker) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.copyStatusLocked()
}

func (h *Checker) copyStatusLocked() Status {
	status := h.status
	status.Components = make(map[string]ComponentHealth, len(h.status.Components))
	for k, v := range h.status.Components {
		status.Components[k] = v
	}
	return status
}

// Start runs checks immediately and then every CheckInterval until Stop.
func (h *Checker) Start(ctx context.Context) {
	h.Run(ctx)
	ticker := time.NewTicker(h.config.CheckInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Run(ctx)
			case <-h.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	h.logger.WithField("interval", h.config.CheckInterval).Info("Health checker started")
}

func (h *Checker) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.logger.Info("Health checker stopped")
	})
}
