package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"batepapo/backend/pkg/logger"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
	// StatusDegraded indicates a component is working but with reduced functionality
	StatusDegraded Status = "degraded"
)

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Description string    `json:"description,omitempty"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
	critical    bool
}

// Check represents a health check function
type Check func(ctx context.Context) (Status, string, error)

// Checker manages health checks for the system
type Checker struct {
	checks      map[string]Check
	components  map[string]*Component
	checkPeriod time.Duration
	timeout     time.Duration
	mutex       sync.RWMutex
	log         *logger.Logger
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger, checkPeriod time.Duration) *Checker {
	checker := &Checker{
		checks:      make(map[string]Check),
		components:  make(map[string]*Component),
		checkPeriod: checkPeriod,
		timeout:     5 * time.Second,
		log:         log,
	}

	checker.RegisterCheck("self", false, func(context.Context) (Status, string, error) {
		return StatusUp, "Health checker is running", nil
	})

	return checker
}

// RegisterCheck registers a new health check. A critical component that is
// down makes the whole system unhealthy.
func (c *Checker) RegisterCheck(name string, critical bool, check Check) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.checks[name] = check
	c.components[name] = &Component{
		Name:        name,
		Status:      StatusDown,
		Description: "Not checked yet",
		critical:    critical,
	}
}

// RegisterStoreCheck registers a critical check backed by a ping function
func (c *Checker) RegisterStoreCheck(name string, ping func(ctx context.Context) error) {
	c.RegisterCheck(name, true, func(ctx context.Context) (Status, string, error) {
		if err := ping(ctx); err != nil {
			return StatusDown, "Store is unreachable", err
		}
		return StatusUp, "Store is reachable", nil
	})
}

// RunChecks executes all registered health checks
func (c *Checker) RunChecks(ctx context.Context) {
	c.mutex.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mutex.RUnlock()

	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		status, description, err := check(checkCtx)
		cancel()

		c.mutex.Lock()
		component := c.components[name]
		component.Status = status
		component.Description = description
		component.LastChecked = time.Now()
		if err != nil {
			component.Error = err.Error()
		} else {
			component.Error = ""
		}
		c.mutex.Unlock()

		if err != nil {
			c.log.Error("Health check failed",
				"component", name,
				"status", string(status),
				"error", err.Error(),
			)
		} else {
			c.log.Debug("Health check completed",
				"component", name,
				"status", string(status),
			)
		}
	}
}

// Start runs the checks immediately and then periodically until ctx is cancelled
func (c *Checker) Start(ctx context.Context) {
	go func() {
		c.RunChecks(ctx)

		ticker := time.NewTicker(c.checkPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RunChecks(ctx)
			}
		}
	}()
}

// GetStatus returns the current health status
func (c *Checker) GetStatus() map[string]*Component {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	// Copies keep callers away from the lock
	result := make(map[string]*Component, len(c.components))
	for k, v := range c.components {
		componentCopy := *v
		result[k] = &componentCopy
	}

	return result
}

// IsSystemHealthy returns true if all critical components are up
func (c *Checker) IsSystemHealthy() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	for _, component := range c.components {
		if component.critical && component.Status == StatusDown {
			return false
		}
	}
	return true
}

// HTTPHandler returns an HTTP handler for health checks
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := c.GetStatus()

		w.Header().Set("Content-Type", "application/json")

		status := "ok"
		if !c.IsSystemHealthy() {
			status = "unavailable"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		response := map[string]any{
			"status":     status,
			"timestamp":  time.Now(),
			"components": components,
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			c.log.Error("Failed to encode health check response", "error", err.Error())
		}
	}
}
