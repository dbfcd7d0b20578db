package database

import (
	"context"
	"time"

	"github.com/trendora/platform/component"
)

// Component adapts an open DB to the platform lifecycle. The connection is
// opened by the service entrypoint (stores need it before components start),
// so Start only verifies it is alive.
type Component struct {
	db *DB
}

var _ component.Component = (*Component)(nil)

// NewComponent wraps an open database handle.
func NewComponent(db *DB) *Component {
	return &Component{db: db}
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start pings the data store.
func (c *Component) Start(ctx context.Context) error {
	return c.db.Ping(ctx)
}

// Stop closes the connection pool.
func (c *Component) Stop(ctx context.Context) error {
	return c.db.Close()
}

// Health pings the data store with a short deadline.
func (c *Component) Health(ctx context.Context) component.Health {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(pingCtx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: err.Error(),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}
