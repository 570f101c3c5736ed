// Package alerts matches broadcast emergency alerts against watcher positions.
package alerts

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/saferoute/saferoute/pkg/polyline"
)

// Defaults for matching.
const (
	DefaultRadiusMeters     = 500
	DefaultNotifiedCapacity = 256
)

// Sentinel errors for matching.
var (
	// ErrInvalidAlert is returned for alerts that cannot be matched.
	ErrInvalidAlert = errors.New("invalid alert")
	// ErrInvalidPosition is returned for watcher positions out of range.
	ErrInvalidPosition = errors.New("invalid watcher position")
)

// Alert is an emergency broadcast raised by a user at a location.
type Alert struct {
	ID     string
	UserID string
	Origin polyline.Coordinate
	// RadiusMeters is how far the alert reaches; zero means DefaultRadiusMeters.
	RadiusMeters float64
	Message      string
	CreatedAt    time.Time
}

// Validate checks the alert can be matched.
func (a Alert) Validate() error {
	switch {
	case a.ID == "":
		return errors.Join(ErrInvalidAlert, errors.New("id is required"))
	case !a.Origin.Valid():
		return errors.Join(ErrInvalidAlert, errors.New("origin out of range"))
	case math.IsNaN(a.RadiusMeters) || math.IsInf(a.RadiusMeters, 0):
		return errors.Join(ErrInvalidAlert, errors.New("radius must be finite"))
	case a.RadiusMeters < 0:
		return errors.Join(ErrInvalidAlert, errors.New("radius must not be negative"))
	}
	return nil
}

// Notification tells a watcher about an alert nearby.
type Notification struct {
	AlertID        string
	WatcherID      string
	DistanceMeters float64
	Alert          Alert
	NotifiedAt     time.Time
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }
