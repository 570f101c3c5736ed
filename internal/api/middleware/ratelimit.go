package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/saferoute/saferoute/internal/api/models"
)

// RateLimitConfig is a fixed-window budget for one class of endpoint.
type RateLimitConfig struct {
	// Name appears in the 429 detail so clients can tell budgets apart.
	Name         string
	RequestLimit int
	WindowLength time.Duration
}

// Budgets per endpoint class. Route computation fans out to every provider
// and analyzer, so it gets the tightest non-auth budget.
var (
	AuthRateLimit      = RateLimitConfig{Name: "auth", RequestLimit: 10, WindowLength: time.Minute}
	ExpensiveRateLimit = RateLimitConfig{Name: "route computation", RequestLimit: 30, WindowLength: time.Minute}
	PositionRateLimit  = RateLimitConfig{Name: "position updates", RequestLimit: 120, WindowLength: time.Minute}
	AlertRateLimit     = RateLimitConfig{Name: "alerts", RequestLimit: 5, WindowLength: time.Minute}
	StandardRateLimit  = RateLimitConfig{Name: "standard", RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits by client address. Run chi's RealIP first behind a proxy.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, httprate.KeyByRealIP)
}

// RateLimitByUser limits by authenticated user, falling back to the client
// address when the request is anonymous.
func RateLimitByUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limit(cfg, func(r *http.Request) (string, error) {
		if userID := GetUserID(r.Context()); userID != "" {
			return "user:" + userID, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func limit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	name := cfg.Name
	if name == "" {
		name = "request"
	}
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Round(time.Second) / time.Second))
	detail := fmt.Sprintf("Rate limit exceeded for %s. Please try again later.", name)

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// A fixed window resets at most one window length from now.
			w.Header().Set("Retry-After", retryAfter)
			problem := models.NewTooManyRequests(GetRequestID(r.Context()), detail)
			problem.Instance = r.URL.Path
			problem.Write(w)
		}),
	)
}
