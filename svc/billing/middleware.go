package billing

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/familykit/pkg/logger"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// UserIDHeader carries the authenticated user. It is set by the gateway in
// front of this service and must never be accepted from the public internet.
const UserIDHeader = "X-User-ID"

// RequireUser stores the user from UserIDHeader in the request context and
// rejects requests without a valid one.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(UserIDHeader))
		if err != nil || id == uuid.Nil {
			writeProblem(w, http.StatusUnauthorized, "unauthorized", "missing or invalid user")
			return
		}
		next.ServeHTTP(w, r.WithContext(subscription.SetUserIDToContext(r.Context(), id)))
	})
}

// RequireEntitlement lets the request through only when the user may perform
// action. Quota denials answer 402 so clients can offer an upgrade; feature
// and plan denials answer 403. Must run after RequireUser.
func RequireEntitlement(svc subscription.Service, action subscription.Action, m *Metrics, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := subscription.GetUserIDFromContext(r.Context())
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "unauthorized", "missing or invalid user")
				return
			}
			d, err := svc.Check(r.Context(), userID, action)
			if err != nil {
				writeError(w, r, log, err)
				return
			}
			if m != nil {
				m.ObserveDecision(d)
			}
			if !d.Allowed {
				status := http.StatusForbidden
				if action.IsQuota() && d.Reason != subscription.ReasonNoPlan {
					status = http.StatusPaymentRequired
				}
				writeJSON(w, status, Response{
					Data:  newDecision(d),
					Error: &ErrorDetail{Code: string(d.Reason), Message: d.Message()},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// userRateLimiter keeps one token bucket per user.
type userRateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	limiters map[uuid.UUID]*limiterEntry
	lastGC   time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserRateLimiter(perSecond float64, burst int) *userRateLimiter {
	return &userRateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		limiters: make(map[uuid.UUID]*limiterEntry),
		lastGC:   time.Now(),
	}
}

func (l *userRateLimiter) allow(userID uuid.UUID) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > l.idle {
		for id, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.limiters, id)
			}
		}
		l.lastGC = now
	}

	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// middleware answers 429 once the user exhausts their bucket.
func (l *userRateLimiter) middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := subscription.GetUserIDFromContext(r.Context())
			if !l.allow(userID) {
				log.WarnContext(r.Context(), "rate limit exceeded", logger.UserID(userID), slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "5")
				writeProblem(w, http.StatusTooManyRequests, "too_many_requests", "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	supportedLanguages = []language.Tag{language.English, language.German, language.French, language.Spanish}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// requestLanguage picks the display language for prices from Accept-Language.
func requestLanguage(r *http.Request) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return supportedLanguages[idx]
}

// UserIDExtractor adds user_id to log records written with a request context
// that passed RequireUser.
func UserIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := subscription.GetUserIDFromContext(ctx); ok {
			return logger.UserID(id), true
		}
		return slog.Attr{}, false
	}
}
