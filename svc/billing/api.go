package billing

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dmitrymomot/familykit/pkg/logger"
	"github.com/dmitrymomot/familykit/pkg/paddle"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// API serves the billing HTTP endpoints.
type API struct {
	svc      subscription.Service
	cfg      Config
	metrics  *Metrics
	log      *slog.Logger
	validate *validator.Validate
	limiter  *userRateLimiter
	now      func() time.Time
}

// APIOption configures an API.
type APIOption func(*API)

func WithAPILogger(l *slog.Logger) APIOption {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

func WithAPIMetrics(m *Metrics) APIOption {
	return func(a *API) { a.metrics = m }
}

func WithAPIClock(now func() time.Time) APIOption {
	return func(a *API) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAPI(svc subscription.Service, cfg Config, opts ...APIOption) *API {
	if svc == nil {
		panic("billing: subscription service is required")
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	burst := max(cfg.CheckoutBurst, 1)
	perSecond := cfg.CheckoutRate
	if perSecond <= 0 {
		perSecond = 0.2
	}

	a := &API{
		svc:      svc,
		cfg:      cfg,
		log:      logger.Discard(),
		validate: v,
		limiter:  newUserRateLimiter(perSecond, burst),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("billing_api"))
	return a
}

// Routes mounts the billing endpoints on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/plans", a.listPlans)
	r.Get("/plans/{planID}", a.getPlan)
	r.Post("/webhooks/paddle", a.paddleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)

		r.Get("/subscription", a.getSubscription)
		r.With(a.limiter.middleware(a.log)).Post("/subscription/checkout", a.startCheckout)
		r.Post("/subscription/cancel", a.cancel)
		r.Post("/subscription/reactivate", a.reactivate)
		r.Post("/subscription/reconcile", a.reconcile)
		r.Post("/subscription/sync", a.sync)
		r.Get("/subscription/payments", a.listPayments)

		r.Get("/entitlements", a.entitlements)
		r.Post("/entitlements/check", a.check)
	})
}

// Handler returns a standalone router with the billing endpoints.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	a.Routes(r)
	return r
}

func (a *API) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := a.svc.ListActivePlans(r.Context())
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	lang := requestLanguage(r)
	resp := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, newPlan(p, lang))
	}
	writeData(w, http.StatusOK, resp)
}

func (a *API) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeData(w, http.StatusOK, newPlan(*p, requestLanguage(r)))
}

func (a *API) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, _ := subscription.GetUserIDFromContext(r.Context())
	sub, err := a.svc.GetSubscription(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeData(w, http.StatusOK, newSubscription(sub, a.now()))
}

func (a *API) startCheckout(w http.ResponseWriter, r *http.Request) {
	userID, _ := subscription.GetUserIDFromContext(r.Context())

	var req checkoutRequest
	if !a.decode(w, r, &req) {
		return
	}
	opts := subscription.CheckoutOptions{
		SuccessURL: cmp.Or(req.SuccessURL, a.cfg.CheckoutSuccessURL),
		CancelURL:  cmp.Or(req.CancelURL, a.cfg.CheckoutCancelURL),
		Interval:   subscription.BillingInterval(req.Interval),
	}

	session, err := a.svc.StartCheckout(r.Context(), userID, req.PlanID, opts)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeData(w, http.StatusCreated, checkoutResponse{
		SessionID: session.SessionID,
		URL:       session.URL,
		ExpiresAt: session.ExpiresAt,
	})
}

func (a *API) cancel(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, a.svc.Cancel)
}

func (a *API) reactivate(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, a.svc.Reactivate)
}

func (a *API) reconcile(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, a.svc.Reconcile)
}

func (a *API) sync(w http.ResponseWriter, r *http.Request) {
	a.lifecycle(w, r, a.svc.SyncSubscription)
}

func (a *API) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)) {
	userID, _ := subscription.GetUserIDFromContext(r.Context())
	sub, err := op(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeData(w, http.StatusOK, newSubscription(sub, a.now()))
}

func (a *API) listPayments(w http.ResponseWriter, r *http.Request) {
	userID, _ := subscription.GetUserIDFromContext(r.Context())
	payments, err := a.svc.ListPayments(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeData(w, http.StatusOK, newPayments(payments, requestLanguage(r)))
}

func (a *API) entitlements(w http.ResponseWriter, r *http.Request) {
	userID, _ := subscription.GetUserIDFromContext(r.Context())
	e, err := a.svc.Entitlements(r.Context(), userID)
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	writeData(w, http.StatusOK, newEntitlements(e, requestLanguage(r), a.now()))
}

// check answers 200 with the decision whether or not the action is allowed.
func (a *API) check(w http.ResponseWriter, r *http.Request) {
	userID, _ := subscription.GetUserIDFromContext(r.Context())

	var req checkRequest
	if !a.decode(w, r, &req) {
		return
	}
	d, err := a.svc.Check(r.Context(), userID, subscription.Action(req.Action))
	if err != nil {
		writeError(w, r, a.log, err)
		return
	}
	if a.metrics != nil {
		a.metrics.ObserveDecision(d)
	}
	writeData(w, http.StatusOK, newDecision(d))
}

// paddleWebhook acknowledges with 200 once the event is applied. Rejected
// signatures answer 400 and are not retried by Paddle; storage failures
// answer 500 so Paddle redelivers.
func (a *API) paddleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.cfg.WebhookMaxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook payload too large")
		return
	}

	err = a.svc.HandleWebhook(r.Context(), payload, r.Header.Get(paddle.SignatureHeader))
	if a.metrics != nil {
		a.metrics.observeWebhook(err)
	}
	if err != nil {
		if errors.Is(err, subscription.ErrInvalidEvent) {
			a.log.WarnContext(r.Context(), "webhook rejected", logger.Error(err))
		}
		writeError(w, r, a.log, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"received": true})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response and returns false on failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, r, a.log, err)
		return false
	}
	return true
}
