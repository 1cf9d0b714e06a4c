package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/familykit/pkg/logger"
	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// Response is the JSON envelope of every API answer.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Data: data})
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Response{Error: &ErrorDetail{Code: code, Message: message}})
}

// writeError maps a service error to a status code and stable error code.
// Unclassified errors are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("code", detail.Code),
			logger.Error(err),
		)
	}
	resp := Response{Error: detail}
	var pe *subscription.ProcessorError
	if errors.As(err, &pe) {
		resp.Meta = map[string]any{"retryable": subscription.IsRetryable(err), "outcome_unknown": pe.OutcomeUnknown}
	} else if errors.Is(err, subscription.ErrReconciliation) {
		resp.Meta = map[string]any{"retryable": true}
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, *ErrorDetail) {
	var verrs validator.ValidationErrors
	var pe *subscription.ProcessorError
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, validationDetail(verrs)
	case errors.Is(err, subscription.ErrPlanNotFound):
		return http.StatusNotFound, &ErrorDetail{Code: "plan_not_found", Message: "plan not found"}
	case errors.Is(err, subscription.ErrUserNotFound):
		return http.StatusNotFound, &ErrorDetail{Code: "user_not_found", Message: "user not found"}
	case errors.Is(err, subscription.ErrSubscriptionNotFound):
		return http.StatusNotFound, &ErrorDetail{Code: "subscription_not_found", Message: "no subscription found"}
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		return http.StatusConflict, &ErrorDetail{Code: "already_subscribed", Message: "you already have an active subscription"}
	case errors.Is(err, subscription.ErrAlreadyCanceled):
		return http.StatusConflict, &ErrorDetail{Code: "already_canceled", Message: "subscription is already canceled"}
	case errors.Is(err, subscription.ErrCheckoutInProgress):
		return http.StatusConflict, &ErrorDetail{Code: "checkout_in_progress", Message: "a checkout is already in progress"}
	case errors.Is(err, subscription.ErrPlanNotAvailable):
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "plan_not_available", Message: "plan is not available for purchase"}
	case errors.Is(err, subscription.ErrIntervalNotAvailable):
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "interval_not_available", Message: "billing interval is not available for this plan"}
	case errors.Is(err, subscription.ErrInvalidEvent):
		return http.StatusBadRequest, &ErrorDetail{Code: "invalid_event", Message: "webhook rejected"}
	case errors.As(err, &pe) && pe.OutcomeUnknown:
		return http.StatusGatewayTimeout, &ErrorDetail{Code: "processor_outcome_unknown", Message: "payment processor did not answer in time, check the subscription status before retrying"}
	case errors.Is(err, subscription.ErrPaymentProcessor):
		return http.StatusBadGateway, &ErrorDetail{Code: "processor_error", Message: "payment processor request failed"}
	case errors.Is(err, subscription.ErrReconciliation):
		return http.StatusInternalServerError, &ErrorDetail{Code: "reconciliation_pending", Message: "change accepted by the payment processor but not saved yet, retry to finish"}
	default:
		return http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: "internal server error"}
	}
}

func validationDetail(verrs validator.ValidationErrors) *ErrorDetail {
	details := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = append(details[fe.Field()], fe.Tag())
	}
	return &ErrorDetail{Code: "validation_error", Message: "request validation failed", Details: details}
}
