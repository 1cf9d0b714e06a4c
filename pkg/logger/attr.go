package logger

import (
	"log/slog"
	"time"
)

// Error records err under the key "error". A nil error yields an empty Attr,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the acting user under the key "user_id".
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

func PlanID(id string) slog.Attr {
	return slog.String("plan_id", id)
}

// SubscriptionID records the processor's subscription reference.
func SubscriptionID(id string) slog.Attr {
	return slog.String("provider_sub_id", id)
}

func Action(action string) slog.Attr {
	return slog.String("action", action)
}

func Reason(reason string) slog.Attr {
	return slog.String("reason", reason)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Group nests attrs under name.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}
