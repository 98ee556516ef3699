package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// EventID records the processor event identifier under the key "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records the processor event type under the key "event_type".
func EventType(t string) slog.Attr {
	return slog.String("event_type", t)
}

// SubscriptionID records the subscription identifier under the key "subscription_id".
func SubscriptionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("subscription_id", id)
}

// TierID records the tier identifier under the key "tier_id".
func TierID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tier_id", id)
}

// SubscriberID records the subscriber identifier under the key "subscriber_id".
func SubscriberID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("subscriber_id", id)
}

// CreatorID records the creator identifier under the key "creator_id".
func CreatorID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("creator_id", id)
}

// ProviderRef records the external processor subscription reference.
func ProviderRef(ref string) slog.Attr {
	return slog.String("provider_ref", ref)
}
