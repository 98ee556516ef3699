package membership

import "errors"

var (
	ErrTierNotFound         = errors.New("tier not found")
	ErrTierInactive         = errors.New("tier is not active")
	ErrTierHasSubscribers   = errors.New("tier has or had subscribers")
	ErrTierCapacityExceeded = errors.New("tier capacity exceeded")
	ErrCapacityBelowCount   = errors.New("tier capacity cannot drop below the current subscriber count")
	ErrInvalidTierPrice     = errors.New("tier price must be positive")
	ErrInvalidTierCapacity  = errors.New("tier capacity must be positive when set")
	ErrInvalidInterval      = errors.New("invalid billing interval")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrAlreadySubscribed    = errors.New("subscriber already has a current subscription with this creator")
	ErrSelfSubscription     = errors.New("creators cannot subscribe to their own tiers")
	ErrInvalidTransition    = errors.New("invalid subscription state transition")
	ErrNotSubscriptionOwner = errors.New("caller does not own this subscription")
	ErrNotTierOwner         = errors.New("caller does not own this tier")
	ErrUnknownEventType     = errors.New("unknown event type")
	ErrMissingCorrelation   = errors.New("event is missing correlation metadata")
)
