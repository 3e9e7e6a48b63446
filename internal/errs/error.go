package errs

import (
	"errors"
)

var (
	ErrInvalidParam            = errors.New("[jreminder] invalid param")
	ErrInvalidChannel          = errors.New("[jreminder] invalid channel")
	ErrInvalidCategory         = errors.New("[jreminder] invalid category")
	ErrInvalidRetryPolicy      = errors.New("[jreminder] invalid retry policy")
	ErrInvalidAttempt          = errors.New("[jreminder] invalid attempt")
	ErrPatientNotFound         = errors.New("[jreminder] patient not found")
	ErrConsentDenied           = errors.New("[jreminder] consent denied")
	ErrMissingDestination      = errors.New("[jreminder] missing destination")
	ErrNoAvailableProvider     = errors.New("[jreminder] no available provider")
	ErrFailedToSend            = errors.New("[jreminder] failed to send notification")
	ErrDispatchInFlight        = errors.New("[jreminder] dispatch already in flight")
	ErrDispatchCanceled        = errors.New("[jreminder] dispatch canceled")
	ErrAttemptPanicked         = errors.New("[jreminder] attempt panicked")
	ErrEscalationNotFound      = errors.New("[jreminder] escalation not found")
	ErrEscalationClosed        = errors.New("[jreminder] escalation already closed")
	ErrPatientCacheKeyNotFound = errors.New("[jreminder] patient cache key not found")
)
