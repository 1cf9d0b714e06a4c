package billing

import "errors"

var (
	ErrFailedToLoadCatalogue = errors.New("failed to load plan catalogue")
	ErrEmptyCatalogue        = errors.New("plan catalogue has no plans")
	ErrDuplicatePlan         = errors.New("duplicate plan ID in catalogue")
	ErrInvalidLimit          = errors.New("invalid plan limit")
	ErrFailedToSeedPlans     = errors.New("failed to seed plans")

	ErrFailedToLoadSubscription = errors.New("failed to load subscription")
	ErrFailedToSaveSubscription = errors.New("failed to save subscription")
	ErrFailedToLoadUser         = errors.New("failed to load user")
	ErrFailedToCountUsage       = errors.New("failed to count usage")

	ErrJournal = errors.New("reconciliation journal error")
	ErrLocker  = errors.New("checkout lock error")
)
