// Package subscription gates family-app features and quotas on the user's plan
// and manages the subscription lifecycle against an external payment processor.
//
// A Plan carries monthly and optional yearly prices, numeric limits (child
// profiles, memories per month, family members) and boolean features. Limits
// equal to UnlimitedProfiles or UnlimitedMemories mean "no limit" and are
// rendered as "unlimited" by FormatLimit.
//
// # Entitlements
//
// Evaluate is a pure function: given a plan, the subscription status and the
// current usage it returns a Decision with a machine-readable DenyReason and a
// human Message. Service.Check resolves the plan and counts usage live through
// registered UsageCounter callbacks, so limits are always checked against the
// current number of resources:
//
//	svc := subscription.NewService(plans, store, users, processor,
//		subscription.WithUsageCounter(subscription.ActionCreateProfile, countProfiles),
//		subscription.WithFreePlan("free"),
//	)
//
//	d, err := svc.Check(ctx, userID, subscription.ActionCreateProfile)
//	if err != nil {
//		return err
//	}
//	if !d.Allowed {
//		return errors.New(d.Message())
//	}
//
// Feature checks pass the subscribed plan's flag through. Quotas of a
// past_due or canceled subscription fall back to the free plan.
//
// # Lifecycle
//
// StartCheckout never writes a subscription row. The row appears when the
// processor confirms payment and the event is fed to ApplyEvent (or
// HandleWebhook for raw payloads).
//
// Cancel and Reactivate toggle cancel-at-period-end. The processor is always
// called first. When the processor succeeds and the local write fails, a
// *ReconciliationError is returned and the owed write is kept in the
// ReconciliationJournal; a retry of the same call, or Reconcile, completes it
// without calling the processor again. A *ProcessorError with OutcomeUnknown
// set means the remote call timed out; use SyncSubscription instead of
// retrying.
//
// The status machine is:
//
//	active|trialing --payment_failed--> past_due --payment_succeeded--> active
//	active|trialing|past_due --period end with flag--> canceled
//
// canceled is terminal; a new checkout starts a new subscription.
package subscription
