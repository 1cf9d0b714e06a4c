// Package billing wires the subscription core to its infrastructure.
//
// It provides the Postgres stores (plans, subscriptions, users and the usage
// counters behind quota actions), the Redis reconciliation journal and
// checkout lock, the YAML plan catalogue, Prometheus instrumentation of the
// payment processor, the email notifier and the chi HTTP API:
//
//	GET  /plans                      active plans, cheapest first
//	GET  /plans/{planID}
//	GET  /subscription               requires X-User-ID
//	POST /subscription/checkout      rate limited per user
//	POST /subscription/cancel
//	POST /subscription/reactivate
//	POST /subscription/reconcile     finish a local write owed after a processor change
//	POST /subscription/sync          re-read status from the processor
//	GET  /subscription/payments      last 10 invoices, newest first
//	GET  /entitlements
//	POST /entitlements/check
//	POST /webhooks/paddle
//
// Every response uses the {data, meta, error} envelope. RequireEntitlement
// gates product endpoints: quota denials answer 402, feature denials 403.
package billing
