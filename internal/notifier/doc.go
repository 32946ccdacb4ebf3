// Package notifier composes outbound notification emails and hands them to
// the delivery gate.
//
// # Contract
//
// Dispatch runs in one pass on the calling goroutine:
//
//	Received -> HeadersBuilt -> AudienceResolved -> Composed -> GateChecked
//	         -> Delivered | Suppressed | Failed
//
//  1. Identity headers are built: event kind, entity id, sender login,
//     Message-ID and References. A referenced entity without timestamps
//     fails with domain.ErrMissingTimestamp.
//  2. The recipient policy removes the actor when they opted out of their
//     own notices and moves everyone to Bcc when blind copies are enabled.
//  3. An empty audience ends the dispatch with a suppressed outcome; the
//     transport is never called.
//  4. Infrastructure headers are added (X-Mailer, host, site, auto-reply
//     suppression, List-Id) and the body is rendered in the resolved
//     language.
//  5. The delivery gate sends, suppresses or reports the failure.
//
// # Scoped settings
//
// The message language and the raise-on-error and perform-deliveries flags
// are per call. The language travels in a derived context and the flags are
// Options, so concurrent dispatches never observe each other's settings and
// the caller's context is left as it was.
package notifier
