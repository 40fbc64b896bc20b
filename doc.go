// Package session owns the client-side session and authorization core for
// the catalog/review application: in-memory JWT lifecycle, silent refresh
// scheduling, role gating, an authenticated API client, and the audit-event
// batching pipeline.
//
// Session lifecycle:
//   - Manager holds the access token and its decoded claims in process memory
//     only. Both are set and cleared together; there is no state where one is
//     present without the other. A successful login or silent refresh replaces
//     them wholesale and arms a one-shot refresh timer; logout, a failed
//     refresh, or an intercepted 401 tears everything down.
//   - Claims are decoded, never verified. They exist for display and
//     optimistic UX gating; the server remains the sole authority for every
//     authorization decision that matters.
//
// Audit pipeline:
//   - AuditLogger queues immutable events and flushes them in batches on a
//     timer, with a final synchronous drain on Close. Delivery is best-effort:
//     audit failures never block or fail a user-facing operation. Emails are
//     recorded as one-way digests, search terms as lengths.
//
// Wiring:
//   - New builds the whole core in dependency order (correlation ID, audit
//     logger, session manager, API client, guards, catalog) and returns a
//     single App container constructed once at startup. The API client takes
//     the manager as its TokenSource directly; there is no late-bound
//     accessor.
package session
