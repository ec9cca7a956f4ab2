// Package http provides HTTP handlers and middleware for the salon booking API.
//
// The router exposes the following endpoints:
//   - POST /api/create-payment-intent: body {"name","email","date","message"}.
//     Stores a pending booking and returns {"clientSecret","bookingId"}.
//   - POST /api/stripe-webhook: raw Stripe event body verified against the
//     `Stripe-Signature` header. Returns {"received":true,"outcome"} and, when
//     confirmation emails could not be sent, "email_dispatch_error".
//   - POST /api/book: direct booking without payment. Returns 201
//     {"message","bookingId"} or 502 when the confirmation emails fail.
//   - POST /api/contact: body {"name","email","phone","message"}. Returns 201
//     {"message","messageId"}.
//   - POST /api/register: body {"email","password","name"}. Returns 201.
//   - POST /api/sessions: issues a session token. Body {"email","password"}.
//     The token is also surfaced via the `X-Session-Token` header and a
//     `session_token` cookie.
//   - DELETE /api/sessions/current: revokes the token carried by the request.
//   - GET /api/me: profile of the authenticated user.
//   - GET /healthz: liveness probe.
//
// The `date` field accepts RFC 3339 or an HTML datetime-local value
// (2006-01-02T15:04) interpreted in the salon timezone.
//
// Failures are rendered as {"error","error_code","details"}.
package http
