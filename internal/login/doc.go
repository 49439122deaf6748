// Package login decides how a caller obtains a usable Meta access token.
//
// Login applies a fixed decision order and always returns a Result:
//
//  1. capability disabled: status "disabled", no side effects
//  2. manual token supplied: "manual_token" success, cache untouched
//  3. valid cached token: "cached_token" success
//  4. otherwise: an authorization URL from the auth manager, with
//     instructions. Completion happens asynchronously through the
//     callback listener.
//
// Failures never escape as errors or panics. They become Results with
// status "error", the error kind, and at least one troubleshooting hint.
package login
