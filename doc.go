// Package authkit implements the authentication core of the VeloHub
// platform: bearer/refresh token pairs with rotation, Redis-backed session
// tracking, OTP-driven email verification, and one-time password reset
// tokens.
//
// The package is transport-agnostic. Host applications supply an
// [AccountStore] and an [EmailDispatcher], mount their own HTTP routes, and
// call into [Engine]. Every public operation returns a typed failure from a
// closed set (see errors.go) so callers can map outcomes to responses
// without string matching.
package authkit
