// Package token signs and verifies the HS256 access/refresh token pair.
// Access tokens carry {sub, role, verified, token_type}; refresh tokens
// carry {sub, verified, token_type, jti} where jti equals the session ID.
package token
