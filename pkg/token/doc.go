// Package token produces compact signed tokens that carry a JSON payload
// and an expiry.
//
// Format: base64url(envelope).base64url(hmac-sha256(envelope)), where the
// envelope is {"p": payload, "e": unix-expiry}. Tokens are not encrypted;
// anyone can read the payload.
//
//	tok, err := token.Generate(Cooldown{Email: email}, secret, time.Minute)
//	c, err := token.Parse[Cooldown](tok, secret)
package token
