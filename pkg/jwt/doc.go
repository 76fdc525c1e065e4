// Package jwt signs and verifies HS256 JSON Web Tokens on top of
// github.com/golang-jwt/jwt/v5.
//
// The service is used for short-lived, self-contained credentials: e-mail
// verification links and the signed session cookie cache.
//
//	svc, err := jwt.New([]byte(secret), jwt.WithIssuer("authstarter"))
//	tok, err := svc.Generate(jwt.NewClaims("user-id", 24*time.Hour))
//
//	var claims jwt.Claims
//	err = svc.Parse(tok, &claims)
//
// Custom claim types embed jwt.RegisteredClaims.
package jwt
