// Package auth implements the authentication flows of the application:
// e-mail and password, e-mail verification, magic links, e-mail one-time
// passwords, OAuth (Google) and user administration.
//
// Services are independent and depend only on narrow storage interfaces:
//
//	users := auth.NewMemoryStorage()
//	codes := auth.NewMemoryVerificationStore()
//
//	passwords := auth.NewPasswordService(users, codes)
//	otp := auth.NewOTPService(users, codes)
//
//	user, err := passwords.Register(ctx, auth.RegisterParams{Name: "Ada", Email: email, Password: pw})
//
// Services never send e-mail. Operations that need a message return the
// token or code, and the caller renders and delivers it.
//
// # Verification store
//
// Short-lived secrets (reset tokens, magic link tokens, OTPs, OAuth state)
// live in a VerificationStore keyed by identifier. Memory and Redis
// implementations are provided here; a Postgres one lives with the
// database layer. Consume is atomic, so a token can be redeemed once.
//
// # Errors
//
// Sentinel errors carry dotted keys, for example auth.invalid_credentials,
// and are matched with errors.Is. Input problems are reported as
// validator.ValidationErrors.
package auth
