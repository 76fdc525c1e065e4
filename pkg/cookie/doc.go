// Package cookie manages plain, signed and encrypted HTTP cookies.
//
// A Manager is created with one or more secrets of at least 32 bytes. The
// first secret writes, all of them read, so secrets can be rotated by
// prepending a new one.
//
//   - Set, Get, Delete: plain cookies.
//   - SetSigned, GetSigned: HMAC-SHA256, integrity only.
//   - SetEncrypted, GetEncrypted: AES-256-GCM, integrity and privacy.
//
// With WithSecurePrefix, cookies written by a Secure manager are named
// "__Secure-<name>", which browsers only accept over HTTPS.
//
//	man, err := cookie.NewFromConfig(cfg, cookie.WithSecurePrefix(true))
//	err = man.SetEncrypted(w, "session", token)
//	token, err := man.GetEncrypted(r, "session")
package cookie
