// Package session issues and resolves authenticated user sessions.
//
// A Manager ties a Store (where sessions live) to a Transport (how the
// session token travels between browser and server). Sessions are created
// only on successful authentication; there are no anonymous sessions.
//
//	┌────────┐   token   ┌────────────┐
//	│ Client │ ────────► │  Transport │
//	└────────┘           └────────────┘
//	                           │
//	                           ▼
//	┌─────────────────────────────────┐
//	│            Manager              │
//	└─────────────────────────────────┘
//	       │   CRUD / TTL
//	       ▼
//	┌─────────────────────────────────┐
//	│   Store (memory, redis, pg)     │
//	└─────────────────────────────────┘
//
// # Expiry
//
// A session expires ExpiresIn after it was last refreshed, and never later
// than MaxLifetime after creation. Resolve refreshes the expiry once the
// session is older than UpdateAge, so an active user is never signed out
// while an idle one is. Last-activity timestamps are written by a
// background worker at most once per ActivityUpdateThreshold.
//
// # Usage
//
//	cookies, _ := cookie.NewFromConfig(cookieCfg, cookie.WithSecurePrefix(true))
//	mgr := session.NewFromConfig(cfg,
//		session.WithStore(session.NewRedisStore(client, "")),
//		session.WithCookieManager(cookies),
//	)
//	defer mgr.Close()
//
//	// After a successful sign-in:
//	sess, err := mgr.Issue(ctx, w, r, user.ID)
//
//	// On every request:
//	sess, err := mgr.Resolve(ctx, w, r)
//
// DestroyUser revokes every session of a user, which is what banning and
// password resets rely on.
package session
