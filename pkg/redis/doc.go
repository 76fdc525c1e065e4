// Package redis connects to Redis through go-redis and exposes a readiness
// probe. The client backs the session, verification and rate limit stores
// when secondary storage is set to redis.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	probe := redis.Healthcheck(client)
package redis
