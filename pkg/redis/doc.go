// Package redis connects go-redis clients with retry and provides a small
// token-based distributed lock.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	lock := redis.NewLock(client, "checkout:", 2*time.Minute)
//	ok, err := lock.Acquire(ctx, userID.String())
package redis
