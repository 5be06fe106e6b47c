// Package redis provides the go-redis connection used by the Redis remote
// backend and the single-controller lease.
//
// Only one engine may drive a robot node at a time. Lease implements that
// with SET NX PX on "<node>:controller"; the holder renews it at a third of
// the TTL and releases it on shutdown with a token-checked delete.
package redis
