// Package redis stores documents in Redis and provides the distributed locker used to
// keep write-back jobs from several processes off the same document.
package redis
