// Package cache provides the key/value cache used to memoize reads.
//
// A Backend stores raw bytes with a TTL; MemoryBackend keeps them in process
// and RedisBackend shares them across instances. Cache sits in front of a
// backend, encodes values as JSON and swallows backend failures so that an
// outage degrades to cache misses instead of failed requests.
package cache
