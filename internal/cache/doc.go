// Package cache stores synthesized speech so recurring captions do not hit a
// provider twice. A small in-memory LRU sits in front of a zstd-compressed
// directory on disk.
package cache
