// Package cache provides the bounded LRU cache used for compiled shader
// programs.
//
// Compiling WGSL through naga is far more expensive than a draw, and
// filters rebuild their programs whenever a parameter changes. Backends key
// compiled modules by a hash of the source so a program that comes back
// (a slider dragged back and forth, a filter swapped in again) is not
// compiled twice.
package cache
