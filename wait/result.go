// Package wait implements the atomic single-waiter notifier and the
// multi-waiter wait-list (local and thread-safe variants) that every
// channel, mutex, and notify primitive in this module parks on.
package wait

// Result carries either a value or an error to a completion callback —
// this module's stand-in for the source material's Result<T, Error>.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a value with no error.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Error wraps an error with a zero value.
func Error[T any](err error) Result[T] { return Result[T]{Err: err} }
