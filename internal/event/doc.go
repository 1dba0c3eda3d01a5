// Package event implements auto-reset events that live in shared memory.
//
// An event is a uint32 state word (0 clear, 1 signaled). Several events share
// one wake word: Signal sets the state, bumps the wake word and wakes every
// waiter on it. WaitAny consumes the first signaled state in argument order.
//
// On Linux the wake word is a non-private futex, so waiters in other processes
// mapping the same file are woken directly. Other platforms fall back to a
// sleep loop with exponential backoff bounded by maxBackoff.
package event
