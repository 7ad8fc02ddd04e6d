// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The wall-clock timer scheduler used for heartbeats and timeouts: a
// min-heap of pending callbacks drained by a single goroutine. Unrelated to
// the io-multiplexing scheduler package, which drives readiness events.
package concurrency
