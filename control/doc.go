// Package control
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with snapshot reads and hot-reload
// listener propagation, used by the facade to expose the io scheduler's
// concurrency hint for observability.
package control
