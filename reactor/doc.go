// File: reactor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor provides the production api.Poller implementations: a
// level-triggered epoll multiplexer on Linux and a poll(2) fallback on
// other unix platforms. The engine registers its completion wakeup
// descriptor here; applications typically drive the same poller from a
// loop.Loop so completions and task resumptions share one scheduler
// goroutine.
package reactor
