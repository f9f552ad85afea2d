// Package session maps opaque browser sessions to cached Redis connection
// handles. A handle is created lazily on the first request of a session,
// reused by every later request, and closed by a periodic sweep once the
// session has been idle longer than the configured timeout.
package session
