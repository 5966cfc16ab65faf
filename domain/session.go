// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Session is a connection-bound client identity. It exists from the moment a
// connection is registered until it disconnects, and never survives the
// connection. The same display name may be held by several live sessions:
// each connection is an independent session.
type Session struct {
	ID          string
	DisplayName string
	ConnectedAt time.Time
}
