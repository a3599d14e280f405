package ws

import "time"

type ConnInfo struct {
	ConnID      string
	Key         ChannelKey
	Attempt     int
	TraceID     string
	ConnectedAt time.Time
}
