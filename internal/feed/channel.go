package feed

import (
	"github.com/suspectuso/parqr-companion/internal/features"
)

// Channel is one independently polled notification feed
type Channel string

const (
	ChannelChat        Channel = "chat"
	ChannelMoveRequest Channel = "move_request"
)

// Channels returns every known channel in display order
func Channels() []Channel {
	return []Channel{ChannelChat, ChannelMoveRequest}
}

// Allowed reports whether the capability set entitles the user to poll this channel.
// Chat needs chat access; move requests are open to every tier.
func (c Channel) Allowed(fs features.Set) bool {
	switch c {
	case ChannelChat:
		return fs.CanAccessChat
	case ChannelMoveRequest:
		return true
	default:
		return false
	}
}

func (c Channel) String() string {
	return string(c)
}
