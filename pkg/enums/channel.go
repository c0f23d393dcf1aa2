package enums

import "fmt"

// Channel maps to the channel enum in Postgres.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelChatPush Channel = "CHAT_PUSH"
	ChannelInApp    Channel = "IN_APP"
)

var validChannels = []Channel{
	ChannelEmail,
	ChannelSMS,
	ChannelChatPush,
	ChannelInApp,
}

// Channels returns the closed set of delivery channels.
func Channels() []Channel {
	out := make([]Channel, len(validChannels))
	copy(out, validChannels)
	return out
}

// IsValid reports whether the value matches the canonical channel enum.
func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// DefaultProvider returns the credential bundle name used when an outbox row
// carries no provider hint.
func (c Channel) DefaultProvider() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSMS:
		return "sms"
	case ChannelChatPush:
		return "chat_push"
	case ChannelInApp:
		return "inapp"
	}
	return ""
}

// ParseChannel converts raw input into Channel.
func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}
