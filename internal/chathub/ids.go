package chathub

import "github.com/google/uuid"

const (
	directRoomPrefix = "dm_"
	groupRoomPrefix  = "grp_"
	messagePrefix    = "msg_"
)

// newID returns prefix + a UUIDv7, which sorts by creation time.
func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + id.String()
}
