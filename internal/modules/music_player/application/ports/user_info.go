package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// UserInfo contains display information for a Discord user.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider looks up how a requester should be displayed.
type UserInfoProvider interface {
	// UserInfo returns display info for userID as a member of guildID.
	UserInfo(guildID, userID snowflake.ID) (*UserInfo, error)
}
