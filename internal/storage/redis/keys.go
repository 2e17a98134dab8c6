package redis

import (
	"fmt"

	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/storage"
)

// Key prefix for all chessapp data
const keyPrefix = "chessapp"

// accountKey returns the Redis key for an Account
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%d", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the folded username -> account id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, storage.FoldUsername(username))
}

// accountIDsKey returns the Redis key for the SET of all account ids
func accountIDsKey() string {
	return fmt.Sprintf("%s:idx:accounts", keyPrefix)
}

// accountSeqKey returns the Redis key for the account id counter. It survives wipes.
func accountSeqKey() string {
	return fmt.Sprintf("%s:seq:account", keyPrefix)
}

// sessionKey returns the Redis key for the session marker hash
func sessionKey() string {
	return fmt.Sprintf("%s:session", keyPrefix)
}
