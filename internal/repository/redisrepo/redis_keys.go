package redisrepo

import "fmt"

const (
	COLLECTION      = "realtime:%s"         // <path>
	CHANGES_CHANNEL = "realtime:%s:changes" // <path>
)

func CollectionKey(path string) string {
	return fmt.Sprintf(COLLECTION, path)
}

func ChangesChannel(path string) string {
	return fmt.Sprintf(CHANGES_CHANNEL, path)
}
