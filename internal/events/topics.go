package events

const (
	// TopicUpdateStatus carries bridge.UpdateStatus values from the updater.
	TopicUpdateStatus = "update:status"
	// TopicConfigReload carries the reloaded *config.Config.
	TopicConfigReload = "config:reload"
)
