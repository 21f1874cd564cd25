package cmd

import (
	"memorizefacts/cmd/client/cmd/auth"
	"memorizefacts/cmd/client/cmd/fact"
	"memorizefacts/cmd/client/cmd/notification"
	"memorizefacts/cmd/client/cmd/schedule"
	"memorizefacts/cmd/client/cmd/sync"
	"memorizefacts/cmd/client/cmd/tag"
)

func init() {
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.RegisterCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)

	rootCmd.AddCommand(tag.TagCmd)
	rootCmd.AddCommand(fact.FactCmd)
	rootCmd.AddCommand(schedule.ScheduleCmd)
	rootCmd.AddCommand(notification.NotificationCmd)
	rootCmd.AddCommand(sync.SyncCmd)
}
