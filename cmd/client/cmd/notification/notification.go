package notification

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	factcmd "memorizefacts/cmd/client/cmd/fact"
	schedcmd "memorizefacts/cmd/client/cmd/schedule"
	"memorizefacts/cmd/client/cmd/types"
	"memorizefacts/internal/domain/notification"

	"github.com/spf13/cobra"
)

var (
	byFact     string
	bySchedule string
)

var NotificationCmd = &cobra.Command{
	Use:     "notification",
	Aliases: []string{"notify"},
	Short:   "Напоминания: связь факта с расписанием",
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Список напоминаний факта или расписания",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var list []notification.Notification
		switch {
		case byFact != "":
			f, err := factcmd.Resolve(ctx, app, byFact)
			if err != nil {
				return err
			}
			list, err = app.Notifications.ListByFact(ctx, f.ID)
			if err != nil {
				return err
			}
		case bySchedule != "":
			s, err := schedcmd.Resolve(ctx, app, bySchedule)
			if err != nil {
				return err
			}
			list, err = app.Notifications.ListBySchedule(ctx, s.ID)
			if err != nil {
				return err
			}
		default:
			return errors.New("укажите --fact или --schedule")
		}

		return types.Print(cmd.OutOrStdout(), list, func(w io.Writer) {
			if len(list) == 0 {
				fmt.Fprintln(w, "Напоминаний нет")
				return
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tФАКТ\tРАСПИСАНИЕ\tЗАДАНИЕ")
			for _, n := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.ID, n.Fact, n.Schedule, n.IDNotification)
			}
			_ = tw.Flush()
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <fact> <schedule>",
	Short: "Напоминать о факте по расписанию",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		f, err := factcmd.Resolve(ctx, app, args[0])
		if err != nil {
			return err
		}
		s, err := schedcmd.Resolve(ctx, app, args[1])
		if err != nil {
			return err
		}
		n, err := app.Notifications.Create(ctx, f.ID, s.ID)
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), n, func(w io.Writer) {
			fmt.Fprintf(w, "Напоминание о %q по расписанию %q создано (%s)\n", f.Name, s.Name, n.ID)
		})
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Удалить напоминание",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		if err := app.Notifications.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Напоминание удалено")
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&byFact, "fact", "", "факт (id или имя)")
	listCmd.Flags().StringVar(&bySchedule, "schedule", "", "расписание (id или имя)")
	listCmd.MarkFlagsMutuallyExclusive("fact", "schedule")

	NotificationCmd.AddCommand(listCmd, addCmd, rmCmd)
}
