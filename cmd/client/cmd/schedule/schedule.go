package schedule

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"memorizefacts/cmd/client/cmd/types"
	"memorizefacts/internal/app/client"
	"memorizefacts/internal/domain/schedule"

	"github.com/spf13/cobra"
)

// weekdays индекс совпадает с DayOfWeek: 0 - понедельник
var weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

var (
	hours   int
	minutes int
	times   []string
	days    []string
)

var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Работа с расписаниями напоминаний",
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Список расписаний",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		list, err := app.Schedules.List(cmd.Context())
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), list, func(w io.Writer) {
			if len(list) == 0 {
				fmt.Fprintln(w, "Расписаний нет")
				return
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tТИП\tИМЯ")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Type, s.Name)
			}
			_ = tw.Flush()
		})
	},
}

var addEveryCmd = &cobra.Command{
	Use:     "add-every",
	Short:   "Напоминать через равные промежутки",
	Example: "  memorize schedule add-every --hours 1 --minutes 30",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return save(cmd, "", everySpec())
	},
}

var addAtCmd = &cobra.Command{
	Use:     "add-at",
	Short:   "Напоминать в заданное время по дням недели",
	Example: "  memorize schedule add-at --times 09:00,18:30 --days mon,wed,fri",
	RunE: func(cmd *cobra.Command, _ []string) error {
		spec, err := atSpec()
		if err != nil {
			return err
		}
		return save(cmd, "", spec)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Показать расписание",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		s, err := Resolve(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), s, func(w io.Writer) {
			fmt.Fprintf(w, "ID: %s\n", s.ID)
			fmt.Fprintf(w, "Имя: %s\n", s.Name)
			fmt.Fprintf(w, "Тип: %s\n", s.Type)
			switch s.Type {
			case schedule.TypeNotifyEvery:
				fmt.Fprintf(w, "Интервал: %d мин\n", s.Interval)
			case schedule.TypeNotifyAt:
				fmt.Fprintf(w, "Время: %s\n", strings.Join(s.NotifyTimes, ", "))
				fmt.Fprintf(w, "Дни: %s\n", strings.Join(dayNames(s.DayOfWeek), ", "))
			}
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id|name>",
	Short: "Заменить параметры расписания",
	Long: `Заменяет параметры расписания целиком. С --hours/--minutes расписание
становится интервальным, с --times/--days - по времени.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		s, err := Resolve(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		var spec schedule.Spec
		switch {
		case flags.Changed("times") || flags.Changed("days"):
			if spec, err = atSpec(); err != nil {
				return err
			}
		case flags.Changed("hours") || flags.Changed("minutes"):
			spec = everySpec()
		default:
			return errors.New("укажите --hours/--minutes или --times/--days")
		}
		return save(cmd, s.ID, spec)
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id|name>",
	Aliases: []string{"delete"},
	Short:   "Удалить расписание и связанные уведомления",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		s, err := Resolve(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		if err := app.DeleteSchedule(cmd.Context(), s.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Расписание %q удалено\n", s.Name)
		return nil
	},
}

// save создает расписание, если id пуст, иначе обновляет
func save(cmd *cobra.Command, id string, spec schedule.Spec) error {
	app, err := types.App(cmd)
	if err != nil {
		return err
	}

	var s schedule.Schedule
	if id == "" {
		s, err = app.Schedules.Create(cmd.Context(), spec)
	} else {
		s, err = app.Schedules.Update(cmd.Context(), id, spec)
	}
	if err != nil {
		return err
	}
	return types.Print(cmd.OutOrStdout(), s, func(w io.Writer) {
		fmt.Fprintf(w, "Расписание %q сохранено (%s)\n", s.Name, s.ID)
	})
}

func everySpec() schedule.Spec {
	return schedule.Spec{
		Type:     schedule.TypeNotifyEvery,
		Interval: hours*60 + minutes,
	}
}

func atSpec() (schedule.Spec, error) {
	dow, err := parseDays(days)
	if err != nil {
		return schedule.Spec{}, err
	}
	notify := make([]string, 0, len(times))
	for _, t := range times {
		notify = append(notify, strings.TrimSpace(t))
	}
	return schedule.Spec{
		Type:        schedule.TypeNotifyAt,
		NotifyTimes: notify,
		DayOfWeek:   dow,
	}, nil
}

// parseDays пустой список означает все дни недели
func parseDays(names []string) ([]bool, error) {
	dow := make([]bool, schedule.DaysInWeek)
	if len(names) == 0 {
		for i := range dow {
			dow[i] = true
		}
		return dow, nil
	}
	for _, name := range names {
		idx := indexOf(weekdays, strings.ToLower(strings.TrimSpace(name)))
		if idx < 0 {
			return nil, fmt.Errorf("%w: неизвестный день %q, ожидается одно из %s",
				schedule.ErrInvalidInput, name, strings.Join(weekdays, ","))
		}
		dow[idx] = true
	}
	return dow, nil
}

func dayNames(dow []bool) []string {
	out := make([]string, 0, len(dow))
	for i, on := range dow {
		if on && i < len(weekdays) {
			out = append(out, weekdays[i])
		}
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// Resolve ищет расписание по идентификатору, затем по имени
func Resolve(ctx context.Context, app *client.App, ref string) (schedule.Schedule, error) {
	s, err := app.Schedules.Get(ctx, ref)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, schedule.ErrNotFound) {
		return schedule.Schedule{}, err
	}
	return app.Schedules.GetByName(ctx, ref)
}

func init() {
	for _, c := range []*cobra.Command{addEveryCmd, editCmd} {
		c.Flags().IntVar(&hours, "hours", 0, "часы интервала")
		c.Flags().IntVar(&minutes, "minutes", 0, "минуты интервала")
	}
	for _, c := range []*cobra.Command{addAtCmd, editCmd} {
		c.Flags().StringSliceVar(&times, "times", nil, "время напоминаний ЧЧ:ММ через запятую")
		c.Flags().StringSliceVar(&days, "days", nil, "дни недели mon..sun, по умолчанию все")
	}
	_ = addAtCmd.MarkFlagRequired("times")

	ScheduleCmd.AddCommand(listCmd, addEveryCmd, addAtCmd, showCmd, editCmd, rmCmd)
}
