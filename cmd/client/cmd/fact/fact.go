package fact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	schedcmd "memorizefacts/cmd/client/cmd/schedule"
	tagcmd "memorizefacts/cmd/client/cmd/tag"
	"memorizefacts/cmd/client/cmd/types"
	"memorizefacts/internal/app/client"
	"memorizefacts/internal/domain/fact"

	"github.com/spf13/cobra"
)

const deadlineLayout = "2006-01-02"

var (
	description string
	deadline    string
	tagRefs     []string
	active      bool

	filterTag      string
	filterSchedule string
	activeOnly     bool

	newName       string
	clearDeadline bool
)

var FactCmd = &cobra.Command{
	Use:   "fact",
	Short: "Работа с фактами",
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Список фактов",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var filter fact.ListFilter
		filter.ActiveOnly = activeOnly
		if filterTag != "" {
			t, err := tagcmd.Resolve(ctx, app, filterTag)
			if err != nil {
				return err
			}
			filter.TagID = t.ID
		}
		if filterSchedule != "" {
			s, err := schedcmd.Resolve(ctx, app, filterSchedule)
			if err != nil {
				return err
			}
			filter.ScheduleID = s.ID
		}

		facts, err := app.Facts.List(ctx, filter)
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), facts, func(w io.Writer) {
			if len(facts) == 0 {
				fmt.Fprintln(w, "Фактов нет")
				return
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tИМЯ\tАКТИВЕН\tСРОК")
			for _, f := range facts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Name, yesNo(f.Active), formatDeadline(f.Deadline))
			}
			_ = tw.Flush()
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Создать факт",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		req := fact.CreateRequest{
			Name:        args[0],
			Description: description,
			Active:      active,
		}
		if deadline != "" {
			d, err := parseDeadline(deadline)
			if err != nil {
				return err
			}
			req.Deadline = &d
		}
		for _, ref := range tagRefs {
			t, err := tagcmd.Resolve(ctx, app, ref)
			if err != nil {
				return fmt.Errorf("тег %q: %w", ref, err)
			}
			req.Tags = append(req.Tags, t.ID)
		}

		f, err := app.Facts.Create(ctx, req)
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), f, func(w io.Writer) {
			fmt.Fprintf(w, "Факт %q создан (%s)\n", f.Name, f.ID)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Показать факт",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		f, err := Resolve(ctx, app, args[0])
		if err != nil {
			return err
		}

		tags := make([]string, 0, len(f.Tags))
		for _, id := range f.Tags {
			if t, err := app.Tags.Get(ctx, id); err == nil {
				tags = append(tags, t.Name)
			}
		}
		schedules := make([]string, 0, len(f.Schedules))
		for _, id := range f.Schedules {
			if s, err := app.Schedules.Get(ctx, id); err == nil {
				schedules = append(schedules, s.Name)
			}
		}

		return types.Print(cmd.OutOrStdout(), f, func(w io.Writer) {
			fmt.Fprintf(w, "ID: %s\n", f.ID)
			fmt.Fprintf(w, "Имя: %s\n", f.Name)
			fmt.Fprintf(w, "Описание: %s\n", f.Description)
			fmt.Fprintf(w, "Активен: %s\n", yesNo(f.Active))
			fmt.Fprintf(w, "Срок: %s\n", formatDeadline(f.Deadline))
			fmt.Fprintf(w, "Теги: %s\n", strings.Join(tags, ", "))
			fmt.Fprintf(w, "Расписания: %s\n", strings.Join(schedules, "; "))
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id|name>",
	Short: "Изменить факт",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		f, err := Resolve(ctx, app, args[0])
		if err != nil {
			return err
		}

		var req fact.UpdateRequest
		flags := cmd.Flags()
		if flags.Changed("name") {
			req.Name = &newName
		}
		if flags.Changed("description") {
			req.Description = &description
		}
		if flags.Changed("active") {
			req.Active = &active
		}
		if flags.Changed("deadline") {
			d, err := parseDeadline(deadline)
			if err != nil {
				return err
			}
			req.Deadline = &d
		}
		req.ClearDeadline = clearDeadline

		f, err = app.Facts.Update(ctx, f.ID, req)
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), f, func(w io.Writer) {
			fmt.Fprintf(w, "Факт %q обновлен\n", f.Name)
		})
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id|name>",
	Aliases: []string{"delete"},
	Short:   "Удалить факт и его уведомления",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		f, err := Resolve(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		if err := app.DeleteFact(cmd.Context(), f.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Факт %q удален\n", f.Name)
		return nil
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <fact> <tag>",
	Short: "Добавить тег к факту",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editLink(cmd, args, func(ctx context.Context, app *client.App, f fact.Fact, ref string) (fact.Fact, error) {
			t, err := tagcmd.Resolve(ctx, app, ref)
			if err != nil {
				return fact.Fact{}, err
			}
			return app.Facts.AddTag(ctx, f.ID, t.ID)
		})
	},
}

var untagCmd = &cobra.Command{
	Use:   "untag <fact> <tag>",
	Short: "Убрать тег у факта",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editLink(cmd, args, func(ctx context.Context, app *client.App, f fact.Fact, ref string) (fact.Fact, error) {
			t, err := tagcmd.Resolve(ctx, app, ref)
			if err != nil {
				return fact.Fact{}, err
			}
			return app.Facts.RemoveTag(ctx, f.ID, t.ID)
		})
	},
}

var addScheduleCmd = &cobra.Command{
	Use:   "add-schedule <fact> <schedule>",
	Short: "Привязать расписание к факту",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editLink(cmd, args, func(ctx context.Context, app *client.App, f fact.Fact, ref string) (fact.Fact, error) {
			s, err := schedcmd.Resolve(ctx, app, ref)
			if err != nil {
				return fact.Fact{}, err
			}
			return app.Facts.AddSchedule(ctx, f.ID, s.ID)
		})
	},
}

var removeScheduleCmd = &cobra.Command{
	Use:   "remove-schedule <fact> <schedule>",
	Short: "Отвязать расписание от факта",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editLink(cmd, args, func(ctx context.Context, app *client.App, f fact.Fact, ref string) (fact.Fact, error) {
			s, err := schedcmd.Resolve(ctx, app, ref)
			if err != nil {
				return fact.Fact{}, err
			}
			return app.Facts.RemoveSchedule(ctx, f.ID, s.ID)
		})
	},
}

type linkFunc func(ctx context.Context, app *client.App, f fact.Fact, ref string) (fact.Fact, error)

func editLink(cmd *cobra.Command, args []string, edit linkFunc) error {
	app, err := types.App(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	f, err := Resolve(ctx, app, args[0])
	if err != nil {
		return err
	}
	f, err = edit(ctx, app, f, args[1])
	if err != nil {
		return err
	}
	return types.Print(cmd.OutOrStdout(), f, func(w io.Writer) {
		fmt.Fprintf(w, "Факт %q обновлен\n", f.Name)
	})
}

// Resolve ищет факт по идентификатору, затем по имени
func Resolve(ctx context.Context, app *client.App, ref string) (fact.Fact, error) {
	f, err := app.Facts.Get(ctx, ref)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fact.ErrNotFound) {
		return fact.Fact{}, err
	}
	return app.Facts.GetByName(ctx, ref)
}

func parseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(deadlineLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: неверный срок %q, ожидается ГГГГ-ММ-ДД", fact.ErrInvalidInput, s)
	}
	return t.UTC(), nil
}

func formatDeadline(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return d.Local().Format(deadlineLayout)
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}

func init() {
	listCmd.Flags().StringVar(&filterTag, "tag", "", "только факты с тегом")
	listCmd.Flags().StringVar(&filterSchedule, "schedule", "", "только факты с расписанием")
	listCmd.Flags().BoolVar(&activeOnly, "active", false, "только активные")

	addCmd.Flags().StringVarP(&description, "description", "d", "", "описание факта")
	addCmd.Flags().StringVar(&deadline, "deadline", "", "срок, ГГГГ-ММ-ДД")
	addCmd.Flags().StringSliceVarP(&tagRefs, "tag", "t", nil, "теги (id или имя)")
	addCmd.Flags().BoolVar(&active, "active", true, "активен")
	_ = addCmd.MarkFlagRequired("description")

	editCmd.Flags().StringVar(&newName, "name", "", "новое имя")
	editCmd.Flags().StringVarP(&description, "description", "d", "", "новое описание")
	editCmd.Flags().StringVar(&deadline, "deadline", "", "новый срок, ГГГГ-ММ-ДД")
	editCmd.Flags().BoolVar(&clearDeadline, "no-deadline", false, "убрать срок")
	editCmd.Flags().BoolVar(&active, "active", true, "активен")
	editCmd.MarkFlagsMutuallyExclusive("deadline", "no-deadline")

	FactCmd.AddCommand(listCmd, addCmd, showCmd, editCmd, rmCmd, tagCmd, untagCmd, addScheduleCmd, removeScheduleCmd)
}
