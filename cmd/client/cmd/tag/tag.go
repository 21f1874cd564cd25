package tag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"memorizefacts/cmd/client/cmd/types"
	"memorizefacts/internal/app/client"
	"memorizefacts/internal/domain/tag"

	"github.com/spf13/cobra"
)

var TagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Работа с тегами",
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Список тегов",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		tags, err := app.Tags.List(cmd.Context())
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), tags, func(w io.Writer) {
			if len(tags) == 0 {
				fmt.Fprintln(w, "Тегов нет")
				return
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tИМЯ")
			for _, t := range tags {
				fmt.Fprintf(tw, "%s\t%s\n", t.ID, t.Name)
			}
			_ = tw.Flush()
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Создать тег",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		t, err := app.Tags.Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), t, func(w io.Writer) {
			fmt.Fprintf(w, "Тег %q создан (%s)\n", t.Name, t.ID)
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <id|name> <new-name>",
	Short: "Переименовать тег",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		t, err := Resolve(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		t, err = app.Tags.Rename(cmd.Context(), t.ID, args[1])
		if err != nil {
			return err
		}
		return types.Print(cmd.OutOrStdout(), t, func(w io.Writer) {
			fmt.Fprintf(w, "Тег переименован в %q\n", t.Name)
		})
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id|name>",
	Aliases: []string{"delete"},
	Short:   "Удалить тег и убрать его из фактов",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		t, err := Resolve(cmd.Context(), app, args[0])
		if err != nil {
			return err
		}
		if err := app.DeleteTag(cmd.Context(), t.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Тег %q удален\n", t.Name)
		return nil
	},
}

// Resolve ищет тег по идентификатору, затем по имени
func Resolve(ctx context.Context, app *client.App, ref string) (tag.Tag, error) {
	t, err := app.Tags.Get(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, tag.ErrNotFound) {
		return tag.Tag{}, err
	}
	return app.Tags.GetByName(ctx, ref)
}

func init() {
	TagCmd.AddCommand(listCmd, addCmd, renameCmd, rmCmd)
}
