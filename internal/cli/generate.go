package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/templatestudio/pkg/template"
)

// generateCommand walks through a template interactively and exports it.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		dir     string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "generate [template]",
		Short: "Fill in a template interactively and export it",
		Long: `Pick a template, answer one prompt per field and export the result.

Each answer is validated and committed as soon as it is given; press
enter to keep the current value.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeTemplateIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.newServices(ctx, noCache)
			if err != nil {
				return err
			}
			defer svc.Close()

			var def *template.Definition
			if len(args) == 1 {
				if def, err = svc.registry.Get(args[0]); err != nil {
					return err
				}
			} else {
				if def, err = pickTemplate(ctx, svc.registry.List()); err != nil {
					return err
				}
				if def == nil {
					printInfo("Cancelled")
					return nil
				}
			}

			sess, err := c.newSession(svc, def.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, StyleTitle.Render(def.Name))
			if err := fillForm(ctx, newSurveyDriver(), sess); err != nil {
				if stderrors.Is(err, errAborted) {
					printInfo("Cancelled")
					return nil
				}
				return err
			}

			if dir == "" {
				dir = c.Config.Export.OutputDir
			}
			printNewline()
			_, err = c.exportSession(ctx, svc, sess, dir, "")
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the image cache")

	return cmd
}

// pickTemplate runs the template picker. It returns nil when the user quits
// without choosing.
func pickTemplate(ctx context.Context, defs []*template.Definition) (*template.Definition, error) {
	p := tea.NewProgram(NewTemplateListModel(defs), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(TemplateListModel)
	if !ok {
		return nil, nil
	}
	return m.Selected, nil
}
