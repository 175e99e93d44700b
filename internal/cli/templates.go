package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/templatestudio/pkg/templates/sanremo"
)

// templatesCommand lists the built-in templates.
func (c *CLI) templatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "templates",
		Aliases: []string{"ls"},
		Short:   "List available templates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := sanremo.Registry()
			fmt.Fprintln(stdout, templatesTable(reg.List()))
			printNewline()
			printNextStep("Export one", "studio export "+reg.IDs()[0])
			return nil
		},
	}
}

// showCommand prints one template's fields and defaults.
func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "show <template>",
		Short:             "Show a template's fields and defaults",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeTemplateIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := sanremo.Registry().Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, StyleTitle.Render(def.Name))
			printKeyValue("ID", def.ID)
			printKeyValue("Size", fmt.Sprintf("%d×%d", def.Width, def.Height))
			printKeyValue("File", def.Filename())
			printKeyValue("Previews", fmt.Sprintf("gallery %g · editor %g", def.GalleryScale, def.PreviewScale))
			printNewline()
			fmt.Fprintln(stdout, fieldsTable(def))
			return nil
		},
	}
}

// completeTemplateIDs completes the first argument with template IDs.
func completeTemplateIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return sanremo.Registry().IDs(), cobra.ShellCompDirectiveNoFileComp
}
