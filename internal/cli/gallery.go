package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/templatestudio/pkg/errors"
)

// galleryCommand renders every template's gallery thumbnail.
func (c *CLI) galleryCommand() *cobra.Command {
	var (
		dir     string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Render gallery thumbnails of all templates",
		Long:  `Render every template with its default values at its gallery scale and write <template>_gallery.png files.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.newServices(ctx, noCache)
			if err != nil {
				return err
			}
			defer svc.Close()

			if dir == "" {
				dir = c.Config.Export.OutputDir
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrap(errors.ErrCodeDelivery, err, "create %s", dir)
			}

			prog := newProgress(c.Logger)
			spinner := newSpinnerWithContext(ctx, "Rendering gallery...")
			spinner.Start()
			thumbs, err := svc.runner.Gallery(ctx, svc.registry.List())
			if err != nil {
				spinner.StopWithError("Gallery failed: " + errors.UserMessage(err))
				return err
			}
			spinner.Stop()

			for _, th := range thumbs {
				path := filepath.Join(dir, th.Template.ID+"_gallery.png")
				if err := os.WriteFile(path, th.PNG, 0o644); err != nil {
					return errors.Wrap(errors.ErrCodeDelivery, err, "write %s", path)
				}
				printFile(path)
				printStats(fmt.Sprintf("scale %g", th.Template.GalleryScale), formatBytes(len(th.PNG)), cacheStatus(th.Cached))
			}
			prog.done("gallery rendered", "thumbnails", len(thumbs), "dir", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the cache")

	return cmd
}
