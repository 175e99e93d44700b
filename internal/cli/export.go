package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/export"
	"github.com/matzehuels/templatestudio/pkg/io"
	"github.com/matzehuels/templatestudio/pkg/session"
	"github.com/matzehuels/templatestudio/pkg/template"
)

// exportOptions holds flags for the export command.
type exportOptions struct {
	set            []string
	valuesFile     string
	output         string
	dir            string
	saveValues     string
	galleryPreview bool
	noCache        bool
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export [template]",
		Short: "Export a template as PNG",
		Long: `Export a template as a PNG at its full size.

Values come from the template defaults, then a values file (--values), then
--set flags in order. The template may be omitted when the values file names it.`,
		Example: `  studio export sanremo_post --set artistName="Someone" --set song="A Song"
  studio export --values artist.yaml -o out/cover.png`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeTemplateIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return c.runExport(cmd.Context(), id, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "set a field value (key=value, repeatable)")
	cmd.Flags().StringVar(&opts.valuesFile, "values", "", "read field values from a JSON or YAML file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <template>.png)")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "output directory (default from config)")
	cmd.Flags().StringVar(&opts.saveValues, "save-values", "", "write the final values to a JSON file")
	cmd.Flags().BoolVar(&opts.galleryPreview, "gallery-preview", false, "also write a gallery-size preview")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the image cache")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, id string, opts exportOptions) error {
	logger := loggerFromContext(ctx)

	var file *io.Values
	if opts.valuesFile != "" {
		v, err := io.ImportValues(opts.valuesFile)
		if err != nil {
			return err
		}
		file = v
		switch {
		case id == "":
			id = v.Template
		case v.Template != "" && v.Template != id:
			return errors.New(errors.ErrCodeInvalidInput, "%s is for template %s, not %s", opts.valuesFile, v.Template, id)
		}
	}
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no template given; pass one or use --values with a template key")
	}

	svc, err := c.newServices(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer svc.Close()

	sess, err := c.newSession(svc, id)
	if err != nil {
		return err
	}
	if file != nil {
		if err := sess.Apply(file.Values); err != nil {
			return err
		}
	}
	if err := applySet(sess, opts.set); err != nil {
		return err
	}

	dir, name, err := c.outputPath(sess.Template(), opts)
	if err != nil {
		return err
	}

	logger.Debug("exporting", "template", id, "dir", dir, "file", name)
	res, err := c.exportSession(ctx, svc, sess, dir, name)
	if err != nil {
		return err
	}

	if opts.galleryPreview {
		def := sess.Template()
		data, hit, err := svc.runner.Preview(ctx, def, sess.Values(), def.GalleryScale)
		if err != nil {
			return err
		}
		preview := filepath.Join(dir, strings.TrimSuffix(res.Filename, filepath.Ext(res.Filename))+"_preview.png")
		if err := os.WriteFile(preview, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeDelivery, err, "write %s", preview)
		}
		printFile(preview)
		printStats(fmt.Sprintf("scale %g", def.GalleryScale), formatBytes(len(data)), cacheStatus(hit))
	}

	if opts.saveValues != "" {
		v := &io.Values{Template: id, Values: sess.Values()}
		if err := io.ExportValues(v, opts.saveValues); err != nil {
			return err
		}
		printFile(opts.saveValues)
	}

	printNewline()
	printNextStep("Change a field", fmt.Sprintf("studio export %s --set key=value", id))
	return nil
}

// exportSession runs one export to dir with a spinner and prints the result.
func (c *CLI) exportSession(ctx context.Context, svc *services, sess *session.Session, dir, name string) (*export.Result, error) {
	sink := export.FileSink{Dir: dir}

	spinner := newSpinnerWithContext(ctx, "Loading fonts...")
	c.stages.attach(spinner)
	defer c.stages.attach(nil)
	spinner.Start()
	res, err := sess.ExportAs(ctx, svc.exporter, sink, name)
	if err != nil {
		spinner.StopWithError("Export failed: " + errors.UserMessage(err))
		return nil, err
	}
	spinner.Stop()

	printSuccess("Exported %s", sess.Template().Name)
	printFile(sink.Path(res.Filename))
	printStats(
		fmt.Sprintf("%d×%d", res.Width, res.Height),
		formatBytes(res.Size),
		fmt.Sprintf("%d images", res.Images),
		res.Duration.Round(time.Millisecond).String(),
	)
	return res, nil
}

// outputPath splits -o into a directory and file name. Without -o the
// template's file name is used in --dir or the configured output directory.
// A bare -o name lands in --dir when given, else the working directory.
func (c *CLI) outputPath(def *template.Definition, opts exportOptions) (string, string, error) {
	dir := opts.dir
	if dir == "" {
		dir = c.Config.Export.OutputDir
	}
	if opts.output == "" {
		return dir, def.Filename(), nil
	}
	name, err := export.Filename(filepath.Base(opts.output))
	if err != nil {
		return "", "", err
	}
	if d := filepath.Dir(opts.output); d != "." || opts.dir == "" {
		dir = d
	}
	return dir, name, nil
}

// applySet commits key=value pairs in order.
func applySet(sess *session.Session, pairs []string) error {
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return errors.New(errors.ErrCodeInvalidInput, "invalid --set %q, want key=value", kv)
		}
		if err := sess.Commit(strings.TrimSpace(key), value); err != nil {
			return err
		}
	}
	return nil
}
