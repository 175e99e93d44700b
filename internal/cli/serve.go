package cli

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/matzehuels/templatestudio/internal/server"
	"github.com/matzehuels/templatestudio/pkg/session"
)

// serveCommand runs the local studio server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local studio server",
		Long: `Run the studio API on the loopback interface.

Sessions live in memory and are dropped after a day without edits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.newServices(ctx, noCache)
			if err != nil {
				return err
			}
			defer svc.Close()

			if addr == "" {
				addr = c.Config.Server.Addr
			}
			srv := server.New(server.Options{
				Registry: svc.registry,
				Sessions: session.NewManager(svc.registry, session.DefaultIdleTTL,
					session.WithLoader(svc.fetcher),
					session.WithLogger(c.Logger),
				),
				Exporter: svc.exporter,
				Previews: svc.runner,
				Loader:   svc.fetcher,
				Logger:   c.Logger,
			})

			if !loopback(addr) {
				printWarning("Listening on %s; the studio API has no authentication", addr)
			}
			printInfo("Studio API on %s", StyleLink.Render("http://"+addr+"/api/templates"))
			printDetail("Press Ctrl+C to stop")
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the cache")

	return cmd
}

// loopback reports whether addr binds only the loopback interface.
func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
