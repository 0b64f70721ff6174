package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/streamgrid/internal/metrics"
	"github.com/desertthunder/streamgrid/internal/server"
	"github.com/desertthunder/streamgrid/internal/web"
)

// Serve runs the web grid until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.configure(cmd); err != nil {
		return err
	}

	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	return r.serve(ctx, ln, cfg.EmbedParent(), cmd.Bool("ephemeral"), cmd.Bool("open"))
}

// serve runs the grid on ln until ctx is cancelled.
func (r *Runner) serve(ctx context.Context, ln net.Listener, parent string, ephemeral, open bool) error {
	m := metrics.New()
	hub := web.NewHub(r.logger, m)

	g, err := r.newGrid(ctx, gridOpts{ephemeral: ephemeral, metrics: m, suggestions: hub.SuggestionsChanged})
	if err != nil {
		ln.Close()
		return err
	}
	defer g.Close()

	app := web.NewApp(web.Options{
		Registry:   g.reg,
		Session:    g.sess,
		Searcher:   g.searcher,
		Hub:        hub,
		Metrics:    m,
		Logger:     r.logger,
		ParentHost: parent,
	})
	defer app.Close()

	if !r.config.Credentials.Twitch.HasAppCredentials() {
		r.logger.Warn("twitch client id or secret missing: channel search is disabled")
	}
	stopSession := g.startSession(ctx)
	defer stopSession()

	url := "http://" + displayAddr(ln.Addr(), parent)
	r.logger.Info("serving stream grid", "url", url, "parent", parent)
	if open {
		if err := r.openBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	return server.ListenAndServe(ctx, ln, app.Handler(), r.logger)
}

// displayAddr swaps wildcard and loopback hosts for the embed parent so the printed URL loads the Twitch player.
func displayAddr(addr net.Addr, parent string) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	host := tcp.IP.String()
	if tcp.IP.IsUnspecified() || tcp.IP.IsLoopback() {
		host = parent
	}
	return net.JoinHostPort(host, strconv.Itoa(tcp.Port))
}
