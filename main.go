package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/disgoorg/disgo/bot"
	"github.com/leeineian/jukebox/home"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

func main() {
	// LogFatal panics so that deferred cleanup runs first.
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	app := &cli.Command{
		Name:  sys.GetProjectName(),
		Usage: "Discord music bot with personal and server playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "silent", Usage: "Disable console log output"},
			&cli.BoolFlag{Name: "skip-reg", Usage: "Skip slash command registration"},
			&cli.BoolFlag{Name: "clear-all", Usage: "Force command re-registration and clear stale guild commands"},
		},
		Action: runBot,
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write every playlist to a TOML archive",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Archive path (stdout when empty)"},
				},
				Action: exportPlaylists,
			},
			{
				Name:  "import",
				Usage: "Merge a TOML archive into the playlist database",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Archive path", Required: true},
				},
				Action: importPlaylists,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

func runBot(_ context.Context, cmd *cli.Command) error {
	cfg, err := sys.LoadConfig()
	if err != nil {
		return fmt.Errorf(sys.MsgConfigFailedToLoad, err)
	}

	silent := cmd.Bool("silent") || cfg.Silent
	sys.InitLogger(silent, cfg.Debug, cfg.LogFile)
	defer sys.CloseLogger()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.OpusLibPath != "" {
		sys.LogInfo(sys.MsgConfigOpusIgnored, cfg.OpusLibPath)
	}

	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	release, err := acquirePIDLock(".bot.pid")
	if err != nil {
		return err
	}
	defer release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	sys.SetAppContext(ctx)

	if err := sys.InitDatabase(ctx, cfg.DSN()); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer sys.CloseDatabase()

	dispatcher := sys.NewDispatcher(rate.Limit(cfg.CommandRate), cfg.CommandBurst)
	sys.SetDispatcher(dispatcher)
	defer dispatcher.Close()

	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	resolver := proc.NewYTDLPResolver(cfg.ResolveTimeout)
	coordinator := proc.NewCoordinator(
		proc.NewVoiceConnector(client),
		resolver,
		sys.NewChannelNotifier(client),
		proc.WithIdleTimeout(cfg.IdleTimeout),
		proc.WithConnectTimeout(cfg.ConnectTimeout),
	)
	registerCoordinator(coordinator)

	library := sys.NewLibrary(sys.DB)
	registerPresence(proc.NewPresenceRotator(client,
		proc.SessionsStatus(coordinator),
		proc.LibraryStatus(library),
		proc.UptimeStatus(sys.StartupTime),
		proc.HelpStatus(cfg.Prefix),
	))

	home.Wire(home.Deps{
		Library:  library,
		Resolver: resolver,
		Player:   coordinator,
		Searcher: proc.NewYouTubeSearcher(),
	})

	if !cmd.Bool("skip-reg") {
		if err := sys.RegisterCommands(ctx, client, cfg.GuildID, cmd.Bool("clear-all")); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo(sys.MsgBotSkipRegistration)
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !silent {
		fmt.Println()
	}
	logShutdown(client)

	sys.ShutdownDaemons(context.Background())
	dispatcher.Close()
	return nil
}

// registerCoordinator starts the voice loop once the gateway is ready and
// stops it before the client closes.
func registerCoordinator(c *proc.Coordinator) {
	sys.RegisterDaemon(sys.LogVoice, func(ctx context.Context) (bool, func(), func()) {
		run := func() { c.Run(ctx) }
		shutdown := func() {
			sys.LogVoice(sys.MsgVoiceShutdown)
			c.Shutdown(context.Background())
		}
		return true, run, shutdown
	})
}

func registerPresence(r *proc.PresenceRotator) {
	sys.RegisterDaemon(sys.LogInfo, func(ctx context.Context) (bool, func(), func()) {
		return true, func() { r.Run(ctx) }, nil
	})
}

func logShutdown(client *bot.Client) {
	if self, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, self.Username)
		return
	}
	sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
}

func openLibrary(ctx context.Context) (*sys.Library, func(), error) {
	cfg, err := sys.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf(sys.MsgConfigFailedToLoad, err)
	}
	db, err := sys.OpenDatabase(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.DatabasePath, err)
	}
	return sys.NewLibrary(db), func() { db.Close() }, nil
}

func exportPlaylists(ctx context.Context, cmd *cli.Command) error {
	lib, closeDB, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	archive, err := lib.Export(ctx)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		return sys.WriteArchive(os.Stdout, archive)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := sys.WriteArchive(f, archive); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	sys.LogLibrary(sys.MsgLibraryExported, len(archive.Playlists), out)
	return nil
}

func importPlaylists(ctx context.Context, cmd *cli.Command) error {
	in := cmd.String("in")
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	archive, err := sys.ReadArchive(f)
	if err != nil {
		return err
	}

	lib, closeDB, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	stats, err := lib.Import(ctx, archive)
	if err != nil {
		return err
	}
	sys.LogLibrary(sys.MsgLibraryImported, stats.Playlists, stats.CreatedPlaylists, stats.AddedSongs, in)
	return nil
}
