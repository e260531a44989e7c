package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-timebank/activity"
	"github.com/goliatone/go-timebank/adapter/gologger"
	"github.com/goliatone/go-timebank/config"
	"github.com/goliatone/go-timebank/ledger"
	"github.com/goliatone/go-timebank/service"
	"github.com/uptrace/bun"
)

type App struct {
	config   config.Config
	bunDB    *bun.DB
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
	ledger   *ledger.Repository
	activity *activity.Repository
	timebank *service.Service
}

func (a *App) Config() config.Config {
	return a.config
}

func (a *App) SetDB(db *bun.DB) {
	a.bunDB = db
}

func (a *App) SetLogger(lgr *glog.BaseLogger) *App {
	a.logger = lgr
	return a
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

// ServiceLogger returns a named logger shaped for the ledger packages.
func (a *App) ServiceLogger(name string) *gologger.Logger {
	return gologger.FromProvider(name, a.logger)
}

func (a *App) SetHTTPServer(srv router.Server[*fiber.App]) {
	a.srv = srv
}

func (a *App) SetTimebank(svc *service.Service) {
	a.timebank = svc
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("timebank"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	subcommand := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		subcommand, args = args[0], args[1:]
	}

	ctx := context.Background()
	app := (&App{}).SetLogger(lgr)

	var err error
	switch subcommand {
	case "serve":
		err = runServe(ctx, app, args)
	case "expire":
		err = runExpire(ctx, app, args)
	case "token":
		err = runToken(ctx, app, args)
	default:
		err = fmt.Errorf("unknown command %q (expected serve, expire or token)", subcommand)
	}
	if err != nil {
		app.GetLogger("main").Error("command failed", "command", subcommand, "error", err)
		os.Exit(1)
	}
}

// runtimeFlags registers the overrides shared by every subcommand and
// returns the layer they populate once the set is parsed.
func runtimeFlags(fs *flag.FlagSet) *config.Config {
	runtime := &config.Config{}
	fs.StringVar(&runtime.Server.Host, "host", "", "HTTP listen host")
	fs.StringVar(&runtime.Server.Port, "port", "", "HTTP listen port")
	fs.StringVar(&runtime.Persistence.Driver, "driver", "", "database driver (sqlite or postgres)")
	fs.StringVar(&runtime.Persistence.Server, "dsn", "", "database DSN")
	return runtime
}

// WithConfig loads the config container and layers runtime flags on top.
func WithConfig(ctx context.Context, app *App, runtime config.Config) error {
	defaults := config.Defaults()
	container := config.NewContainer(defaults).WithLogger(app.GetLogger("config"))
	if err := container.Load(ctx); err != nil {
		return err
	}

	resolved, err := config.Resolve(defaults, *container.Raw(), runtime)
	if err != nil {
		return err
	}
	app.config = resolved
	return nil
}

func runServe(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	runtime := runtimeFlags(fs)
	printConfig := fs.Bool("print-config", false, "print the resolved configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := WithConfig(ctx, app, *runtime); err != nil {
		return err
	}

	if *printConfig {
		redacted := app.Config()
		redacted.Auth.SigningKey = "<redacted>"
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(redacted))
		fmt.Println("============")
	}

	if err := WithPersistence(ctx, app); err != nil {
		return err
	}
	defer app.bunDB.Close()

	if err := WithTimebankService(ctx, app); err != nil {
		return err
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		return err
	}

	addr := app.Config().Server.Address()
	app.GetLogger("main").Info("starting server", "addr", "http://"+addr)
	app.srv.Serve(addr)

	sig := WaitExitSignal()
	app.GetLogger("main").Info("shutting down", "signal", sig.String())
	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
