// loyaltyd serves the Martabak Juara loyalty club API.
//
// Usage:
//
//	loyaltyd [-config path] serve                          Run the HTTP server (default)
//	loyaltyd [-config path] migrate                        Apply database migrations
//	loyaltyd [-config path] create-admin -username u -password p [-super]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/martabak-juara/loyalty-club/internal/app"
	"github.com/martabak-juara/loyalty-club/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config.yaml (defaults to $LOYALTY_CONFIG or ./config.yaml)")
	flag.Usage = usage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := config.AppConfig{ConfigPath: configPath}
	command := "serve"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "serve":
		err = app.RunServer(ctx, appCfg)
	case "migrate":
		err = app.Migrate(ctx, appCfg)
	case "create-admin":
		err = createAdmin(ctx, appCfg, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.WithError(err).Errorf("%s failed", command)
		os.Exit(1)
	}
}

func createAdmin(ctx context.Context, appCfg config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	username := fs.String("username", "", "admin username")
	password := fs.String("password", "", "admin password (min 8 characters)")
	super := fs.Bool("super", false, "grant every permission")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	return app.CreateAdmin(ctx, appCfg, app.CreateAdminParams{
		Username: *username,
		Password: *password,
		Super:    *super,
	})
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: loyaltyd [-config path] <serve|migrate|create-admin> [flags]\n")
	flag.PrintDefaults()
}
