package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	gatt "github.com/XC-/gattdb"
	"github.com/XC-/gattdb/config"
	"github.com/XC-/gattdb/valuestore"
)

// shimGrace is how long the bridge gets to exit after SIGTERM.
const shimGrace = 2 * time.Second

func main() {
	app := cli.NewApp()

	app.Name = "gattd"
	app.Usage = "GATT attribute server"
	app.Version = "0.1.0"
	app.Action = cli.ShowAppHelp
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "/etc/gattd/gattd.yaml",
			Usage: "configuration file",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "Serve the attribute table over stdin/stdout or the configured shim",
			Action: serve,
		},
		{
			Name:   "dump",
			Usage:  "Print the attribute table built from a definition",
			Action: dump,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "definition, d", Usage: "definition file; overrides the configuration"},
				cli.UintFlag{Name: "base, b", Usage: "handle of the first attribute"},
			},
		},
		{
			Name:   "values",
			Usage:  "List the persisted values",
			Action: values,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "file, f", Usage: "value file; overrides the configuration"},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.New(color.FgHiRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return cfg, err
	}
	lvl, _ := cfg.Level()
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return cfg, nil
}

func build(path string, base uint16) (*gatt.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "definition")
	}
	defer f.Close()
	return gatt.Build(f, gatt.BuildBase(base))
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	st, err := build(cfg.Definition, cfg.BaseHandle)
	if err != nil {
		return err
	}
	log := logrus.WithField("definition", cfg.Definition)

	opts := []gatt.Option{
		gatt.Logger(log),
		gatt.NotifyInterval(cfg.NotifyInterval),
	}
	if cfg.Values != "" {
		vs, err := valuestore.Open(cfg.Values, valuestore.CacheSize(cfg.ValueCacheSize))
		if err != nil {
			return err
		}
		opts = append(opts, gatt.Values(vs))
	}
	srv := gatt.NewServer(st, opts...)
	defer srv.Close()
	if err := srv.LoadValues(); err != nil {
		log.WithError(err).Warn("starting with built values")
	}

	var link io.ReadWriter = stdio{os.Stdin, os.Stdout}
	if len(cfg.Shim) > 0 {
		sh, err := gatt.StartShim(cfg.Shim[0], cfg.Shim[1:]...)
		if err != nil {
			return err
		}
		defer func() {
			if !gatt.StopShim(sh, shimGrace) {
				log.Warn("shim killed after grace period")
			}
		}()
		link = sh
	}
	conn := gatt.NewConn(srv, link, cfg.MTU)
	srv.Option(gatt.Deliver(conn))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	log.WithField("attributes", st.Len()).Info("serving")
	err = conn.Serve(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

func dump(c *cli.Context) error {
	path, base := c.String("definition"), uint16(c.Uint("base"))
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		path = cfg.Definition
		if !c.IsSet("base") {
			base = cfg.BaseHandle
		}
	}
	st, err := build(path, base)
	if err != nil {
		return err
	}
	color.New(color.FgHiCyan).Printf("%s: %d attributes from 0x%04X\n", path, st.Len(), st.Base())
	return st.Dump(os.Stdout)
}

func values(c *cli.Context) error {
	path := c.String("file")
	size := valuestore.DefaultCacheSize
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		path, size = cfg.Values, cfg.ValueCacheSize
	}
	if path == "" {
		return errors.New("no value file configured")
	}
	vs, err := valuestore.Open(path, valuestore.CacheSize(size))
	if err != nil {
		return err
	}
	rr, err := vs.Records()
	if err != nil {
		return err
	}
	color.New(color.FgHiCyan).Printf("%s: %d values\n", path, len(rr))
	for _, r := range rr {
		fmt.Printf("0x%04X\t[ % X ]\n", r.Handle, r.Value)
	}
	return nil
}

type stdio struct {
	io.Reader
	io.Writer
}
