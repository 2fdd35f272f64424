package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/config"
)

type globals struct {
	Config   string   `short:"c" type:"path" default:"pdfannotator.yaml" help:"Path to the project config file"`
	EnvFile  []string `name:"env-file" default:".env" help:"Environment files read before the process environment"`
	LogLevel string   `short:"l" help:"Log level. Overrides the configured level"`
}

var cli struct {
	Globals globals `embed:""`

	Decode decodeCmd `cmd:"" help:"Print the annotations of PDF files as JSON"`
	Export exportCmd `cmd:"" help:"Write the stored annotations into a copy of a PDF"`
	Table  tableCmd  `cmd:"" help:"Print the annotations of a PDF as CSV"`
	Serve  serveCmd  `cmd:"" help:"Serve a PDF for annotation over HTTP and websockets"`
}

// runtime is what every command gets after config and logging are set up.
type runtime struct {
	ctx context.Context
	cfg config.Config
	log *logrus.Logger
}

func (g *globals) setup(ctx context.Context) *runtime {
	cfg, err := config.Load(g.Config, g.EnvFile...)
	endIfErr(err)

	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}

	log := logrus.New()
	log.Out = os.Stderr
	level, err := logrus.ParseLevel(cfg.LogLevel)
	endIfErr(err)
	log.SetLevel(level)

	return &runtime{ctx: ctx, cfg: cfg, log: log}
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("pdfannotator"),
		kong.Description("Author, read and write PDF annotations."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt := cli.Globals.setup(ctx)
	endIfErr(kctx.Run(rt))
}
