package main

import (
	"os"
	"time"

	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/codec"
	"github.com/mgmeyers/pdfannotator/painter"
	"github.com/mgmeyers/pdfannotator/pdfutils"
	"github.com/mgmeyers/pdfannotator/server"
)

type serveCmd struct {
	Addr   string `help:"Listen address. Defaults to the configured address"`
	Author string `short:"a" help:"Author of new annotations. Defaults to the configured author"`

	Input string `arg:"" name:"input" type:"existingfile" help:"Path to input PDF"`
}

func (c *serveCmd) Run(rt *runtime) error {
	cfg := rt.cfg
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.Author != "" {
		cfg.Author = c.Author
	}
	log := rt.log.WithField("document", c.Input)

	f, err := os.Open(c.Input)
	if err != nil {
		return errors.Wrapf(err, "open %s", c.Input)
	}
	defer f.Close()

	reader, err := model.NewPdfReader(f)
	if err != nil {
		return errors.Wrap(err, "read pdf")
	}

	renderer, err := pdfutils.NewRenderer(c.Input, float64(cfg.ImageDPI))
	if err != nil {
		return err
	}
	defer renderer.Close()

	decoder := codec.NewDecoder(log)
	decoder.Renderer = renderer
	native, err := decoder.DecodeReader(rt.ctx, reader)
	if err != nil {
		return err
	}
	pageCount, err := reader.GetNumPages()
	if err != nil {
		return errors.Wrap(err, "count pages")
	}

	repo, err := openRepository(rt.ctx, cfg, c.Input, log)
	if err != nil {
		return err
	}
	stored, err := loadStored(rt.ctx, repo)
	if err != nil {
		repo.Close()
		return err
	}

	signature, err := readImageDataURL(cfg.DefaultSignature)
	if err != nil {
		repo.Close()
		return err
	}
	stamp, err := readImageDataURL(cfg.DefaultStamp)
	if err != nil {
		repo.Close()
		return err
	}

	srv := server.New(server.Options{
		Log: rt.log,
		Painter: painter.Options{
			Author:           cfg.Author,
			TextLayer:        codec.NewTextLayer(reader, log),
			DefaultSignature: signature,
			DefaultStamp:     stamp,
			PointerLength:    cfg.PointerLength,
			PointerWidth:     cfg.PointerWidth,
			Debounce:         time.Duration(cfg.DebounceMS) * time.Millisecond,
		},
		Repository:     repo,
		Source:         c.Input,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	defer srv.Close()

	p := srv.Painter()
	p.SetPageCount(pageCount)
	n := p.LoadAnnotations(native, stored)
	log.WithField("native", len(native)).WithField("stored", len(stored)).WithField("loaded", n).Info("loaded annotations")

	return srv.ListenAndServe(rt.ctx, cfg.Addr)
}
