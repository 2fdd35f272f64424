package main

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/codec"
	"github.com/mgmeyers/pdfannotator/config"
	"github.com/mgmeyers/pdfannotator/painter"
	"github.com/mgmeyers/pdfannotator/pdfutils"
	"github.com/mgmeyers/pdfannotator/repository"
	"github.com/mgmeyers/pdfannotator/scene"
)

func endIfErr(e error) {
	if e != nil {
		eLog := log.New(os.Stderr, "", 0)
		eLog.Fatalln(e)
	}
}

// openRepository picks Postgres when a database is configured and the
// records file otherwise. Postgres rows are scoped to the document's file
// name.
func openRepository(ctx context.Context, cfg config.Config, document string, log logrus.FieldLogger) (repository.Repository, error) {
	if cfg.DatabaseURL != "" {
		pg, err := repository.NewPostgres(ctx, cfg.DatabaseURL, filepath.Base(document))
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	f, err := repository.NewFile(cfg.RecordsPath, log)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// loadStored returns the saved records, or none when nothing was saved yet.
func loadStored(ctx context.Context, repo repository.Repository) ([]*annotation.Record, error) {
	records, err := repo.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return records, err
}

// decodeFile reads the native annotations of the PDF at path. dpi > 0
// renders pages so stamps carry the image they cover.
func decodeFile(ctx context.Context, path string, dpi int, ignoreBefore time.Time, log logrus.FieldLogger) ([]*annotation.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	d := codec.NewDecoder(log)
	d.IgnoreBefore = ignoreBefore
	if dpi > 0 {
		r, err := pdfutils.NewRenderer(path, float64(dpi))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		d.Renderer = r
	}
	return d.Decode(ctx, f)
}

// documentRecords merges the native annotations of the PDF at path with the
// stored ones.
func documentRecords(rt *runtime, path string) ([]*annotation.Record, error) {
	native, err := decodeFile(rt.ctx, path, 0, time.Time{}, rt.log)
	if err != nil {
		return nil, err
	}
	repo, err := openRepository(rt.ctx, rt.cfg, path, rt.log)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	stored, err := loadStored(rt.ctx, repo)
	if err != nil {
		return nil, err
	}
	return painter.MergeRecords(native, stored), nil
}

// readImageDataURL loads an image file as a PNG data URL. An empty path
// yields an empty payload.
func readImageDataURL(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", errors.Wrapf(err, "decode image %s", path)
	}
	return scene.EncodeDataURL(img)
}

func writeImageFile(name string, img image.Image, format string, quality int) error {
	fd, err := os.Create(name)
	if err != nil {
		return err
	}
	defer fd.Close()

	return pdfutils.WriteImage(fd, img, format, quality)
}
