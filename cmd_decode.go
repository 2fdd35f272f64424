package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/scene"
)

type decodeCmd struct {
	NoWrite         bool   `short:"w" help:"Do not save images to disk"`
	ImageOutputPath string `short:"o" type:"path" help:"Output path of stamp images"`
	ImageBaseName   string `short:"n" help:"Base name of saved images"`
	ImageFormat     string `short:"f" enum:"jpg,png" default:"jpg" help:"Image format. Supports png and jpg"`
	ImageDPI        int    `short:"d" help:"Image DPI. Defaults to the configured DPI"`
	ImageQuality    int    `short:"q" default:"90" help:"Image quality. Only applies to jpg images"`

	IgnoreBefore time.Time `short:"b" help:"Ignore annotations added before this date. Must be ISO 8601 formatted"`
	Jobs         int       `short:"j" default:"4" help:"Documents decoded in parallel"`

	Inputs []string `arg:"" name:"input" help:"Paths or glob patterns of input PDFs"`
}

func (c *decodeCmd) Run(rt *runtime) error {
	paths, err := expandInputs(c.Inputs)
	if err != nil {
		return err
	}

	dpi := c.ImageDPI
	if dpi <= 0 {
		dpi = rt.cfg.ImageDPI
	}
	skipImages := c.ImageBaseName == "" || c.ImageOutputPath == ""

	results := make([][]*annotation.Record, len(paths))
	g, ctx := errgroup.WithContext(rt.ctx)
	if c.Jobs > 0 {
		g.SetLimit(c.Jobs)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			log := rt.log.WithField("document", path)
			records, err := decodeFile(ctx, path, dpi, c.IgnoreBefore, log)
			if err != nil {
				return err
			}
			if !skipImages && !c.NoWrite {
				c.writeImages(path, len(paths) > 1, records, log)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if len(paths) == 1 {
		return enc.Encode(results[0])
	}
	byPath := make(map[string][]*annotation.Record, len(paths))
	for i, path := range paths {
		byPath[path] = results[i]
	}
	return enc.Encode(byPath)
}

// writeImages saves the image of every stamp to the image output path.
func (c *decodeCmd) writeImages(path string, prefix bool, records []*annotation.Record, log logrus.FieldLogger) {
	if err := os.MkdirAll(c.ImageOutputPath, os.ModePerm); err != nil {
		log.Warnf("cannot create image directory: %v", err)
		return
	}

	base := c.ImageBaseName
	if prefix {
		base = fmt.Sprintf("%s-%s", base, trimExt(filepath.Base(path)))
	}

	for _, rec := range records {
		if rec.Type != annotation.Stamp {
			continue
		}
		group, err := scene.Unmarshal(rec.Group)
		if err != nil {
			continue
		}
		for _, n := range group.Shapes(scene.KindImage) {
			img, _, err := scene.DecodeDataURL(n.Attrs.Image)
			if err != nil {
				continue
			}
			name := filepath.Join(c.ImageOutputPath, fmt.Sprintf(
				"%s-%d-x%d-y%d.%s",
				base,
				rec.PageNumber,
				int(rec.Rect.X),
				int(rec.Rect.Y),
				c.ImageFormat,
			))
			if err := writeImageFile(name, img, c.ImageFormat, c.ImageQuality); err != nil {
				log.Warnf("cannot write %s: %v", name, err)
			}
		}
	}
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// expandInputs resolves glob patterns. A pattern without matches is an
// error.
func expandInputs(patterns []string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", p)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("no files match %q", p)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}
