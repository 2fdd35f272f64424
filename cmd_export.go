package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/codec"
)

type exportCmd struct {
	Output string `short:"o" required:"" type:"path" help:"Path of the annotated copy"`

	Input string `arg:"" name:"input" type:"existingfile" help:"Path to input PDF"`
}

func (c *exportCmd) Run(rt *runtime) error {
	records, err := documentRecords(rt, c.Input)
	if err != nil {
		return err
	}

	src, err := os.Open(c.Input)
	if err != nil {
		return errors.Wrapf(err, "open %s", c.Input)
	}
	defer src.Close()

	out, err := os.Create(c.Output)
	if err != nil {
		return errors.Wrapf(err, "create %s", c.Output)
	}
	defer out.Close()

	if err := codec.NewEncoder(rt.log).Encode(rt.ctx, src, records, out); err != nil {
		return err
	}
	rt.log.WithField("records", len(records)).WithField("output", c.Output).Info("exported annotations")
	return out.Close()
}
