package main

import (
	"os"
	"sort"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/codec"
)

type tableCmd struct {
	Author []string `short:"a" help:"Only include annotations by these authors"`
	Type   []string `short:"t" help:"Only include annotations of these types"`

	Input string `arg:"" name:"input" type:"existingfile" help:"Path to input PDF"`
}

func (c *tableCmd) Run(rt *runtime) error {
	records, err := documentRecords(rt, c.Input)
	if err != nil {
		return err
	}

	f := annotation.Filter{Titles: c.Author}
	for _, name := range c.Type {
		t, ok := annotation.ParseType(name)
		if !ok {
			rt.log.WithField("type", name).Warn("ignoring unknown annotation type")
			continue
		}
		f.Types = append(f.Types, t)
	}
	records = annotation.FilterRecords(records, f)
	sort.Stable(annotation.ByPage(records))
	return codec.WriteTable(os.Stdout, records)
}
