package codec

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/pdfutils"
)

// TableHeader is the first row written by WriteTable.
var TableHeader = []string{
	"id", "parent", "page", "type", "author", "date",
	"color", "color category", "status", "contents",
}

// WriteTable writes one CSV row per record, each followed by one row per
// reply. Reply rows name their record in the parent column.
func WriteTable(w io.Writer, records []*annotation.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TableHeader); err != nil {
		return errors.Wrap(err, "write table header")
	}

	for _, rec := range records {
		row := []string{
			rec.ID,
			"",
			strconv.Itoa(rec.PageNumber),
			rec.Type.String(),
			rec.Title,
			tableDate(rec.Date),
			rec.Color,
			pdfutils.ColorCategory(rec.Color),
			string(rec.LastStatus()),
			pdfutils.CondenseSpaces(rec.Contents),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write row %s", rec.ID)
		}

		for _, c := range rec.Comments {
			status := c.Status
			if status == "" {
				status = annotation.StatusNone
			}
			row := []string{
				c.ID,
				rec.ID,
				strconv.Itoa(rec.PageNumber),
				"COMMENT",
				c.Title,
				tableDate(c.Date),
				"",
				"",
				string(status),
				pdfutils.CondenseSpaces(c.Content),
			}
			if err := cw.Write(row); err != nil {
				return errors.Wrapf(err, "write row %s", c.ID)
			}
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush table")
}

// tableDate renders a PDF date as RFC 3339, or leaves it untouched when it
// does not parse.
func tableDate(s string) string {
	date, ok := pdfutils.ParseDate(s)
	if !ok {
		return s
	}
	return date.Format(time.RFC3339)
}
