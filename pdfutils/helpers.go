// Package pdfutils holds the low level helpers that read and write native
// PDF annotation entries.
package pdfutils

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/mgmeyers/unipdf/v3/model"
)

const dateFormat = "D:20060102150405+07'00'"
const dateFormatZ = "D:20060102150405Z07'00'"
const dateFormatNoZ = "D:20060102150405"

func ParseDate(s string) (time.Time, bool) {
	date, err := time.Parse(dateFormat, s)

	if err != nil {
		date, err = time.Parse(dateFormatZ, s)
	}

	if err != nil {
		split := strings.Split(s, "Z")
		date, err = time.Parse(dateFormatNoZ, split[0])
	}

	if err != nil {
		return time.Time{}, false
	}

	return date, true
}

func FormatDate(t time.Time) string {
	return t.Format(dateFormatZ)
}

// MakeDate returns a PDF date string object for s, or nil when s is empty.
func MakeDate(s string) core.PdfObject {
	if s == "" {
		return nil
	}
	return core.MakeString(s)
}

func GetAnnotationDate(annot *model.PdfAnnotation) *time.Time {
	dateStr, ok := core.GetString(annot.M)
	if !ok {
		return nil
	}

	date, ok := ParseDate(dateStr.String())
	if !ok {
		return nil
	}

	return &date
}

// RemoveNul drops replacement characters and control characters other than
// line breaks and tabs.
func RemoveNul(str string) string {
	return strings.Map(func(r rune) rune {
		if r == unicode.ReplacementChar {
			return -1
		}
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' {
			return '\n'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, str)
}

func GetAnnotationID(ids map[string]bool, pageIndex int, x float64, y float64, annotType string) string {
	xInt := int(x)
	yInt := int(y)
	id := fmt.Sprintf("%s-p%dx%dy%d", annotType, pageIndex+1, xInt, yInt)
	_, ok := ids[id]

	for i := 1; ok; i++ {
		id = fmt.Sprintf("%s-p%dx%dy%d-%d", annotType, pageIndex+1, xInt, yInt, i)
		_, ok = ids[id]
	}

	ids[id] = true

	return id
}

// GetCoordinates returns the lower left corner of rect rounded to two
// decimals.
func GetCoordinates(rect r2.Rect) (float64, float64) {
	x := math.Round(rect.X.Lo*100) / 100
	y := math.Round(rect.Y.Lo*100) / 100

	return x, y
}

var nlAndSpace = regexp.MustCompile(`[\n\s]+`)

func CondenseSpaces(str string) string {
	return nlAndSpace.ReplaceAllString(str, " ")
}
