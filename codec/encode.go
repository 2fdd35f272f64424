package codec

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/geo/r2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/pdfutils"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

// flagPrint is the annotation flag that makes viewers print the annotation.
const flagPrint = 4

// Encoder writes records back into a document as native annotations.
type Encoder struct {
	Log logrus.FieldLogger
}

func NewEncoder(log logrus.FieldLogger) *Encoder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Encoder{Log: log}
}

// Encode reads the document in src and writes a copy to w whose annotations
// are the given records. Annotations of the source that the codec does not
// handle, such as links and form widgets, are kept.
func (e *Encoder) Encode(ctx context.Context, src io.ReadSeeker, records []*annotation.Record, w io.Writer) error {
	reader, err := model.NewPdfReader(src)
	if err != nil {
		return errors.Wrap(err, "read pdf")
	}
	if err := unlock(reader); err != nil {
		return err
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return errors.Wrap(err, "count pages")
	}

	byPage := map[int][]*annotation.Record{}
	for _, rec := range records {
		if rec.PageNumber < 1 || rec.PageNumber > numPages {
			e.Log.WithFields(logrus.Fields{"id": rec.ID, "page": rec.PageNumber}).Warn("skipping record outside the document")
			continue
		}
		byPage[rec.PageNumber] = append(byPage[rec.PageNumber], rec)
	}

	writer := model.NewPdfWriter()
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := reader.GetPage(i + 1)
		if err != nil {
			return errors.Wrapf(err, "read page %d", i+1)
		}

		existing, err := page.GetAnnotations()
		if err != nil {
			return errors.Wrapf(err, "read annotations of page %d", i+1)
		}

		var annots []*model.PdfAnnotation
		for _, annot := range existing {
			if pdfutils.GetAnnotationType(annot.GetContext()) == "" {
				annots = append(annots, annot)
			}
		}

		f := pageFrame(page)
		for _, rec := range byPage[i+1] {
			encoded, err := e.encodeRecord(f, rec)
			if err != nil {
				e.Log.WithError(err).WithFields(logrus.Fields{"id": rec.ID, "page": rec.PageNumber}).Warn("skipping record")
				continue
			}
			annots = append(annots, encoded...)
		}
		page.SetAnnotations(annots)

		if err := writer.AddPage(page); err != nil {
			return errors.Wrapf(err, "add page %d", i+1)
		}
	}

	return errors.Wrap(writer.Write(w), "write pdf")
}

// encodeRecord converts rec into its primary annotation followed by one
// reply per comment.
func (e *Encoder) encodeRecord(f frame, rec *annotation.Record) ([]*model.PdfAnnotation, error) {
	g, err := scene.Unmarshal(rec.Group)
	if err != nil {
		return nil, errors.Wrap(err, "parse group")
	}

	primary, markup, err := e.encodePrimary(f, rec, g)
	if err != nil {
		return nil, err
	}

	rect := core.MakeArrayFromFloats(transform.NativeArray(f.toNative(rec.Rect)))
	primary.Rect = rect
	primary.Contents = textOrNil(rec.Contents)
	primary.M = pdfutils.MakeDate(rec.Date)
	primary.NM = pdfutils.EncodeText(rec.ID)
	primary.F = core.MakeInteger(flagPrint)
	if rec.Color != "" {
		c, err := pdfutils.HexToPDFObj(rec.Color)
		if err != nil {
			e.Log.WithError(err).WithField("id", rec.ID).Debug("dropping color")
		} else {
			primary.C = c
		}
	}
	markup.T = textOrNil(rec.Title)
	if rec.Opacity != nil {
		markup.CA = core.MakeFloat(*rec.Opacity)
	}

	out := []*model.PdfAnnotation{primary}
	for _, c := range rec.Comments {
		out = append(out, encodeReply(primary, rect, c))
	}
	return out, nil
}

func encodeReply(parent *model.PdfAnnotation, rect *core.PdfObjectArray, c annotation.Comment) *model.PdfAnnotation {
	reply := model.NewPdfAnnotationText()
	reply.Rect = rect
	reply.IRT = parent.GetContainingPdfObject()
	reply.RT = core.MakeName("R")
	reply.NM = pdfutils.EncodeText(c.ID)
	reply.T = textOrNil(c.Title)
	reply.M = pdfutils.MakeDate(c.Date)
	reply.Contents = textOrNil(c.Content)
	reply.Name = core.MakeName("Comment")
	reply.Open = core.MakeBool(false)
	reply.F = core.MakeInteger(flagPrint)
	if c.Status != "" && c.Status != annotation.StatusNone {
		reply.StateModel = core.MakeString("Review")
		reply.State = core.MakeString(stateName(c.Status))
	}
	return reply.PdfAnnotation
}

func stateName(s annotation.CommentStatus) string {
	str := string(s)
	if str == "" {
		return str
	}
	return string(str[0]-'a'+'A') + str[1:]
}

func (e *Encoder) encodePrimary(f frame, rec *annotation.Record, g *scene.Node) (*model.PdfAnnotation, *model.PdfAnnotationMarkup, error) {
	sw := 1.0
	if rec.StrokeWidth != nil {
		sw = *rec.StrokeWidth
	}

	switch rec.Type {
	case annotation.Rectangle:
		a := model.NewPdfAnnotationSquare()
		a.BS = borderStyle(sw)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.Circle:
		a := model.NewPdfAnnotationCircle()
		a.BS = borderStyle(sw)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.FreeHand:
		paths := strokePaths(g)
		if len(paths) == 0 {
			return nil, nil, errors.New("freehand without strokes")
		}
		a := model.NewPdfAnnotationInk()
		a.InkList = inkList(f, paths)
		a.BS = borderStyle(sw)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.Arrow:
		nodes := g.Shapes(scene.KindArrow)
		if len(nodes) == 0 {
			return nil, nil, errors.New("arrow without shaft")
		}
		n := nodes[0]
		pts := absolutePoints(n)
		if len(pts) < 2 {
			return nil, nil, errors.New("arrow without end points")
		}
		last := len(pts) - 1
		path := append([]r2.Point{}, pts[:last-1]...)
		path = append(path, ArrowInkPath(pts[last-1], pts[last], n.Attrs.PointerLength, n.Attrs.PointerWidth)...)
		a := model.NewPdfAnnotationInk()
		a.InkList = inkList(f, [][]r2.Point{path})
		a.BS = borderStyle(sw)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.Cloud:
		paths := g.Shapes(scene.KindPath)
		if len(paths) == 0 {
			return nil, nil, errors.New("cloud without outline")
		}
		r := transform.BoundsOfPoints(absolutePoints(paths[0]))
		a := model.NewPdfAnnotationPolygon()
		a.Vertices = core.MakeArrayFromFloats(f.pointsToNative([]r2.Point{
			{X: r.X, Y: r.Y},
			{X: r.Right(), Y: r.Y},
			{X: r.Right(), Y: r.Bottom()},
			{X: r.X, Y: r.Bottom()},
		}))
		a.BS = borderStyle(sw)
		be := core.MakeDict()
		be.Set("S", core.MakeName("C"))
		be.Set("I", core.MakeInteger(1))
		a.BE = be
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.Highlight, annotation.Underline, annotation.Strikeout:
		quads := quadRects(f, rec.Type, g)
		if len(quads) == 0 {
			return nil, nil, errors.New("markup without spans")
		}
		return markupAnnotation(rec.Type, quads)

	case annotation.FreeHighlight:
		if quads := quadRects(f, annotation.Highlight, g); len(quads) > 0 {
			return markupAnnotation(annotation.Highlight, quads)
		}
		paths := strokePaths(g)
		if len(paths) == 0 {
			return nil, nil, errors.New("free highlight without strokes")
		}
		a := model.NewPdfAnnotationInk()
		a.InkList = inkList(f, paths)
		a.BS = borderStyle(sw)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.FreeText:
		fontSize := 16.0
		if texts := g.Shapes(scene.KindText); len(texts) > 0 && texts[0].Attrs.FontSize > 0 {
			fontSize = texts[0].Attrs.FontSize
		}
		a := model.NewPdfAnnotationFreeText()
		a.DA = core.MakeString(defaultAppearance(rec.Color, fontSize))
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.Note:
		a := model.NewPdfAnnotationText()
		a.Name = core.MakeName("Comment")
		a.Open = core.MakeBool(false)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil

	case annotation.Signature, annotation.Stamp:
		a := model.NewPdfAnnotationStamp()
		a.Name = core.MakeName(stampName(rec.Type))
		if images := g.Shapes(scene.KindImage); len(images) > 0 {
			r := f.toNative(rec.Rect)
			ap, err := imageAppearance(images[0].Attrs.Image, r.X.Length(), r.Y.Length())
			if err != nil {
				e.Log.WithError(err).WithField("id", rec.ID).Warn("stamp written without appearance")
			} else {
				a.AP = ap
			}
		}
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil
	}

	return nil, nil, fmt.Errorf("cannot encode %s records", rec.Type)
}

func stampName(t annotation.Type) string {
	if t == annotation.Signature {
		return "Signature"
	}
	return "Stamp"
}

func markupAnnotation(kind annotation.Type, quads []r2.Rect) (*model.PdfAnnotation, *model.PdfAnnotationMarkup, error) {
	switch kind {
	case annotation.Underline:
		a := model.NewPdfAnnotationUnderline()
		a.QuadPoints = pdfutils.QuadPoints(quads)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil
	case annotation.Strikeout:
		a := model.NewPdfAnnotationStrikeOut()
		a.QuadPoints = pdfutils.QuadPoints(quads)
		return a.PdfAnnotation, a.PdfAnnotationMarkup, nil
	}
	a := model.NewPdfAnnotationHighlight()
	a.QuadPoints = pdfutils.QuadPoints(quads)
	return a.PdfAnnotation, a.PdfAnnotationMarkup, nil
}

// quadRects returns the native spans of a text markup group. Underline and
// strikeout bars are grown back to the span they were drawn on.
func quadRects(f frame, kind annotation.Type, g *scene.Node) []r2.Rect {
	var out []r2.Rect
	for _, n := range g.Shapes(scene.KindRect) {
		r := absoluteRect(n)
		if kind == annotation.Underline || kind == annotation.Strikeout {
			r = spanOfBar(kind, r)
		}
		out = append(out, f.toNative(r))
	}
	return out
}

// spanOfBar inverts the bar layout of underline and strikeout marks: a bar
// is a twelfth of the span height, at least one unit.
func spanOfBar(kind annotation.Type, bar transform.Rect) transform.Rect {
	h := bar.Height * 12
	if bar.Height <= 1 {
		h = bar.Height
	}
	span := transform.Rect{X: bar.X, Width: bar.Width, Height: h}
	if kind == annotation.Underline {
		span.Y = bar.Bottom() - h
	} else {
		span.Y = bar.Y + bar.Height/2 - h/2
	}
	return span
}

func strokePaths(g *scene.Node) [][]r2.Point {
	var paths [][]r2.Point
	for _, n := range g.Shapes(scene.KindLine, scene.KindPath) {
		if pts := absolutePoints(n); len(pts) > 0 {
			paths = append(paths, pts)
		}
	}
	return paths
}

func inkList(f frame, paths [][]r2.Point) *core.PdfObjectArray {
	list := core.MakeArray()
	for _, p := range paths {
		list.Append(core.MakeArrayFromFloats(f.pointsToNative(p)))
	}
	return list
}

func borderStyle(width float64) *core.PdfObjectDictionary {
	bs := core.MakeDict()
	bs.Set("W", core.MakeFloat(width))
	bs.Set("S", core.MakeName("S"))
	return bs
}

func defaultAppearance(hex string, fontSize float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		c = colorful.Color{}
	}
	return fmt.Sprintf("/Helv %g Tf %.3f %.3f %.3f rg", fontSize, c.R, c.G, c.B)
}

func textOrNil(s string) core.PdfObject {
	if s == "" {
		return nil
	}
	return pdfutils.EncodeText(s)
}

// absolutePoints returns the points of a line-like leaf in display space.
func absolutePoints(n *scene.Node) []r2.Point {
	parent := transform.Identity
	if p := n.Parent(); p != nil {
		parent = p.AbsoluteTransform()
	}
	a := n.Attrs
	pts := make([]r2.Point, 0, len(a.Points)/2)
	for i := 0; i+1 < len(a.Points); i += 2 {
		pts = append(pts, parent.Apply(r2.Point{X: a.X + a.Points[i], Y: a.Y + a.Points[i+1]}))
	}
	return pts
}

// absoluteRect returns the box of a rect-like leaf in display space, without
// its stroke.
func absoluteRect(n *scene.Node) transform.Rect {
	parent := transform.Identity
	if p := n.Parent(); p != nil {
		parent = p.AbsoluteTransform()
	}
	a := n.Attrs
	return parent.ApplyRect(transform.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}.Normalize())
}
