// Package codec converts annotation records to and from native PDF
// annotations, and exports them as a table.
package codec

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/editor"
	"github.com/mgmeyers/pdfannotator/pdfutils"
	"github.com/mgmeyers/pdfannotator/scene"
	"github.com/mgmeyers/pdfannotator/transform"
)

// maxReplyDepth bounds how far a reply chain is followed to its root.
const maxReplyDepth = 16

var subtypeKinds = map[annotation.Subtype]annotation.Type{
	annotation.SubtypeHighlight: annotation.Highlight,
	annotation.SubtypeUnderline: annotation.Underline,
	annotation.SubtypeStrikeOut: annotation.Strikeout,
	annotation.SubtypeFreeText:  annotation.FreeText,
	annotation.SubtypeSquare:    annotation.Rectangle,
	annotation.SubtypeCircle:    annotation.Circle,
	annotation.SubtypeInk:       annotation.FreeHand,
	annotation.SubtypeStamp:     annotation.Stamp,
	annotation.SubtypeText:      annotation.Note,
	annotation.SubtypeLine:      annotation.Arrow,
	annotation.SubtypePolygon:   annotation.Cloud,
}

// Decoder reads the native annotations of a document into records.
type Decoder struct {
	Log logrus.FieldLogger

	// Renderer, when set, rasterizes pages so stamps can carry the image
	// they cover.
	Renderer *pdfutils.Renderer

	// IgnoreBefore drops annotations last modified before it.
	IgnoreBefore time.Time
}

func NewDecoder(log logrus.FieldLogger) *Decoder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Decoder{Log: log}
}

type reply struct {
	irt     core.PdfObject
	self    core.PdfObject
	comment annotation.Comment
}

type decodeState struct {
	ids      map[string]bool
	byNM     map[string]*annotation.Record
	byObject map[core.PdfObject]*annotation.Record
	records  []*annotation.Record
	replies  []reply
}

// Decode reads every page of the document in rs.
func (d *Decoder) Decode(ctx context.Context, rs io.ReadSeeker) ([]*annotation.Record, error) {
	reader, err := model.NewPdfReader(rs)
	if err != nil {
		return nil, errors.Wrap(err, "read pdf")
	}
	return d.DecodeReader(ctx, reader)
}

func (d *Decoder) DecodeReader(ctx context.Context, reader *model.PdfReader) ([]*annotation.Record, error) {
	if err := unlock(reader); err != nil {
		return nil, err
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, errors.Wrap(err, "count pages")
	}

	st := &decodeState{
		ids:      map[string]bool{},
		byNM:     map[string]*annotation.Record{},
		byObject: map[core.PdfObject]*annotation.Record{},
	}

	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := reader.GetPage(i + 1)
		if err != nil {
			return nil, errors.Wrapf(err, "read page %d", i+1)
		}

		annotations, err := page.GetAnnotations()
		if err != nil {
			return nil, errors.Wrapf(err, "read annotations of page %d", i+1)
		}

		d.decodePage(st, i, page, annotations)
	}

	d.attachReplies(st)
	return st.records, nil
}

// unlock opens documents encrypted with an empty user password.
func unlock(reader *model.PdfReader) error {
	encrypted, err := reader.IsEncrypted()
	if err != nil {
		return errors.Wrap(err, "check encryption")
	}
	if !encrypted {
		return nil
	}
	ok, err := reader.Decrypt([]byte(""))
	if err != nil {
		return errors.Wrap(err, "decrypt pdf")
	}
	if !ok {
		return errors.New("pdf is password protected")
	}
	return nil
}

func (d *Decoder) decodePage(st *decodeState, pageIndex int, page *model.PdfPage, annotations []*model.PdfAnnotation) {
	f := pageFrame(page)
	log := d.Log.WithField("page", pageIndex+1)

	var text *pageText
	textLoaded := false
	pageTextFn := func() *pageText {
		if !textLoaded {
			textLoaded = true
			t, err := extractPageText(page)
			if err != nil {
				log.WithError(err).Debug("no text layer")
			}
			text = t
		}
		return text
	}

	for _, annot := range annotations {
		ctx := annot.GetContext()
		sub := pdfutils.GetAnnotationType(ctx)
		if sub == "" || sub == pdfutils.SubtypePopup {
			continue
		}

		if date := pdfutils.GetAnnotationDate(annot); date != nil && date.Before(d.IgnoreBefore) {
			continue
		}

		markup := pdfutils.GetMarkup(ctx)
		if note, ok := ctx.(*model.PdfAnnotationText); ok && markup != nil && markup.IRT != nil {
			st.replies = append(st.replies, decodeReply(annot, note, markup))
			continue
		}

		rec, err := d.decodeAnnotation(st, pageIndex, page, f, annot, pageTextFn)
		if err != nil {
			log.WithError(err).WithField("subtype", sub).Warn("skipping annotation")
			continue
		}

		st.records = append(st.records, rec)
		if nm := pdfutils.GetText(annot.NM); nm != "" {
			if _, ok := st.byNM[nm]; !ok {
				st.byNM[nm] = rec
			}
		}
		if obj := annot.GetContainingPdfObject(); obj != nil {
			st.byObject[obj] = rec
		}
	}
}

func (d *Decoder) decodeAnnotation(
	st *decodeState,
	pageIndex int,
	page *model.PdfPage,
	f frame,
	annot *model.PdfAnnotation,
	text func() *pageText,
) (*annotation.Record, error) {
	ctx := annot.GetContext()
	sub := pdfutils.GetAnnotationType(ctx)
	kind := subtypeKinds[sub]
	def, _ := annotation.DefinitionFor(kind)

	native, ok := pdfutils.GetRect(annot)
	if !ok {
		return nil, errors.New("missing or invalid rect")
	}
	rect := f.toDisplay(native)

	id := pdfutils.GetText(annot.NM)
	if id == "" || st.ids[id] {
		x, y := pdfutils.GetCoordinates(native)
		id = pdfutils.GetAnnotationID(st.ids, pageIndex, x, y, strings.ToLower(kind.String()))
	}
	st.ids[id] = true

	rec := &annotation.Record{
		ID:         id,
		PageNumber: pageIndex + 1,
		Type:       kind,
		Subtype:    sub,
		Rect:       rect,
		Date:       pdfutils.GetText(annot.M),
		Contents:   pdfutils.GetText(annot.Contents),
		Color:      pdfutils.PDFObjToHex(annot.C),
		Native:     true,
	}
	if markup := pdfutils.GetMarkup(ctx); markup != nil {
		rec.Title = pdfutils.GetText(markup.T)
		if ca, ok := pdfutils.GetFloat(markup.CA); ok {
			rec.Opacity = annotation.Float(ca)
		}
	}
	if rec.Color == "" {
		rec.Color = def.Style.Color
	}
	if rec.Opacity == nil && def.StyleEditable.Opacity {
		rec.Opacity = def.Style.Opacity
	}
	if def.StyleEditable.StrokeWidth {
		if w, ok := borderWidth(ctx); ok {
			rec.StrokeWidth = annotation.Float(w)
		} else {
			rec.StrokeWidth = annotation.Float(1)
		}
	}

	g := scene.NewGroup(id, def.Name)
	g.Attrs.X, g.Attrs.Y = rect.X, rect.Y
	local := func(p r2.Point) r2.Point {
		return r2.Point{X: p.X - rect.X, Y: p.Y - rect.Y}
	}
	sw := 0.0
	if rec.StrokeWidth != nil {
		sw = *rec.StrokeWidth
	}

	switch a := ctx.(type) {
	case *model.PdfAnnotationSquare:
		g.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
			X: sw / 2, Y: sw / 2, Width: nonNegative(rect.Width - sw), Height: nonNegative(rect.Height - sw),
			Stroke: rec.Color, StrokeWidth: sw, Opacity: rec.Opacity,
		}})

	case *model.PdfAnnotationCircle:
		g.Add(&scene.Node{Kind: scene.KindEllipse, Attrs: scene.Attrs{
			X: rect.Width / 2, Y: rect.Height / 2,
			RadiusX: nonNegative(rect.Width-sw) / 2, RadiusY: nonNegative(rect.Height-sw) / 2,
			Stroke: rec.Color, StrokeWidth: sw, Opacity: rec.Opacity,
		}})

	case *model.PdfAnnotationInk:
		paths, ok := core.GetArray(a.InkList)
		if !ok {
			return nil, errors.New("ink without InkList")
		}
		for _, p := range paths.Elements() {
			flat, ok := pdfutils.GetFloats(p)
			if !ok || len(flat) < 2 {
				continue
			}
			var points []float64
			for _, pt := range f.flatToDisplay(flat) {
				l := local(pt)
				points = append(points, l.X, l.Y)
			}
			g.Add(&scene.Node{Kind: scene.KindLine, Attrs: scene.Attrs{
				Points: points, Stroke: rec.Color, StrokeWidth: sw, Opacity: rec.Opacity,
			}})
		}
		if len(g.Children) == 0 {
			return nil, errors.New("ink without paths")
		}

	case *model.PdfAnnotationHighlight, *model.PdfAnnotationUnderline, *model.PdfAnnotationStrikeOut:
		quads := pdfutils.QuadRects(annot)
		if len(quads) == 0 {
			quads = []r2.Rect{native}
		}
		for _, q := range quads {
			span := f.toDisplay(q)
			span.X, span.Y = span.X-rect.X, span.Y-rect.Y
			bar := editor.MarkupRect(kind, span)
			g.Add(&scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
				X: bar.X, Y: bar.Y, Width: bar.Width, Height: bar.Height,
				Fill: rec.Color, Opacity: rec.Opacity,
			}})
		}
		if rec.Contents == "" {
			if t := text(); t != nil {
				rec.Contents = t.annotated(quads)
			}
		}

	case *model.PdfAnnotationFreeText:
		g.Add(&scene.Node{Kind: scene.KindText, Attrs: scene.Attrs{
			Width: rect.Width, Height: rect.Height, Text: rec.Contents,
			Fill: rec.Color, FontSize: fontSize(a.DA), FontFamily: editor.FreeTextFontFamily,
		}})

	case *model.PdfAnnotationStamp:
		g.Add(d.stampNode(pageIndex, page, native, rect))

	case *model.PdfAnnotationLine:
		l, ok := pdfutils.GetFloats(a.L)
		if !ok || len(l) != 4 {
			return nil, errors.New("line without L")
		}
		var points []float64
		for _, pt := range f.flatToDisplay(l) {
			p := local(pt)
			points = append(points, p.X, p.Y)
		}
		g.Add(&scene.Node{Kind: scene.KindArrow, Attrs: scene.Attrs{
			Points: points, PointerLength: defaultPointer, PointerWidth: defaultPointer,
			Stroke: rec.Color, Fill: rec.Color, StrokeWidth: sw, Opacity: rec.Opacity,
		}})

	case *model.PdfAnnotationPolygon:
		inset := sw/2 + editor.CloudArcLength/2
		inner := transform.Rect{X: inset, Y: inset, Width: rect.Width - 2*inset, Height: rect.Height - 2*inset}
		if inner.Width <= 0 || inner.Height <= 0 {
			inner = transform.Rect{Width: rect.Width, Height: rect.Height}
		}
		g.Add(&scene.Node{Kind: scene.KindPath, Attrs: scene.Attrs{
			Points: editor.CloudPoints(inner, editor.CloudArcLength), Closed: true,
			Stroke: rec.Color, StrokeWidth: sw, Opacity: rec.Opacity,
		}})

	case *model.PdfAnnotationText:
		editor.NoteIcon(g, rec.Color)
	}

	serialized, err := scene.Marshal(g)
	if err != nil {
		return nil, err
	}
	rec.Group = serialized
	return rec, nil
}

// defaultPointer is the arrow head size given to decoded lines.
const defaultPointer = 10.0

func (d *Decoder) stampNode(pageIndex int, page *model.PdfPage, native r2.Rect, rect transform.Rect) *scene.Node {
	if d.Renderer != nil {
		img, err := d.Renderer.Crop(pageIndex, page, native)
		if err == nil {
			var url string
			url, err = scene.EncodeDataURL(img)
			if err == nil {
				return &scene.Node{Kind: scene.KindImage, Attrs: scene.Attrs{
					Width: rect.Width, Height: rect.Height, Image: url,
				}}
			}
		}
		d.Log.WithError(err).WithField("page", pageIndex+1).Debug("stamp left without image")
	}
	return &scene.Node{Kind: scene.KindRect, Attrs: scene.Attrs{
		Width: rect.Width, Height: rect.Height, Stroke: "#808080", StrokeWidth: 1,
	}}
}

func decodeReply(annot *model.PdfAnnotation, note *model.PdfAnnotationText, markup *model.PdfAnnotationMarkup) reply {
	c := annotation.Comment{
		ID:      pdfutils.GetText(annot.NM),
		Title:   pdfutils.GetText(markup.T),
		Date:    pdfutils.GetText(annot.M),
		Content: pdfutils.GetText(annot.Contents),
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if strings.EqualFold(textOrName(note.StateModel), "Review") {
		c.Status = statusFromState(textOrName(note.State))
	}
	return reply{irt: markup.IRT, self: annot.GetContainingPdfObject(), comment: c}
}

func statusFromState(state string) annotation.CommentStatus {
	status, err := annotation.ParseCommentStatus(strings.ToLower(state))
	if err != nil || status == "" {
		return annotation.StatusNone
	}
	return status
}

// attachReplies appends every reply to the record at the root of its IRT
// chain. The parent is matched by NM first, then by object identity.
func (d *Decoder) attachReplies(st *decodeState) {
	parents := map[core.PdfObject]core.PdfObject{}
	for _, r := range st.replies {
		if r.self != nil {
			parents[r.self] = r.irt
		}
	}

	for _, r := range st.replies {
		rec := st.resolve(r.irt, parents)
		if rec == nil {
			d.Log.WithField("comment", r.comment.ID).Debug("reply without a parent")
			continue
		}
		rec.Comments = append(rec.Comments, r.comment)
	}
}

func (st *decodeState) resolve(irt core.PdfObject, parents map[core.PdfObject]core.PdfObject) *annotation.Record {
	for depth := 0; irt != nil && depth < maxReplyDepth; depth++ {
		target := core.ResolveReference(irt)
		if dict, ok := core.GetDict(target); ok {
			if nm := pdfutils.GetText(dict.Get("NM")); nm != "" {
				if rec, ok := st.byNM[nm]; ok {
					return rec
				}
			}
		}
		if rec, ok := st.byObject[target]; ok {
			return rec
		}
		next, ok := parents[target]
		if !ok {
			return nil
		}
		irt = next
	}
	return nil
}

func borderWidth(ctx interface{}) (float64, bool) {
	var bs core.PdfObject
	switch a := ctx.(type) {
	case *model.PdfAnnotationSquare:
		bs = a.BS
	case *model.PdfAnnotationCircle:
		bs = a.BS
	case *model.PdfAnnotationInk:
		bs = a.BS
	case *model.PdfAnnotationLine:
		bs = a.BS
	case *model.PdfAnnotationPolygon:
		bs = a.BS
	case *model.PdfAnnotationFreeText:
		bs = a.BS
	}
	dict, ok := pdfutils.GetDict(bs)
	if !ok {
		return 0, false
	}
	return pdfutils.GetFloat(dict.Get("W"))
}

var fontSizeRe = regexp.MustCompile(`([0-9]*\.?[0-9]+)\s+Tf`)

// fontSize reads the size operand of the Tf operator in a default
// appearance string.
func fontSize(da core.PdfObject) float64 {
	m := fontSizeRe.FindStringSubmatch(pdfutils.GetText(da))
	if m == nil {
		return editor.FreeTextFontSize
	}
	size, err := strconv.ParseFloat(m[1], 64)
	if err != nil || size <= 0 {
		return editor.FreeTextFontSize
	}
	return size
}

func textOrName(obj core.PdfObject) string {
	if name := pdfutils.GetName(obj); name != "" {
		return name
	}
	return pdfutils.GetText(obj)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
