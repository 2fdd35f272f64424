package pdfutils

import (
	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/mgmeyers/unipdf/v3/model"

	"github.com/mgmeyers/pdfannotator/annotation"
	"github.com/mgmeyers/pdfannotator/transform"
)

// SubtypePopup is the subtype of popup windows attached to markup
// annotations. Popups carry no content of their own.
const SubtypePopup annotation.Subtype = "Popup"

func GetAnnotationType(t interface{}) annotation.Subtype {
	switch t.(type) {
	case *model.PdfAnnotationHighlight:
		return annotation.SubtypeHighlight
	case *model.PdfAnnotationStrikeOut:
		return annotation.SubtypeStrikeOut
	case *model.PdfAnnotationUnderline:
		return annotation.SubtypeUnderline
	case *model.PdfAnnotationSquare:
		return annotation.SubtypeSquare
	case *model.PdfAnnotationCircle:
		return annotation.SubtypeCircle
	case *model.PdfAnnotationInk:
		return annotation.SubtypeInk
	case *model.PdfAnnotationFreeText:
		return annotation.SubtypeFreeText
	case *model.PdfAnnotationStamp:
		return annotation.SubtypeStamp
	case *model.PdfAnnotationText:
		return annotation.SubtypeText
	case *model.PdfAnnotationLine:
		return annotation.SubtypeLine
	case *model.PdfAnnotationPolygon:
		return annotation.SubtypePolygon
	case *model.PdfAnnotationPopup:
		return SubtypePopup
	default:
		return ""
	}
}

// GetMarkup returns the markup dictionary entries shared by every markup
// annotation, or nil for other annotations.
func GetMarkup(t interface{}) *model.PdfAnnotationMarkup {
	switch a := t.(type) {
	case *model.PdfAnnotationHighlight:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationStrikeOut:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationUnderline:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationSquare:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationCircle:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationInk:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationFreeText:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationStamp:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationText:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationLine:
		return a.PdfAnnotationMarkup
	case *model.PdfAnnotationPolygon:
		return a.PdfAnnotationMarkup
	}
	return nil
}

// GetRect returns the normalized /Rect of annot in native space.
func GetRect(annot *model.PdfAnnotation) (r2.Rect, bool) {
	arr, ok := GetFloats(annot.Rect)
	if !ok {
		return r2.EmptyRect(), false
	}
	return transform.NativeFromArray(arr)
}

// GetFloats resolves obj to an array of numbers.
func GetFloats(obj core.PdfObject) ([]float64, bool) {
	arr, ok := core.GetArray(obj)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, arr.Len())
	for _, el := range arr.Elements() {
		f, err := core.GetNumberAsFloat(core.TraceToDirectObject(el))
		if err != nil {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// GetFloat resolves obj to a number.
func GetFloat(obj core.PdfObject) (float64, bool) {
	if obj == nil {
		return 0, false
	}
	f, err := core.GetNumberAsFloat(core.TraceToDirectObject(obj))
	if err != nil {
		return 0, false
	}
	return f, true
}

// GetText resolves obj to a text string with control characters removed.
func GetText(obj core.PdfObject) string {
	s, ok := core.GetString(obj)
	if !ok {
		return ""
	}
	return RemoveNul(DecodeText(s))
}

func GetName(obj core.PdfObject) string {
	name, ok := core.GetName(obj)
	if !ok {
		return ""
	}
	return string(*name)
}

// GetDict returns the dictionary of an annotation object, following
// references.
func GetDict(obj core.PdfObject) (*core.PdfObjectDictionary, bool) {
	return core.GetDict(core.ResolveReference(obj))
}

// QuadRects splits the QuadPoints of a text markup annotation into one rect
// per quadrilateral.
func QuadRects(annot *model.PdfAnnotation) []r2.Rect {
	qp := GetQuadPoint(annot)
	if qp == nil {
		return nil
	}

	coords, ok := GetFloats(qp)
	if !ok {
		return nil
	}

	rects := []r2.Rect{}
	for i := 0; i+7 < len(coords); i += 8 {
		rects = append(rects, r2.RectFromPoints(
			r2.Point{X: coords[i], Y: coords[i+1]},
			r2.Point{X: coords[i+2], Y: coords[i+3]},
			r2.Point{X: coords[i+4], Y: coords[i+5]},
			r2.Point{X: coords[i+6], Y: coords[i+7]},
		))
	}

	return rects
}

func GetQuadPoint(annot *model.PdfAnnotation) core.PdfObject {
	switch a := annot.GetContext().(type) {
	case *model.PdfAnnotationHighlight:
		return a.QuadPoints
	case *model.PdfAnnotationStrikeOut:
		return a.QuadPoints
	case *model.PdfAnnotationUnderline:
		return a.QuadPoints
	}

	return nil
}

// QuadPoints flattens rects into a QuadPoints array, each quadrilateral
// ordered top left, top right, bottom left, bottom right.
func QuadPoints(rects []r2.Rect) *core.PdfObjectArray {
	coords := make([]float64, 0, len(rects)*8)
	for _, r := range rects {
		coords = append(coords,
			r.X.Lo, r.Y.Hi,
			r.X.Hi, r.Y.Hi,
			r.X.Lo, r.Y.Lo,
			r.X.Hi, r.Y.Lo,
		)
	}
	return core.MakeArrayFromFloats(coords)
}
