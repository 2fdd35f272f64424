package codec

import (
	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/model"

	"github.com/mgmeyers/pdfannotator/transform"
)

// frame maps between the native space of a page, whose MediaBox may not
// start at the origin, and its display space.
type frame struct {
	llx, lly, height float64
}

func pageFrame(page *model.PdfPage) frame {
	if page == nil || page.MediaBox == nil {
		return frame{height: 792}
	}
	mb := page.MediaBox
	return frame{llx: mb.Llx, lly: mb.Lly, height: mb.Height()}
}

func (f frame) pointToDisplay(p r2.Point) r2.Point {
	return transform.DisplayPointFromNative(r2.Point{X: p.X - f.llx, Y: p.Y - f.lly}, f.height)
}

func (f frame) pointToNative(p r2.Point) r2.Point {
	n := transform.NativePointFromDisplay(p, f.height)
	return r2.Point{X: n.X + f.llx, Y: n.Y + f.lly}
}

func (f frame) toDisplay(r r2.Rect) transform.Rect {
	shifted := r2.RectFromPoints(
		r2.Point{X: r.X.Lo - f.llx, Y: r.Y.Lo - f.lly},
		r2.Point{X: r.X.Hi - f.llx, Y: r.Y.Hi - f.lly},
	)
	return transform.DisplayRectFromNative(shifted, f.height)
}

func (f frame) toNative(r transform.Rect) r2.Rect {
	n := transform.NativeRectFromDisplay(r, f.height)
	return r2.RectFromPoints(
		r2.Point{X: n.X.Lo + f.llx, Y: n.Y.Lo + f.lly},
		r2.Point{X: n.X.Hi + f.llx, Y: n.Y.Hi + f.lly},
	)
}

// flatToDisplay maps a flat native [x0 y0 x1 y1 ...] list into display
// points.
func (f frame) flatToDisplay(flat []float64) []r2.Point {
	pts := make([]r2.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, f.pointToDisplay(r2.Point{X: flat[i], Y: flat[i+1]}))
	}
	return pts
}

// pointsToNative flattens display points into a native coordinate list.
func (f frame) pointsToNative(pts []r2.Point) []float64 {
	out := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		n := f.pointToNative(p)
		out = append(out, n.X, n.Y)
	}
	return out
}
