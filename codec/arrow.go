package codec

import (
	"github.com/golang/geo/r2"
)

// ArrowInkPath flattens the last segment of an arrow into an ink stroke: the
// segment from start to tip followed by the head as left barb, right barb and
// back to the tip. length and width size the head.
func ArrowInkPath(start, tip r2.Point, length, width float64) []r2.Point {
	shaft := tip.Sub(start)
	if shaft.Norm() == 0 {
		return []r2.Point{start, tip, tip, tip, tip}
	}
	dir := shaft.Normalize()
	base := tip.Sub(dir.Mul(length))
	half := dir.Ortho().Mul(width / 2)
	return []r2.Point{start, tip, base.Add(half), base.Sub(half), tip}
}
