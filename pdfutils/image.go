package pdfutils

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/golang/geo/r2"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/transform"
)

// Renderer rasterizes pages of a document through MuPDF and crops annotation
// areas out of them. Rendered pages are cached.
type Renderer struct {
	mu    sync.Mutex
	doc   *fitz.Document
	dpi   float64
	pages map[int]image.Image
}

func NewRenderer(path string, dpi float64) (*Renderer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, errors.Wrap(err, "open document for rendering")
	}

	if dpi <= 0 {
		dpi = 120
	}

	return &Renderer{doc: doc, dpi: dpi, pages: map[int]image.Image{}}, nil
}

func (r *Renderer) Close() error {
	return r.doc.Close()
}

func (r *Renderer) pageImage(pageIndex int) (image.Image, error) {
	if img, ok := r.pages[pageIndex]; ok {
		return img, nil
	}

	img, err := r.doc.ImageDPI(pageIndex, r.dpi)
	if err != nil {
		return nil, errors.Wrapf(err, "render page %d", pageIndex+1)
	}

	r.pages[pageIndex] = img
	return img, nil
}

// Crop returns the area of rect, given in native space, on the page with
// pageIndex.
func (r *Renderer) Crop(pageIndex int, page *model.PdfPage, rect r2.Rect) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pageImg, err := r.pageImage(pageIndex)
	if err != nil {
		return nil, err
	}

	return CropPageImage(pageImg, page, rect)
}

// CropPageImage crops rect, given in native space, out of a rendering of page.
func CropPageImage(pageImg image.Image, page *model.PdfPage, rect r2.Rect) (image.Image, error) {
	width := page.MediaBox.Width()
	height := page.MediaBox.Height()
	rotate := 0

	if page.Rotate != nil {
		rotate = int(*page.Rotate)
	}

	if quarter := ((rotate % 360) + 360) % 360; quarter == 90 || quarter == 270 {
		width, height = height, width
	}

	annotRect := transform.ApplyPageRotation(rotate, page.MediaBox.Width(), page.MediaBox.Height(), transform.NativeArray(rect))

	scale := float64(pageImg.Bounds().Max.X) / width

	crop := image.Rect(
		int(math.Round(annotRect[0]*scale)),
		int(math.Round((height-annotRect[1])*scale)),
		int(math.Round(annotRect[2]*scale)),
		int(math.Round((height-annotRect[3])*scale)),
	)

	return CropImage(pageImg, crop)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func CropImage(img image.Image, crop image.Rectangle) (image.Image, error) {
	simg, ok := img.(subImager)
	if !ok {
		return nil, errors.New("image does not support cropping")
	}

	return simg.SubImage(crop), nil
}

func WriteImage(w io.Writer, img image.Image, format string, quality int) error {
	if format == "jpg" {
		return errors.Wrap(jpeg.Encode(w, img, &jpeg.Options{Quality: quality}), "encode jpg")
	}

	return errors.Wrap(png.Encode(w, img), "encode png")
}
