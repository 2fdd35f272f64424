package codec

import (
	"github.com/mgmeyers/unipdf/v3/contentstream"
	"github.com/mgmeyers/unipdf/v3/core"
	"github.com/mgmeyers/unipdf/v3/model"
	"github.com/pkg/errors"

	"github.com/mgmeyers/pdfannotator/scene"
)

const appearanceImage = core.PdfObjectName("Im1")

// imageAppearance builds an appearance dictionary whose normal appearance
// paints the data URL image over a w x h box.
func imageAppearance(dataURL string, w, h float64) (*core.PdfObjectDictionary, error) {
	img, _, err := scene.DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	pimg, err := model.ImageHandling.NewImageFromGoImage(img)
	if err != nil {
		return nil, errors.Wrap(err, "convert image")
	}

	ximg, err := model.NewXObjectImageFromImage(pimg, nil, core.NewFlateEncoder())
	if err != nil {
		return nil, errors.Wrap(err, "create image xobject")
	}

	resources := model.NewPdfPageResources()
	if err := resources.SetXObjectImageByName(appearanceImage, ximg); err != nil {
		return nil, errors.Wrap(err, "register image")
	}

	cc := contentstream.NewContentCreator()
	cc.Add_q().Add_cm(w, 0, 0, h, 0, 0).Add_Do(appearanceImage).Add_Q()

	form := model.NewXObjectForm()
	form.Resources = resources
	form.BBox = core.MakeArrayFromFloats([]float64{0, 0, w, h})
	if err := form.SetContentStream(cc.Bytes(), core.NewRawEncoder()); err != nil {
		return nil, errors.Wrap(err, "write appearance stream")
	}

	ap := core.MakeDict()
	ap.Set("N", form.ToPdfObject())
	return ap, nil
}
