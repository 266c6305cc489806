// Package imagemeta reads the pixel dimensions of images in the content
// store. Only the image header is decoded.
package imagemeta

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/hupe1980/autolabel/blobstore"
)

// ErrUndecodable is returned when the bytes are not a supported image.
var ErrUndecodable = errors.New("imagemeta: undecodable image")

// Dimensions are the pixel dimensions and channel count of an image.
type Dimensions struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Depth  int    `json:"depth"`
	Format string `json:"-"`
}

// Source opens objects for streaming.
type Source interface {
	Open(ctx context.Context, u blobstore.URI) (io.ReadCloser, error)
}

// Prober reads image dimensions from a Source.
type Prober struct {
	src Source
}

// NewProber creates a Prober.
func NewProber(src Source) *Prober {
	return &Prober{src: src}
}

// Probe returns the dimensions of the image at ref.
func (p *Prober) Probe(ctx context.Context, ref string) (Dimensions, error) {
	u, err := blobstore.ParseURI(ref)
	if err != nil {
		return Dimensions{}, err
	}

	rc, err := p.src.Open(ctx, u)
	if err != nil {
		return Dimensions{}, err
	}
	defer rc.Close()

	d, err := Decode(rc)
	if err != nil {
		return Dimensions{}, fmt.Errorf("%s: %w", ref, err)
	}
	return d, nil
}

// Decode reads an image header from r.
func Decode(r io.Reader) (Dimensions, error) {
	cfg, format, err := image.DecodeConfig(bufio.NewReader(r))
	if err != nil {
		return Dimensions{}, errors.Join(ErrUndecodable, err)
	}
	return Dimensions{
		Width:  cfg.Width,
		Height: cfg.Height,
		Depth:  Depth(cfg.ColorModel),
		Format: format,
	}, nil
}

// Depth returns the number of channels of a color model.
func Depth(m color.Model) int {
	if _, ok := m.(color.Palette); ok {
		return 1
	}
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.CMYKModel, color.NYCbCrAModel:
		return 4
	default:
		return 3
	}
}
