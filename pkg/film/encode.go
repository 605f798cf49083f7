package film

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"
)

// ErrPFMFormat is returned for malformed PFM streams
var ErrPFMFormat = errors.New("film: malformed PFM")

// tonemap applies exposure to a linear color and converts it to clamped sRGB
func tonemap(r, g, b, exposure float64) colorful.Color {
	return colorful.LinearRgb(r*exposure, g*exposure, b*exposure).Clamped()
}

// ToRGBA converts a linear radiance grid into an 8-bit sRGB image
func ToRGBA(g *Grid[float32], exposure float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.Vec3At(x, y)
			r, gg, b := tonemap(v.X, v.Y, v.Z, exposure).RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: gg, B: b, A: 255})
		}
	}
	return img
}

// ToRGBA64 converts a linear radiance grid into a 16-bit sRGB image
func ToRGBA64(g *Grid[float32], exposure float64) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.Vec3At(x, y)
			c := tonemap(v.X, v.Y, v.Z, exposure)
			img.SetRGBA64(x, y, color.RGBA64{
				R: uint16(c.R*65535 + 0.5),
				G: uint16(c.G*65535 + 0.5),
				B: uint16(c.B*65535 + 0.5),
				A: 0xffff,
			})
		}
	}
	return img
}

// EncodeTIFF writes a 16-bit deflate-compressed TIFF
func EncodeTIFF(w io.Writer, g *Grid[float32], exposure float64) error {
	return tiff.Encode(w, ToRGBA64(g, exposure), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// EncodePFM writes a grid as a little-endian portable float map. Grids with
// one channel are written as greyscale ("Pf"), all others as RGB ("PF").
func EncodePFM(w io.Writer, g *Grid[float32]) error {
	bw := bufio.NewWriter(w)
	magic := "PF"
	channels := 3
	if g.Channels == 1 {
		magic = "Pf"
		channels = 1
	}
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n-1.0\n", magic, g.Width, g.Height); err != nil {
		return err
	}

	row := make([]float32, g.Width*channels)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			for c := 0; c < channels; c++ {
				if c < g.Channels {
					row[x*channels+c] = g.At(x, y, c)
				} else {
					row[x*channels+c] = 0
				}
			}
		}
		if err := binary.Write(bw, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodePFM reads a portable float map in either byte order
func DecodePFM(r io.Reader) (*Grid[float32], error) {
	br := bufio.NewReader(r)

	var magic string
	var width, height int
	var scale float64
	if _, err := fmt.Fscan(br, &magic, &width, &height, &scale); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrPFMFormat, err)
	}
	// Exactly one whitespace byte separates the header from the raster
	if _, err := br.ReadByte(); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrPFMFormat, err)
	}

	var channels int
	switch magic {
	case "PF":
		channels = 3
	case "Pf":
		channels = 1
	default:
		return nil, fmt.Errorf("%w: unknown magic %q", ErrPFMFormat, magic)
	}
	if width <= 0 || height <= 0 || scale == 0 || math.IsNaN(scale) {
		return nil, fmt.Errorf("%w: bad dimensions %dx%d scale %v", ErrPFMFormat, width, height, scale)
	}

	var order binary.ByteOrder = binary.LittleEndian
	if scale > 0 {
		order = binary.BigEndian
	}

	g := NewGrid[float32](width, height, channels)
	if err := binary.Read(br, order, g.Pix); err != nil {
		return nil, fmt.Errorf("%w: raster: %v", ErrPFMFormat, err)
	}
	return g, nil
}
