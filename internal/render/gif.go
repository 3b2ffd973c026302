package render

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"math"

	"golang.org/x/image/draw"
)

const (
	// DefaultWidth is the output GIF width; height keeps the aspect ratio.
	DefaultWidth = 540
	// DefaultFuzz is the color distance, as a fraction of the RGB cube
	// diagonal, under which a pixel is treated as unchanged.
	DefaultFuzz = 0.10
)

var gifPalette = func() color.Palette {
	p := make(color.Palette, 0, len(palette.WebSafe)+1)
	p = append(p, palette.WebSafe...)
	return append(p, color.RGBA{})
}()

var transparentIndex = uint8(len(gifPalette) - 1)

// Resize scales img to width, preserving aspect ratio.
func Resize(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 {
		width = b.Dx()
	}
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Encoder accumulates frames into an optimized looping GIF.
type Encoder struct {
	fps   int
	fuzz  float64
	anim  gif.GIF
	shown []color.RGBA
	w, h  int
}

func NewEncoder(fps int, fuzz float64) *Encoder {
	if fps <= 0 {
		fps = 12
	}
	return &Encoder{fps: fps, fuzz: fuzz, anim: gif.GIF{LoopCount: 0}}
}

// Add quantizes frame onto the web-safe palette without dithering. After
// the first frame, pixels close to what is already displayed are left
// transparent so the previous frame shows through. All frames must share
// the first frame's size.
func (e *Encoder) Add(frame *image.RGBA) {
	b := frame.Bounds()
	if e.shown == nil {
		e.w, e.h = b.Dx(), b.Dy()
		e.shown = make([]color.RGBA, e.w*e.h)
		e.anim.Config = image.Config{ColorModel: gifPalette, Width: e.w, Height: e.h}
	}
	first := len(e.anim.Image) == 0
	limit := e.fuzz * e.fuzz * 3 * 255 * 255

	out := image.NewPaletted(image.Rect(0, 0, e.w, e.h), gifPalette)
	for y := 0; y < e.h; y++ {
		for x := 0; x < e.w; x++ {
			c := frame.RGBAAt(b.Min.X+x, b.Min.Y+y)
			i := y*e.w + x
			if !first && distSq(c, e.shown[i]) <= limit {
				out.Pix[y*out.Stride+x] = transparentIndex
				continue
			}
			idx := webSafeIndex(c)
			out.Pix[y*out.Stride+x] = idx
			e.shown[i] = gifPalette[idx].(color.RGBA)
		}
	}

	n := len(e.anim.Image)
	hundredths := 100.0 / float64(e.fps)
	delay := int(math.Round(float64(n+1)*hundredths)) - int(math.Round(float64(n)*hundredths))

	e.anim.Image = append(e.anim.Image, out)
	e.anim.Delay = append(e.anim.Delay, delay)
	e.anim.Disposal = append(e.anim.Disposal, gif.DisposalNone)
}

// Frames is the number of frames added so far.
func (e *Encoder) Frames() int { return len(e.anim.Image) }

func (e *Encoder) Encode(w io.Writer) error {
	return gif.EncodeAll(w, &e.anim)
}

// webSafeIndex snaps each channel to the nearest multiple of 0x33.
// palette.WebSafe is ordered red, green, blue from outermost to innermost.
func webSafeIndex(c color.RGBA) uint8 {
	r := (int(c.R) + 25) / 51
	g := (int(c.G) + 25) / 51
	b := (int(c.B) + 25) / 51
	return uint8(r*36 + g*6 + b)
}

func distSq(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return dr*dr + dg*dg + db*db
}
