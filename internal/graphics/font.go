package graphics

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Glyph describes a single character's placement and metrics within the atlas
type Glyph struct {
	// Pixel coordinates of the glyph in the atlas image (top-left origin)
	AtlasX float32
	AtlasY float32
	// Glyph bitmap size in pixels
	Width  float32
	Height float32
	// Bearing (offset from the pen position on the baseline) in pixels
	BearingX float32
	BearingY float32
	// Advance in pixels
	Advance int
}

// FontAtlas is a baked glyph set. Image is white with the glyph coverage in
// the alpha channel, ready for Backend.CreateTexture.
type FontAtlas struct {
	Image      *image.RGBA
	Glyphs     map[rune]Glyph
	LineHeight int
}

// NewGoFontFace returns the Go Regular face at the given pixel size.
func NewGoFontFace(pixels float64) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: pixels, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	return face, nil
}

// BuildFontAtlas bakes the runes first..last of face into an atlas atlasW
// pixels wide, packing glyphs in rows.
func BuildFontAtlas(face font.Face, first, last rune, atlasW int) (*FontAtlas, error) {
	if last < first || atlasW <= 0 {
		return nil, errors.New("font atlas: empty rune range or width")
	}
	const padding = 1

	// First pass: measure rows to size the atlas
	offsetX, rowH, atlasH := 0, 0, 0
	for r := first; r <= last; r++ {
		dr, mask, _, _, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil || dr.Empty() {
			continue
		}
		if dr.Dx() > atlasW {
			return nil, fmt.Errorf("font atlas: glyph %q wider than atlas", r)
		}
		if offsetX+dr.Dx() > atlasW {
			atlasH += rowH + padding
			offsetX, rowH = 0, 0
		}
		offsetX += dr.Dx() + padding
		rowH = max(rowH, dr.Dy())
	}
	atlasH += rowH
	if atlasH == 0 {
		return nil, errors.New("font atlas: no drawable glyphs")
	}

	img := image.NewRGBA(image.Rect(0, 0, atlasW, atlasH))
	glyphs := make(map[rune]Glyph)

	// Second pass: render each glyph into the atlas and record metrics
	offsetX, offsetY, rowH := 0, 0, 0
	for r := first; r <= last; r++ {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok {
			continue
		}
		g := Glyph{
			BearingX: float32(dr.Min.X),
			BearingY: float32(-dr.Min.Y),
			Advance:  int(math.Round(float64(advance) / 64.0)),
		}
		if mask == nil || dr.Empty() {
			// Space or non-drawable glyph; still record advance
			glyphs[r] = g
			continue
		}
		if offsetX+dr.Dx() > atlasW {
			offsetX = 0
			offsetY += rowH + padding
			rowH = 0
		}
		dst := image.Rect(offsetX, offsetY, offsetX+dr.Dx(), offsetY+dr.Dy())
		draw.DrawMask(img, dst, image.White, image.Point{}, mask, maskp, draw.Over)

		g.AtlasX, g.AtlasY = float32(offsetX), float32(offsetY)
		g.Width, g.Height = float32(dr.Dx()), float32(dr.Dy())
		glyphs[r] = g

		offsetX += dr.Dx() + padding
		rowH = max(rowH, dr.Dy())
	}

	return &FontAtlas{
		Image:      img,
		Glyphs:     glyphs,
		LineHeight: face.Metrics().Height.Ceil(),
	}, nil
}

// Measure returns the width and height in pixels the text occupies at scale.
func (a *FontAtlas) Measure(text string, scale float32) (float32, float32) {
	var width, maxH float32
	for _, r := range text {
		g, ok := a.Glyphs[r]
		if !ok {
			g = a.Glyphs[' ']
		}
		width += float32(g.Advance) * scale
		maxH = max(maxH, g.Height*scale)
	}
	return width, maxH
}

// Quads lays text out from the baseline origin (x, y) in pixels, y down.
// It returns per-vertex positions (x, y, 0), texture coordinates and the
// triangle indices, four vertices and six indices per drawable glyph.
// Missing glyphs advance like a space.
func (a *FontAtlas) Quads(text string, x, y, scale float32) (pos, uv []float32, indices []uint32) {
	aw := float32(a.Image.Rect.Dx())
	ah := float32(a.Image.Rect.Dy())
	for _, r := range text {
		g, ok := a.Glyphs[r]
		if !ok {
			x += float32(a.Glyphs[' '].Advance) * scale
			continue
		}
		if g.Width > 0 && g.Height > 0 {
			x0 := x + g.BearingX*scale
			y0 := y - g.BearingY*scale
			x1, y1 := x0+g.Width*scale, y0+g.Height*scale
			u0, v0 := g.AtlasX/aw, g.AtlasY/ah
			u1, v1 := (g.AtlasX+g.Width)/aw, (g.AtlasY+g.Height)/ah

			base := uint32(len(pos) / 3)
			pos = append(pos,
				x0, y1, 0,
				x0, y0, 0,
				x1, y0, 0,
				x1, y1, 0,
			)
			uv = append(uv, u0, v1, u0, v0, u1, v0, u1, v1)
			indices = append(indices, base, base+1, base+2, base, base+2, base+3)
		}
		x += float32(g.Advance) * scale
	}
	return pos, uv, indices
}
