package graphics

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"

	"sigma-render/internal/gpu"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeRGBA reads an image file (png, jpeg, gif, bmp, tiff or webp) and
// converts it to RGBA.
func DecodeRGBA(fsys fs.FS, path string) (*image.RGBA, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("texture %s has no pixels", path)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

// LoadTexture decodes an image and uploads it as a 2D texture.
func LoadTexture(backend gpu.Backend, fsys fs.FS, path string) (gpu.TextureHandle, error) {
	rgba, err := DecodeRGBA(fsys, path)
	if err != nil {
		return gpu.NoTexture, err
	}
	tex, err := backend.CreateTexture(rgba)
	if err != nil {
		return gpu.NoTexture, fmt.Errorf("upload texture %s: %w", path, err)
	}
	return tex, nil
}
