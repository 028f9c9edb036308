package etl

import "image"

// DecodeImage unpacks a record's packed scan into an 8-bit grayscale
// image. Pixels are consumed row-major, most significant bits first,
// and stretched to the full byte range by the geometry's scale factor.
func DecodeImage(raw []byte, g Geometry) (*image.Gray, error) {
	need := (g.Width*g.Height*g.Depth + 7) / 8
	if len(raw) < need {
		return nil, &ImageSizeMismatch{Want: need, Got: len(raw)}
	}
	img := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	br := newBitReader(raw)
	for y := 0; y < g.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+g.Width]
		for x := 0; x < g.Width; x++ {
			v, err := br.readBits(uint8(g.Depth))
			if err != nil {
				return nil, err
			}
			row[x] = uint8(int(v) * g.Scale)
		}
	}
	return img, nil
}
