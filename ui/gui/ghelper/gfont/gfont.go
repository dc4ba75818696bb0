package gfont

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type Fonts struct {
	Small  font.Face
	Normal font.Face
	Bold   font.Face
}

// LoadFonts builds the faces from the Go fonts bundled with x/image, so
// the binary needs no asset directory.
func LoadFonts() (*Fonts, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, err
	}

	fonts := &Fonts{}
	if fonts.Small, err = newFace(regular, 12); err != nil {
		return nil, err
	}
	if fonts.Normal, err = newFace(regular, 15); err != nil {
		return nil, err
	}
	// for titles and buttons
	if fonts.Bold, err = newFace(bold, 16); err != nil {
		return nil, err
	}
	return fonts, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Wrap breaks s into lines no wider than maxW pixels. A single word
// longer than maxW gets a line of its own.
func Wrap(face font.Face, s string, maxW int) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			next := line + " " + w
			if font.MeasureString(face, next).Ceil() > maxW {
				lines = append(lines, line)
				line = w
				continue
			}
			line = next
		}
		lines = append(lines, line)
	}
	return lines
}
