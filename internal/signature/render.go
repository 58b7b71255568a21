package signature

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/opentype"
)

// Typed signatures always render on a fixed canvas so both documents embed
// the same image regardless of screen size.
const (
	typedCanvasWidth  = 800
	typedCanvasHeight = 300
	typedFontSize     = 80
)

// renderStrokes rasterizes drawn pen strokes onto a white canvas and returns
// a PNG data URL.
func renderStrokes(strokes []Stroke, penColor string, width, height int) (string, error) {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetHexColor(penColor)
	dc.SetLineWidth(2.5)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	for _, stroke := range strokes {
		if len(stroke) == 1 {
			dc.DrawCircle(stroke[0].X, stroke[0].Y, 1.25)
			dc.Fill()
			continue
		}
		dc.MoveTo(stroke[0].X, stroke[0].Y)
		for _, pt := range stroke[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		dc.Stroke()
	}

	return encodePNG(dc)
}

// renderTyped draws the signer's name in an italic script on the fixed
// canvas and returns a PNG data URL.
func renderTyped(name, penColor string) (string, error) {
	dc := gg.NewContext(typedCanvasWidth, typedCanvasHeight)
	dc.SetColor(color.White)
	dc.Clear()

	face, err := scriptFace(typedFontSize)
	if err != nil {
		return "", err
	}
	dc.SetFontFace(face)
	dc.SetHexColor(penColor)

	size := float64(typedFontSize)
	for size > 20 {
		w, _ := dc.MeasureString(name)
		if w <= typedCanvasWidth-40 {
			break
		}
		size -= 8
		face, err = scriptFace(size)
		if err != nil {
			return "", err
		}
		dc.SetFontFace(face)
	}

	dc.DrawStringAnchored(name, typedCanvasWidth/2, typedCanvasHeight/2, 0.5, 0.5)
	return encodePNG(dc)
}

func scriptFace(size float64) (font.Face, error) {
	ft, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signature font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size: size,
		DPI:  72,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build signature font face: %w", err)
	}
	return face, nil
}

func encodePNG(dc *gg.Context) (string, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, dc.Image())
	if err != nil {
		return "", fmt.Errorf("failed to encode signature image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
