package main

import (
	"image/color"

	"fyne.io/fyne/v2/theme"
)

var (
	colorGreenAccent = color.NRGBA{R: 77, G: 191, B: 102, A: 255}
	colorWhiteLabel  = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	colorBarBg       = color.NRGBA{R: 30, G: 30, B: 30, A: 230}
)

// accentBgColor is the primary theme color at low opacity.
func accentBgColor() color.Color {
	r, g, b, _ := theme.Color(theme.ColorNamePrimary).RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 38}
}
