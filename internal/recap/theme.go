package recap

import "image/color"

// Card palette.
var (
	Lavender   = color.RGBA{R: 0xE6, G: 0xE0, B: 0xF8, A: 0xFF}
	Cream      = color.RGBA{R: 0xFF, G: 0xF8, B: 0xF0, A: 0xFF}
	Sage       = color.RGBA{R: 0xD4, G: 0xE5, B: 0xD7, A: 0xFF}
	WarmGray   = color.RGBA{R: 0x99, G: 0x94, B: 0x8F, A: 0xFF}
	DeepPurple = color.RGBA{R: 0x6B, G: 0x59, B: 0x8C, A: 0xFF}

	CardBackground = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	TextPrimary    = color.RGBA{R: 0x33, G: 0x33, B: 0x40, A: 0xFF}
	TextSecondary  = WarmGray
	Accent         = DeepPurple
)
