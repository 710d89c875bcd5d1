package recap

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderText formats the recap for sharing as plain text.
func RenderText(r Recap) string {
	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteString("\n")
	b.WriteString(r.RangeLabel)
	b.WriteString("\n\n")

	if r.Empty() {
		b.WriteString(EmptyMessage)
		b.WriteString("\n")
	} else {
		for _, item := range r.Items {
			b.WriteString("• ")
			b.WriteString(item.Text)
			b.WriteString("\n")
		}
		if r.Remaining > 0 {
			fmt.Fprintf(&b, "+ %d more\n", r.Remaining)
		}
	}

	b.WriteString("\n♥ ")
	b.WriteString(Footer)
	return b.String()
}

// Card layout in pixels.
const (
	imageWidth   = 600
	outerPadding = 24
	cardPadding  = 32
	cardRadius   = 28
	lineHeight   = 18
	itemSpacing  = 12
	dotRadius    = 4
	textIndent   = 20

	// ItemLines is how many wrapped lines an entry may take before it is cut.
	ItemLines = 2
)

var face = basicfont.Face7x13

// RenderPNG draws the recap card and encodes it as PNG.
func RenderPNG(w io.Writer, r Recap) error {
	img := renderImage(r)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode recap png: %w", err)
	}
	return nil
}

func renderImage(r Recap) *image.RGBA {
	cardWidth := imageWidth - 2*outerPadding
	textWidth := cardWidth - 2*cardPadding - textIndent
	maxChars := textWidth / face.Advance

	var lines [][]string
	for _, item := range r.Items {
		lines = append(lines, wrap(item.Text, maxChars, ItemLines))
	}

	// header, body, footer
	height := cardPadding + 2*lineHeight + 24
	if r.Empty() {
		height += 3 * lineHeight
	} else {
		for _, l := range lines {
			height += len(l)*lineHeight + itemSpacing
		}
		if r.Remaining > 0 {
			height += lineHeight
		}
	}
	height += 24 + lineHeight + cardPadding
	imageHeight := height + 2*outerPadding

	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
	fillGradient(img, Lavender, Cream)

	card := image.Rect(outerPadding, outerPadding, outerPadding+cardWidth, outerPadding+height)
	draw.DrawMask(img, card, image.NewUniform(CardBackground), image.Point{}, &roundedRect{r: card, radius: cardRadius}, card.Min, draw.Over)

	left := card.Min.X + cardPadding
	y := card.Min.Y + cardPadding + face.Ascent

	drawCentered(img, r.Title, card, y, TextPrimary)
	y += lineHeight
	drawCentered(img, r.RangeLabel, card, y, TextSecondary)
	y += lineHeight + 24

	if r.Empty() {
		fillCircle(img, image.Pt((card.Min.X+card.Max.X)/2, y-face.Ascent/2), 2*dotRadius, Sage)
		y += lineHeight + lineHeight/2
		drawCentered(img, EmptyMessage, card, y, TextSecondary)
		y += lineHeight + lineHeight/2
	} else {
		for _, l := range lines {
			fillCircle(img, image.Pt(left+dotRadius, y-face.Ascent/2+1), dotRadius, Sage)
			for _, text := range l {
				drawText(img, text, left+textIndent, y, TextPrimary)
				y += lineHeight
			}
			y += itemSpacing
		}
		if r.Remaining > 0 {
			drawText(img, fmt.Sprintf("+ %d more", r.Remaining), left+textIndent, y, TextSecondary)
			y += lineHeight
		}
	}

	y += 24
	drawCentered(img, "<3 "+Footer, card, y, Accent)
	return img
}

// wrap splits text into at most maxLines lines of maxChars runes, breaking on
// spaces where possible. Text that does not fit ends with "...".
func wrap(text string, maxChars, maxLines int) []string {
	if maxChars < 4 {
		maxChars = 4
	}
	words := strings.Fields(text)
	var lines []string
	var cur string
	for i := 0; i < len(words); i++ {
		word := words[i]
		for utf8.RuneCountInString(word) > maxChars {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			runes := []rune(word)
			lines = append(lines, string(runes[:maxChars]))
			word = string(runes[maxChars:])
		}
		switch {
		case cur == "":
			cur = word
		case utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) <= maxChars:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := []rune(lines[maxLines-1])
		if len(last) > maxChars-3 {
			last = last[:maxChars-3]
		}
		lines[maxLines-1] = strings.TrimRight(string(last), " ") + "..."
	}
	return lines
}

func drawText(img draw.Image, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func drawCentered(img draw.Image, s string, bounds image.Rectangle, y int, c color.Color) {
	width := font.MeasureString(face, s).Ceil()
	x := bounds.Min.X + (bounds.Dx()-width)/2
	drawText(img, s, x, y, c)
}

func fillGradient(img *image.RGBA, from, to color.RGBA) {
	b := img.Bounds()
	span := b.Dx() + b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			t := float64(x+y) / float64(span)
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 0xFF,
			})
		}
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

func fillCircle(img draw.Image, center image.Point, radius int, c color.Color) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				img.Set(center.X+dx, center.Y+dy, c)
			}
		}
	}
}

// roundedRect is an alpha mask for a rectangle with rounded corners.
type roundedRect struct {
	r      image.Rectangle
	radius int
}

func (m *roundedRect) ColorModel() color.Model { return color.AlphaModel }

func (m *roundedRect) Bounds() image.Rectangle { return m.r }

func (m *roundedRect) At(x, y int) color.Color {
	if !image.Pt(x, y).In(m.r) {
		return color.Alpha{}
	}
	cx, cy := x, y
	switch {
	case x < m.r.Min.X+m.radius:
		cx = m.r.Min.X + m.radius
	case x >= m.r.Max.X-m.radius:
		cx = m.r.Max.X - m.radius - 1
	}
	switch {
	case y < m.r.Min.Y+m.radius:
		cy = m.r.Min.Y + m.radius
	case y >= m.r.Max.Y-m.radius:
		cy = m.r.Max.Y - m.radius - 1
	}
	dx, dy := x-cx, y-cy
	if dx*dx+dy*dy > m.radius*m.radius {
		return color.Alpha{}
	}
	return color.Alpha{A: 0xFF}
}
