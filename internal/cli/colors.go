// Package cli holds terminal styling for startup output and console logs.
package cli

import (
	"fmt"
	"os"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
)

// RGB is a 24-bit TrueColor value.
type RGB struct {
	R, G, B float64
}

var (
	BrandBlue   = RGB{0, 120, 255}
	BrandPurple = RGB{189, 52, 235}
)

// NO_COLOR is read once; see https://no-color.org.
var disableColor = func() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}()

// Enabled reports whether ANSI styling is on.
func Enabled() bool { return !disableColor }

// Style wraps text in a specific color code
func Style(text string, colorCode string) string {
	if disableColor {
		return text
	}
	return colorCode + text + Reset
}

// ColorizeRGB returns text wrapped in ANSI TrueColor escape codes
func ColorizeRGB(text string, c RGB) string {
	if disableColor {
		return text
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", int(c.R), int(c.G), int(c.B), text)
}

// Gradient colors text by linear interpolation between start and end at progress in [0, 1].
func Gradient(text string, start, end RGB, progress float64) string {
	r := start.R + (end.R-start.R)*progress
	g := start.G + (end.G-start.G)*progress
	b := start.B + (end.B-start.B)*progress
	return ColorizeRGB(text, RGB{r, g, b})
}

// Status marks used in startup output.
func CheckMark() string { return Style("✔", Green) }
func Arrow() string     { return Style("➜", Blue) }
func CrossMark() string { return Style("✘", Red) }
