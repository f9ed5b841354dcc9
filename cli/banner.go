// Package cli holds the terminal helpers of the fsmviz command: boxed banners
// and promptui-backed prompts.
package cli

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/caarlos0/env/v11"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"
)

const (
	AlignLeft = iota
	AlignCenter
	AlignRight

	borderWidth = 2
)

// DefaultTerminalWidth is used when COLUMNS is unset.
const DefaultTerminalWidth = 80

// Terminal describes the output terminal, read from the environment.
type Terminal struct {
	NoBanner bool `env:"FSM_NO_BANNER" envDefault:"false"`
	Columns  int  `env:"COLUMNS"       envDefault:"80"`
}

// LoadTerminal reads FSM_NO_BANNER and COLUMNS. Unparseable values fall back
// to the defaults.
func LoadTerminal() Terminal {
	var term Terminal

	err := env.Parse(&term)
	if err != nil || term.Columns <= borderWidth {
		return Terminal{NoBanner: term.NoBanner, Columns: DefaultTerminalWidth}
	}

	return term
}

// Divider renders a full-width horizontal rule.
func (t Terminal) Divider() string {
	return Divider(t.Columns)
}

// Banner renders s in a box as wide as the terminal, or returns it unboxed
// when banners are suppressed.
func (t Terminal) Banner(s string, alignment int) string {
	if t.NoBanner {
		return s + "\n"
	}

	return Banner(s, t.Columns, alignment)
}

func Divider(width int) string {
	return fmt.Sprintf("%s%s%s\n", dividerLeft, strings.Repeat(dividerMiddle, max(width-borderWidth, 0)), dividerRight)
}

// Banner boxes each line of s, padded or truncated to fit width. It returns
// an empty string for an unknown alignment or a width too small for the box.
func Banner(s string, width int, alignment int) string {
	if width <= borderWidth || alignment < AlignLeft || alignment > AlignRight {
		return ""
	}

	inner := width - borderWidth
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		parts = append(parts, boxSide+pad(line, inner, alignment)+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

func pad(text string, width, alignment int) string {
	length := countGraphic(text)
	if length > width {
		text, length = truncateGraphic(text, width-1)
		text += ellipsis
		length++
	}

	diff := width - length

	switch alignment {
	case AlignCenter:
		left := diff / 2

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left)
	case AlignRight:
		return strings.Repeat(" ", diff) + text
	default:
		return text + strings.Repeat(" ", diff)
	}
}

func countGraphic(s string) int {
	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}
	}

	return count
}

// truncateGraphic keeps the first n graphic runes of s.
func truncateGraphic(s string, n int) (string, int) {
	var out strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			if count == n {
				break
			}

			count++
		}

		out.WriteRune(r)
	}

	return out.String(), count
}
