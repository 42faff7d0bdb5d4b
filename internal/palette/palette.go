// Package palette holds the tag colour presets and the Tailwind classes used
// to render a tag badge.
package palette

import (
	"regexp"
	"strconv"
	"strings"

	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Color struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Bg     string `json:"bg"`
	Text   string `json:"text"`
	Border string `json:"border"`
	Hex    string `json:"hex"`
}

// Colors is ordered; the first entry is the default tag colour.
var Colors = []Color{
	{"blue", "Azul", "bg-blue-50", "text-blue-700", "border-blue-200", "#3B82F6"},
	{"blue-dark", "Azul Escuro", "bg-blue-50", "text-blue-800", "border-blue-300", "#1D4ED8"},
	{"blue-light", "Azul Claro", "bg-sky-50", "text-sky-600", "border-sky-200", "#60A5FA"},
	{"green", "Verde", "bg-green-50", "text-green-700", "border-green-200", "#10B981"},
	{"emerald", "Esmeralda", "bg-emerald-50", "text-emerald-700", "border-emerald-200", "#059669"},
	{"teal", "Verde Azulado", "bg-teal-50", "text-teal-700", "border-teal-200", "#14B8A6"},
	{"lime", "Lima", "bg-lime-50", "text-lime-700", "border-lime-200", "#65A30D"},
	{"red", "Vermelho", "bg-red-50", "text-red-700", "border-red-200", "#EF4444"},
	{"red-dark", "Vermelho Escuro", "bg-red-50", "text-red-800", "border-red-300", "#B91C1C"},
	{"pink", "Rosa", "bg-pink-50", "text-pink-700", "border-pink-200", "#EC4899"},
	{"rose", "Rosa Claro", "bg-rose-50", "text-rose-700", "border-rose-200", "#F43F5E"},
	{"purple", "Roxo", "bg-purple-50", "text-purple-700", "border-purple-200", "#8B5CF6"},
	{"purple-dark", "Roxo Escuro", "bg-purple-50", "text-purple-800", "border-purple-300", "#7C3AED"},
	{"indigo", "Índigo", "bg-indigo-50", "text-indigo-700", "border-indigo-200", "#6366F1"},
	{"violet", "Violeta", "bg-violet-50", "text-violet-700", "border-violet-200", "#8B5CF6"},
	{"orange", "Laranja", "bg-orange-50", "text-orange-700", "border-orange-200", "#F97316"},
	{"amber", "Âmbar", "bg-amber-50", "text-amber-700", "border-amber-200", "#F59E0B"},
	{"yellow", "Amarelo", "bg-yellow-50", "text-yellow-700", "border-yellow-200", "#EAB308"},
	{"cyan", "Ciano", "bg-cyan-50", "text-cyan-700", "border-cyan-200", "#06B6D4"},
	{"sky", "Azul Céu", "bg-sky-50", "text-sky-700", "border-sky-200", "#0EA5E9"},
	{"slate", "Ardósia", "bg-slate-50", "text-slate-700", "border-slate-200", "#475569"},
	{"gray", "Cinzento", "bg-gray-50", "text-gray-700", "border-gray-200", "#4B5563"},
	{"zinc", "Zinco", "bg-zinc-50", "text-zinc-700", "border-zinc-200", "#52525B"},
	{"stone", "Pedra", "bg-stone-50", "text-stone-700", "border-stone-200", "#57534E"},
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func Default() Color {
	return Colors[0]
}

// Lookup finds a preset by hex code (case-insensitive) or by name.
func Lookup(color string) (Color, bool) {
	for _, c := range Colors {
		if strings.EqualFold(c.Hex, color) {
			return c, true
		}
	}
	for _, c := range Colors {
		if c.Name == color {
			return c, true
		}
	}
	return Color{}, false
}

// Valid reports whether color is a hex code or a preset name.
func Valid(color string) bool {
	if hexColor.MatchString(color) {
		return true
	}
	_, ok := Lookup(color)
	return ok
}

// Badge is the layout shared by every tag badge.
const Badge = "inline-flex items-center rounded-full px-2.5 py-0.5 text-xs font-medium"

// Classes returns the badge classes for a stored tag colour. Preset colours
// use their Tailwind palette classes. Any other hex code is drawn with
// arbitrary-value classes over the default preset, and colour names that are
// not presets fall back to the default. Extra classes are merged last and win
// over conflicting utilities.
func Classes(color string, extra ...string) string {
	c, ok := Lookup(color)
	if !ok {
		c = Default()
	}
	classes := []string{c.Bg, c.Text, c.Border, "border"}
	if !ok && hexColor.MatchString(color) {
		classes = append(classes, custom(color)...)
	}
	return twmerge.Merge(append(classes, extra...)...)
}

// custom draws a badge in an arbitrary hex colour, with text dark or light
// enough to read on it.
func custom(hex string) []string {
	text := "text-white"
	if luma(hex) > 150 {
		text = "text-gray-900"
	}
	return []string{"bg-[" + hex + "]", text, "border-[" + hex + "]"}
}

// luma is the perceived brightness of a valid hex code, 0 to 255.
func luma(hex string) float64 {
	digits := hex[1:]
	if len(digits) == 3 {
		digits = string([]byte{digits[0], digits[0], digits[1], digits[1], digits[2], digits[2]})
	}
	v, _ := strconv.ParseUint(digits, 16, 32)
	r, g, b := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	return 0.299*r + 0.587*g + 0.114*b
}
