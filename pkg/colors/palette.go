// Package colors maps Signal's stored color names to display colors and
// assigns distinguishable colors to the senders of a conversation.
package colors

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	crimson     = "#CC163D"
	vermillion  = "#C73800"
	burlap      = "#746C53"
	forest      = "#3B7845"
	wintergreen = "#1C8260"
	teal        = "#067589"
	blue        = "#336BA3"
	indigo      = "#5951C8"
	violet      = "#862CAF"
	plumb       = "#A23474"
	taupe       = "#895D66"
	steel       = "#6B6B78"
	ultramarine = "#2C6BED"
)

// Named is a legacy material color name and its display value.
type Named struct {
	Name string
	Hex  string
}

// Palette is the fixed order used when picking substitute colors.
var Palette = []Named{
	{"red", crimson},
	{"deep_orange", crimson},
	{"orange", vermillion},
	{"amber", vermillion},
	{"brown", burlap},
	{"yellow", burlap},
	{"pink", plumb},
	{"purple", violet},
	{"deep_purple", violet},
	{"indigo", indigo},
	{"blue", blue},
	{"light_blue", blue},
	{"cyan", teal},
	{"teal", teal},
	{"green", forest},
	{"light_green", wintergreen},
	{"lime", wintergreen},
	{"blue_grey", taupe},
	{"grey", steel},
	{"ultramarine", ultramarine},
	{"group_color", ultramarine},
}

// DefaultColor is used for one-to-one conversations without inbound
// messages.
const DefaultColor = "teal"

// Unknown is the fallback for names found in neither table.
const Unknown = "#71717F"

// avatarColors are the AvatarColor values newer schemas store, without the
// alpha channel.
var avatarColors = map[string]string{
	"C000": "#D00B0B", "C010": "#C72A0A", "C020": "#B34209", "C030": "#9C5711",
	"C040": "#866118", "C050": "#76681E", "C060": "#6C6C13", "C070": "#5E6E0C",
	"C080": "#507406", "C090": "#3D7406", "C100": "#2D7906", "C110": "#1A7906",
	"C120": "#067906", "C130": "#067919", "C140": "#06792D", "C150": "#067940",
	"C160": "#067953", "C170": "#067462", "C180": "#067474", "C190": "#077288",
	"C200": "#086DA0", "C210": "#0A69C7", "C220": "#0D59F2", "C230": "#3454F4",
	"C240": "#5151F6", "C250": "#6447F5", "C260": "#7A3DF5", "C270": "#8F2AF4",
	"C280": "#A20CED", "C290": "#AF0BD0", "C300": "#B80AB8", "C310": "#C20AA3",
	"C320": "#C70A88", "C330": "#CB0B6B", "C340": "#D00B4D", "C350": "#D00B2C",

	"crimson":     "#CF163E",
	"vermilion":   "#C73F0A",
	"burlap":      "#6F6A58",
	"forest":      "#3B7845",
	"wintergreen": "#1D8663",
	"teal":        "#077D92",
	"blue":        "#336BA3",
	"indigo":      "#6058CA",
	"violet":      "#9932CB",
	"plum":        "#AA377A",
	"taupe":       "#8F616A",
	"steel":       "#71717F",
	"unknown":     Unknown,
}

var paletteIndex = func() map[string]string {
	m := make(map[string]string, len(Palette))
	for _, c := range Palette {
		m[c.Name] = c.Hex
	}
	return m
}()

// Lookup returns the display value of a stored color name. Palette names
// win over avatar color names.
func Lookup(name string) (string, bool) {
	if hex, ok := paletteIndex[name]; ok {
		return hex, true
	}
	hex, ok := avatarColors[name]
	return hex, ok
}

// Hex is like Lookup but falls back to the unknown tone with a warning.
func Hex(name string, log zerolog.Logger) string {
	if hex, ok := Lookup(name); ok {
		return hex
	}
	log.Warn().Str("color", name).Msg("Unknown color, using fallback color instead")
	return Unknown
}

// Source picks colors for recipients that have none stored.
type Source interface {
	Pick() string
}

// RandomSource picks uniformly from the palette. It is safe for concurrent
// use.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a source seeded with seed, or with the current
// time when seed is 0.
func NewRandomSource(seed uint64) *RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomSource{rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

func (s *RandomSource) Pick() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Palette[s.rng.IntN(len(Palette))].Name
}

// FixedSource always returns the same color.
type FixedSource string

func (f FixedSource) Pick() string {
	return string(f)
}
