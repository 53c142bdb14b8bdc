// Package output renders search results for the terminal. Colors follow the
// user's terminal theme when one can be read from its config file.
package output

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
)

// Palette holds the color scheme for terminal output
type Palette struct {
	FG     string // primary text
	Muted  string // secondary info, borders
	Accent string // headers, highlights
	Warn   string
	Error  string
}

// DefaultPalette returns the fallback amber theme
func DefaultPalette() Palette {
	return Palette{
		FG:     "#d4a017",
		Muted:  "#6b6b4f",
		Accent: "#8bc34a",
		Warn:   "#ffb347",
		Error:  "#ff6b6b",
	}
}

// themeSource reads foreground, selection and accent colors from one
// terminal config file.
type themeSource struct {
	path  func(home string) []string
	parse func(path string) (Palette, bool)
}

var themeSources = []themeSource{
	{
		path: func(home string) []string {
			return []string{
				filepath.Join(home, ".config", "omarchy", "current", "theme", "alacritty.toml"),
				filepath.Join(home, ".config", "alacritty", "alacritty.toml"),
				filepath.Join(home, ".alacritty.toml"),
			}
		},
		parse: parseAlacritty,
	},
	{
		path: func(home string) []string {
			return []string{filepath.Join(home, ".config", "kitty", "kitty.conf")}
		},
		parse: parseKitty,
	},
	{
		path: func(home string) []string {
			return []string{filepath.Join(home, ".config", "foot", "foot.ini")}
		},
		parse: parseFoot,
	},
}

// DetectPalette looks for a terminal theme under home, then applies
// TORRENT_SEARCH_* environment overrides.
func DetectPalette(home string, getenv func(string) string) Palette {
	p := DefaultPalette()
	if home != "" {
	sources:
		for _, src := range themeSources {
			for _, path := range src.path(home) {
				if found, ok := src.parse(path); ok {
					p = found
					break sources
				}
			}
		}
	}
	return applyEnvOverrides(p, getenv)
}

type alacrittyColors struct {
	Colors struct {
		Primary struct {
			Foreground string `toml:"foreground"`
		} `toml:"primary"`
		Normal struct {
			Green  string `toml:"green"`
			Yellow string `toml:"yellow"`
			Red    string `toml:"red"`
		} `toml:"normal"`
	} `toml:"colors"`
}

func parseAlacritty(path string) (Palette, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Palette{}, false
	}

	var cfg alacrittyColors
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Palette{}, false
	}
	if cfg.Colors.Primary.Foreground == "" {
		return Palette{}, false
	}

	c := cfg.Colors
	return fromColors(c.Primary.Foreground, c.Normal.Green, c.Normal.Yellow, c.Normal.Red), true
}

func parseKitty(path string) (Palette, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Palette{}, false
	}

	keys := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if parts := strings.Fields(line); len(parts) >= 2 {
			keys[parts[0]] = parts[1]
		}
	}
	if keys["foreground"] == "" {
		return Palette{}, false
	}

	// kitty's color2/3/1 are the normal green/yellow/red slots.
	return fromColors(keys["foreground"], keys["color2"], keys["color3"], keys["color1"]), true
}

func parseFoot(path string) (Palette, bool) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Palette{}, false
	}

	colors := cfg.Section("colors")
	fg := colors.Key("foreground").String()
	if fg == "" {
		return Palette{}, false
	}

	// foot's regular2/3/1 are green/yellow/red.
	return fromColors(fg,
		colors.Key("regular2").String(),
		colors.Key("regular3").String(),
		colors.Key("regular1").String()), true
}

func fromColors(fg, green, yellow, red string) Palette {
	p := DefaultPalette()
	p.FG = normalizeHex(fg)
	p.Muted = dimColor(p.FG, 0.55)
	if green != "" {
		p.Accent = normalizeHex(green)
	}
	if yellow != "" {
		p.Warn = normalizeHex(yellow)
	}
	if red != "" {
		p.Error = normalizeHex(red)
	}
	return p
}

func applyEnvOverrides(p Palette, getenv func(string) string) Palette {
	if getenv == nil {
		return p
	}
	overrides := map[string]*string{
		"TORRENT_SEARCH_FG":     &p.FG,
		"TORRENT_SEARCH_MUTED":  &p.Muted,
		"TORRENT_SEARCH_ACCENT": &p.Accent,
	}
	for env, field := range overrides {
		if v := getenv(env); v != "" {
			*field = normalizeHex(v)
		}
	}
	return p
}

var (
	hex6 = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	hex3 = regexp.MustCompile(`^#[0-9a-fA-F]{3}$`)
)

// normalizeHex accepts "#rrggbb", "rrggbb", "0xrrggbb" and "#rgb".
func normalizeHex(color string) string {
	color = strings.Trim(strings.TrimSpace(color), `'"`)
	if strings.HasPrefix(color, "0x") || strings.HasPrefix(color, "0X") {
		color = color[2:]
	}
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}

	switch {
	case hex6.MatchString(color):
		return strings.ToLower(color)
	case hex3.MatchString(color):
		r, g, b := color[1:2], color[2:3], color[3:4]
		return strings.ToLower("#" + r + r + g + g + b + b)
	default:
		return color
	}
}

// dimColor scales each channel of a #rrggbb color by factor.
func dimColor(hex string, factor float64) string {
	hex = normalizeHex(hex)
	if !hex6.MatchString(hex) {
		return hex
	}

	var out strings.Builder
	out.WriteByte('#')
	for i := 1; i < 7; i += 2 {
		v, _ := strconv.ParseUint(hex[i:i+2], 16, 8)
		scaled := uint64(float64(v) * factor)
		if scaled < 16 {
			out.WriteByte('0')
		}
		out.WriteString(strconv.FormatUint(scaled, 16))
	}
	return out.String()
}
