package export

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Design is the presentation subset of a template.
type Design struct {
	PrimaryColor string `json:"primaryColor"`
	FontFamily   string `json:"fontFamily"`
	Layout       string `json:"layout"`
}

var (
	hexColor   = regexp.MustCompile(`^#[0-9a-fA-F]{3}([0-9a-fA-F]{3})?$`)
	fontFamily = regexp.MustCompile(`^[A-Za-z0-9 ,'"-]+$`)
)

// DefaultDesign is used when a resume has no template.
func DefaultDesign() Design {
	return Design{PrimaryColor: "#2563eb", FontFamily: "Helvetica, Arial, sans-serif", Layout: "single-column"}
}

// ParseDesign decodes a template design, falling back to defaults for missing or unsafe values.
func ParseDesign(raw json.RawMessage) Design {
	d := DefaultDesign()
	if len(raw) == 0 {
		return d
	}
	var in Design
	if err := json.Unmarshal(raw, &in); err != nil {
		return d
	}
	if hexColor.MatchString(strings.TrimSpace(in.PrimaryColor)) {
		d.PrimaryColor = strings.TrimSpace(in.PrimaryColor)
	}
	if f := strings.TrimSpace(in.FontFamily); f != "" && fontFamily.MatchString(f) {
		d.FontFamily = f
	}
	if l := strings.TrimSpace(in.Layout); l != "" {
		d.Layout = l
	}
	return d
}

// rgb converts the primary color to 0-255 components.
func (d Design) rgb() (int, int, int) {
	c := strings.TrimPrefix(d.PrimaryColor, "#")
	if len(c) == 3 {
		c = string([]byte{c[0], c[0], c[1], c[1], c[2], c[2]})
	}
	if len(c) != 6 {
		return 37, 99, 235
	}
	return hexByte(c[0:2]), hexByte(c[2:4]), hexByte(c[4:6])
}

func hexByte(s string) int {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return int(v)
}
