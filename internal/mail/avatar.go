package mail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

const fallbackAvatarColor = "#222"

var hslRe = regexp.MustCompile(`^hsl\((\d+),\s*(\d+)%?,\s*(\d+)%?\)$`)

// Avatar is the colored initial shown next to a sender.
type Avatar struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
	Initial    string `json:"initial"`
}

// NewAvatar derives the avatar for a display name.
func NewAvatar(name string) Avatar {
	bg := GenerateAvatarColor(name)
	return Avatar{
		Background: bg,
		Foreground: DarkenHSLColor(bg, 50),
		Initial:    initial(name),
	}
}

// GenerateAvatarColor maps a name to a stable pastel hsl() color. The hash
// matches the browser client's 32-bit string hash over UTF-16 code units,
// so both sides agree on colors.
func GenerateAvatarColor(name string) string {
	var hash int64
	for _, c := range utf16.Encode([]rune(name)) {
		shifted := int64(int32(hash) << 5)
		hash = int64(c) + (shifted - hash)
	}
	if hash < 0 {
		hash = -hash
	}
	h := hash % 360
	s := 70 + hash%15
	l := 60 + hash%15
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", h, s, l)
}

// DarkenHSLColor lowers the lightness of an hsl() color by amount,
// flooring at zero.
func DarkenHSLColor(hsl string, amount int) string {
	m := hslRe.FindStringSubmatch(hsl)
	if m == nil {
		return fallbackAvatarColor
	}
	h, _ := strconv.Atoi(m[1])
	s, _ := strconv.Atoi(m[2])
	l, _ := strconv.Atoi(m[3])
	l -= amount
	if l < 0 {
		l = 0
	}
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", h, s, l)
}

// Initials returns the upper-cased first letter of every word in name.
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		b.WriteString(initial(part))
	}
	return b.String()
}

func initial(name string) string {
	for _, r := range name {
		return string(unicode.ToUpper(r))
	}
	return ""
}
