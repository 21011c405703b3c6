package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAvatarColor(t *testing.T) {
	assert.Equal(t, "hsl(0, 70%, 60%)", GenerateAvatarColor(""))
	assert.Equal(t, "hsl(65, 75%, 65%)", GenerateAvatarColor("A"))
	assert.Equal(t, "hsl(281, 81%, 71%)", GenerateAvatarColor("AB"))
}

func TestGenerateAvatarColorIsPureAndInRange(t *testing.T) {
	names := []string{"Jane Doe", "jane@example.com", "Zoë", "名前", "a very long display name that overflows the hash many times over"}
	for _, name := range names {
		color := GenerateAvatarColor(name)
		assert.Equal(t, color, GenerateAvatarColor(name))

		m := hslRe.FindStringSubmatch(color)
		if assert.NotNil(t, m, color) {
			assert.Equal(t, color, DarkenHSLColor(color, 0))
		}
	}
}

func TestDarkenHSLColor(t *testing.T) {
	assert.Equal(t, "hsl(65, 75%, 15%)", DarkenHSLColor("hsl(65, 75%, 65%)", 50))
	assert.Equal(t, "hsl(10, 20%, 0%)", DarkenHSLColor("hsl(10, 20%, 30%)", 50))
	assert.Equal(t, "hsl(10, 20%, 5%)", DarkenHSLColor("hsl(10,20,30)", 25))
	assert.Equal(t, "#222", DarkenHSLColor("blue", 10))
	assert.Equal(t, "#222", DarkenHSLColor("", 10))
}

func TestNewAvatar(t *testing.T) {
	a := NewAvatar("jane")
	assert.Equal(t, "J", a.Initial)
	assert.Equal(t, GenerateAvatarColor("jane"), a.Background)
	assert.Equal(t, DarkenHSLColor(a.Background, 50), a.Foreground)

	assert.Equal(t, "", NewAvatar("").Initial)
	assert.Equal(t, "JD", Initials("jane doe"))
}
