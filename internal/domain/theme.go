package domain

const ThemeCookieName = "theme"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeFromCookie treats anything but "dark" as the light theme.
func ThemeFromCookie(value string) Theme {
	if value == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

func (t Theme) IsDark() bool {
	return t == ThemeDark
}
