package domain

import "strings"

// BackgroundTheme is a selectable page background.
type BackgroundTheme struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// BackgroundThemes lists the available themes. The first one is the
// default.
var BackgroundThemes = []BackgroundTheme{
	{Name: "Dark Slate", Class: "bg-gradient-to-b from-slate-950 to-slate-900"},
	{Name: "Dark Blue", Class: "bg-gradient-to-b from-blue-950 to-blue-900"},
	{Name: "Dark Purple", Class: "bg-gradient-to-b from-purple-950 to-purple-900"},
	{Name: "Dark Green", Class: "bg-gradient-to-b from-emerald-950 to-emerald-900"},
	{Name: "Dark Red", Class: "bg-gradient-to-b from-red-950 to-red-900"},
	{Name: "Midnight", Class: "bg-gradient-to-b from-gray-900 to-black"},
	{Name: "Ocean", Class: "bg-gradient-to-br from-blue-900 via-blue-800 to-teal-900"},
	{Name: "Sunset", Class: "bg-gradient-to-br from-orange-900 via-red-900 to-pink-900"},
	{Name: "Forest", Class: "bg-gradient-to-br from-green-900 via-emerald-800 to-teal-900"},
	{Name: "Royal", Class: "bg-gradient-to-br from-purple-900 via-indigo-900 to-blue-900"},
}

// DefaultTheme returns the theme used when none was chosen.
func DefaultTheme() BackgroundTheme { return BackgroundThemes[0] }

// ThemeByName finds a theme by name (case-insensitive) or by class.
func ThemeByName(name string) (BackgroundTheme, bool) {
	for _, t := range BackgroundThemes {
		if strings.EqualFold(t.Name, name) || t.Class == name {
			return t, true
		}
	}
	return BackgroundTheme{}, false
}
