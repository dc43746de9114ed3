package report

import (
	"strings"
	"unicode/utf8"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
)

const maxRawAppNameLen = 40

type appAlias struct {
	match string
	name  string
}

// appAliases maps lowercase title fragments to canonical application names.
// The longest matching fragment wins.
var appAliases = []appAlias{
	{"chrome", "Google Chrome"},
	{"chromium", "Chromium"},
	{"firefox", "Mozilla Firefox"},
	{"edge", "Microsoft Edge"},
	{"opera", "Opera Browser"},
	{"word", "MS Word"},
	{"excel", "MS Excel"},
	{"powerpoint", "MS PowerPoint"},
	{"libreoffice", "LibreOffice"},
	{"idea", "IntelliJ IDEA"},
	{"intellij", "IntelliJ IDEA"},
	{"studio", "Android Studio"},
	{"visual studio", "Visual Studio"},
	{"visual studio code", "Visual Studio Code"},
	{"vscode", "Visual Studio Code"},
	{"telegram", "Telegram"},
	{"viber", "Viber"},
	{"slack", "Slack"},
	{"discord", "Discord"},
	{"thunderbird", "Mozilla Thunderbird"},
	{"terminal", "Terminal"},
	{"konsole", "Terminal"},
	{"nautilus", "Files"},
	{"explorer", "File Explorer"},
}

// normalizeAppName maps a window title to a canonical application name. It
// returns "" for titles that carry no application information.
func normalizeAppName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" || title == collector.UnknownWindow {
		return ""
	}

	lower := strings.ToLower(title)
	best := ""
	bestLen := 0
	for _, a := range appAliases {
		if len(a.match) > bestLen && strings.Contains(lower, a.match) {
			best, bestLen = a.name, len(a.match)
		}
	}
	if best != "" {
		return best
	}

	if utf8.RuneCountInString(title) > maxRawAppNameLen {
		return string([]rune(title)[:maxRawAppNameLen]) + "..."
	}
	return title
}
