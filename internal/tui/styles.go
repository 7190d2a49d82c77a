package tui

import (
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Color palette.
const (
	colorAccent  = lipgloss.Color("63")
	colorSubtle  = lipgloss.Color("241")
	colorError   = lipgloss.Color("196")
	colorSaved   = lipgloss.Color("220")
	colorMatch   = lipgloss.Color("42")
	colorCurrent = lipgloss.Color("229")
)

// Shared styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtle)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(colorSubtle).
			Padding(1, 2)

	SavedStyle = lipgloss.NewStyle().
			Foreground(colorSaved)

	MatchStyle = lipgloss.NewStyle().
			Foreground(colorMatch)

	PagerStyle = lipgloss.NewStyle().
			Foreground(colorCurrent).
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(colorSubtle)
)

// Layout.
const (
	defaultWidth  = 100
	defaultHeight = 30

	colWidthTitle  = 40
	colWidthAgency = 24
	colWidthCity   = 14
	colWidthAmount = 22

	searchInputWidth     = 40
	searchInputCharLimit = 120
)

// Keys.
const (
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
	keyEnter  = "enter"
	keyEsc    = "esc"
	keySlash  = "/"
	keyLeft   = "left"
	keyRight  = "right"
	keyH      = "h"
	keyL      = "l"
	keySize   = "s"
	keyClear  = "c"
	keyMatch  = "m"
	keyRetry  = "r"
	slotCount = 5
)

var printer = message.NewPrinter(language.English)
