package ui

import "github.com/gdamore/tcell/v2"

// Command is an action the viewer performs in response to a key
type Command int

const (
	CommandNone Command = iota
	CommandRelaunch
	CommandQuit
	CommandNext
	CommandPrevious
	CommandUnselect
	CommandYank
)

// KeyCommand maps a key event to a viewer command
func KeyCommand(event *tcell.EventKey) Command {
	switch event.Key() {
	case tcell.KeyCtrlC:
		return CommandQuit
	case tcell.KeyDown:
		return CommandNext
	case tcell.KeyUp:
		return CommandPrevious
	case tcell.KeyEsc:
		return CommandUnselect
	case tcell.KeyRune:
		switch event.Rune() {
		case 'r':
			return CommandRelaunch
		case 'q':
			return CommandQuit
		case 'j', 'n':
			return CommandNext
		case 'k', 'p':
			return CommandPrevious
		case 'y':
			return CommandYank
		}
	}
	return CommandNone
}

// KeyHelp is shown in the header
const KeyHelp = "[yellow]r[white] relaunch  [yellow]j/n/↓[white] next  [yellow]k/p/↑[white] previous  " +
	"[yellow]esc[white] unselect  [yellow]y[white] copy location  [yellow]q[white] quit"
