package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines keybindings for the run view
type KeyMap struct {
	mode string
}

// NewKeyMap creates a new keymap for the given mode ("vim" or "standard")
func NewKeyMap(mode string) *KeyMap {
	if mode == "" {
		mode = "vim"
	}
	return &KeyMap{mode: mode}
}

// Mode returns the current keybinding mode
func (k *KeyMap) Mode() string {
	return k.mode
}

// IsScrollUp returns true if the key scrolls the log up
func (k *KeyMap) IsScrollUp(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyUp || msg.Type == tea.KeyPgUp {
		return true
	}
	return k.mode == "vim" && msg.String() == "k"
}

// IsScrollDown returns true if the key scrolls the log down
func (k *KeyMap) IsScrollDown(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyDown || msg.Type == tea.KeyPgDown {
		return true
	}
	return k.mode == "vim" && msg.String() == "j"
}

// IsCancel returns true if the key requests cancellation of a running run
func (k *KeyMap) IsCancel(msg tea.KeyMsg) bool {
	return msg.String() == "c" || msg.Type == tea.KeyEsc || msg.Type == tea.KeyCtrlC
}

// IsRetry returns true if the key retries failed selections
func (k *KeyMap) IsRetry(msg tea.KeyMsg) bool {
	return msg.String() == "r"
}

// IsReselect returns true if the key returns to selection editing
func (k *KeyMap) IsReselect(msg tea.KeyMsg) bool {
	return msg.String() == "s"
}

// IsAccept returns true if the key accepts a finished run
func (k *KeyMap) IsAccept(msg tea.KeyMsg) bool {
	return msg.Type == tea.KeyEnter || msg.String() == "q" || msg.Type == tea.KeyCtrlC
}

// Help returns the key hints for the given phase
func (k *KeyMap) Help(finished, retryable bool) string {
	if !finished {
		return "c: cancel"
	}
	help := "enter: accept  s: reselect"
	if retryable {
		help += "  r: retry"
	}
	if k.mode == "vim" {
		return help + "  j/k: scroll"
	}
	return help + "  ↑/↓: scroll"
}
