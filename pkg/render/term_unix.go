//go:build !windows

package render

import (
	"os"

	"golang.org/x/sys/unix"
)

// TerminalSize returns the terminal's column and row counts, falling back
// to 80x24 when stdout is not a tty.
func TerminalSize() (cols, rows int) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 || ws.Row == 0 {
		return 80, 24
	}
	return int(ws.Col), int(ws.Row)
}
