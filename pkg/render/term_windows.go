//go:build windows

package render

import (
	"os"

	"golang.org/x/sys/windows"
)

// TerminalSize returns the console's column and row counts, falling back
// to 80x24 when stdout is not a console.
func TerminalSize() (cols, rows int) {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(os.Stdout.Fd()), &info); err != nil {
		return 80, 24
	}
	cols = int(info.Window.Right - info.Window.Left + 1)
	rows = int(info.Window.Bottom - info.Window.Top + 1)
	if cols <= 0 || rows <= 0 {
		return 80, 24
	}
	return cols, rows
}
