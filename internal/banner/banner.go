package banner

import (
	"fmt"

	"ldapbench/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "0.1.0"

const ascii = `
    __    ____  ___    ____  ____                  __
   / /   / __ \/   |  / __ \/ __ )___  ____  _____/ /_
  / /   / / / / /| | / /_/ / __  / _ \/ __ \/ ___/ __ \
 / /___/ /_/ / ___ |/ ____/ /_/ /  __/ / / / /__/ / / /
/_____/_____/_/  |_/_/   /_____/\___/_/ /_/\___/_/ /_/ `

// GetString renders the ASCII banner shown above the help text.
func GetString() string {
	style := lipgloss.DefaultRenderer().NewStyle().
		Foreground(styles.ColorPrimary).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n"
}

// Header is the line printed before a run unless quiet.
func Header() string {
	return fmt.Sprintf("This is LDAPBench, Version %s", Version)
}
