package dashboard

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for dashboard UI regions.
type theme struct {
	header       lipgloss.Style
	headerMeta   lipgloss.Style
	healthy      lipgloss.Style
	degraded     lipgloss.Style
	disconnected lipgloss.Style
	promptBox    lipgloss.Style
	promptSel    lipgloss.Style
	promptTitle  lipgloss.Style
	toastInfo    lipgloss.Style
	toastSuccess lipgloss.Style
	toastWarning lipgloss.Style
	toastError   lipgloss.Style
	eventLog     lipgloss.Style
	hint         lipgloss.Style
}

// defaultTheme defines the dashboard palette.
func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("24")),
		headerMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")),
		healthy: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("114")),
		degraded: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		disconnected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		promptBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1),
		promptSel: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("220")).
			Padding(0, 1),
		promptTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220")),
		toastInfo: lipgloss.NewStyle().
			Foreground(lipgloss.Color("117")),
		toastSuccess: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")),
		toastWarning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		toastError: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		eventLog: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
