package colors

import "github.com/fatih/color"

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
)

// Status renders "ok" in green or "failed" in red
func Status(ok bool) string {
	if ok {
		return Green("ok")
	}
	return Red("failed")
}

// Prefix returns a coloured "[name] " log prefix
func Prefix(name string) string {
	return Yellow("[" + name + "] ")
}
