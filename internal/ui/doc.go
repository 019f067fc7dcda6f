// Package ui renders CLI output with [lipgloss] styles.
//
// [Styles] is the shared [Palette]. The render helpers turn sync progress, sync results
// and playlist listings into styled lines for the terminal.
package ui
