// Package output renders series runs and series contents for the terminal.
package output

import (
	"github.com/dagu-org/testseries/internal/core"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status symbols.
const (
	SymbolPending  = "○"
	SymbolRunning  = "●"
	SymbolPassed   = "✓"
	SymbolFailed   = "✗"
	SymbolSkipped  = "⊘"
	SymbolNoResult = "◌"
)

// ResultSymbol returns the symbol for a recorded result value.
func ResultSymbol(result string) string {
	switch result {
	case core.ResultPass:
		return SymbolPassed
	case core.ResultFail, core.ResultError:
		return SymbolFailed
	case core.ResultSkipped:
		return SymbolSkipped
	case "":
		return SymbolNoResult
	default:
		return SymbolFailed
	}
}

// ResultColorize colors s by the result value it belongs to.
func ResultColorize(s, result string) string {
	switch result {
	case core.ResultPass:
		return color.GreenString(s)
	case core.ResultFail, core.ResultError:
		return color.RedString(s)
	case core.ResultSkipped:
		return color.YellowString(s)
	case "":
		return color.New(color.Faint).Sprint(s)
	default:
		return color.RedString(s)
	}
}

// DefinitionSymbol returns the symbol for a definition's final state.
func DefinitionSymbol(status core.DefinitionStatus, passed bool) string {
	switch status {
	case core.Pending:
		return SymbolPending
	case core.Running:
		return SymbolRunning
	case core.Skipped:
		return SymbolSkipped
	case core.Finished:
		if passed {
			return SymbolPassed
		}
		return SymbolFailed
	default:
		return SymbolPending
	}
}

// DefinitionColorize colors s by a definition's final state.
func DefinitionColorize(s string, status core.DefinitionStatus, passed bool) string {
	switch status {
	case core.Running:
		return color.New(color.FgHiGreen).Sprint(s)
	case core.Skipped:
		return color.YellowString(s)
	case core.Finished:
		if passed {
			return color.GreenString(s)
		}
		return color.RedString(s)
	default:
		return color.New(color.Faint).Sprint(s)
	}
}

// StatusText returns the title-cased status name.
func StatusText(status core.DefinitionStatus) string {
	return cases.Title(language.English).String(status.String())
}
