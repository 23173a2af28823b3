package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dagu-org/testseries/internal/core"
	"github.com/dagu-org/testseries/internal/persis/filetestrun"
	"github.com/dagu-org/testseries/internal/runtime"
)

// Tree drawing characters.
const (
	TreeBranch     = "├─"
	TreeLastBranch = "└─"
	TreePipe       = "│ "
	TreeSpace      = "  "
)

const (
	DefaultMaxLogLines = 10
	DefaultMaxWidth    = 100
)

// Config holds configuration for tree rendering.
type Config struct {
	ColorEnabled bool
	// ShowLogs adds the log tail of every instance that did not pass.
	ShowLogs    bool
	MaxLogLines int
	MaxWidth    int
}

// DefaultConfig returns the default rendering configuration.
func DefaultConfig() Config {
	return Config{
		ColorEnabled: true,
		ShowLogs:     true,
		MaxLogLines:  DefaultMaxLogLines,
		MaxWidth:     DefaultMaxWidth,
	}
}

// Renderer renders a finished series run as a tree of definitions and
// their instances.
type Renderer struct {
	config Config
}

// NewRenderer creates a tree renderer.
func NewRenderer(config Config) *Renderer {
	return &Renderer{config: config}
}

func (r *Renderer) gray(s string) string {
	if !r.config.ColorEnabled {
		return s
	}
	return "\033[38;5;245m" + s + "\033[0m"
}

func (r *Renderer) definition(s string, t *runtime.TestResult) string {
	if !r.config.ColorEnabled {
		return s
	}
	return DefinitionColorize(s, t.Status, t.Passed)
}

func (r *Renderer) result(s, result string) string {
	if !r.config.ColorEnabled {
		return s
	}
	return ResultColorize(s, result)
}

func branchChar(isLast bool) string {
	if isLast {
		return TreeLastBranch
	}
	return TreeBranch
}

func childPrefix(prefix string, isLast bool) string {
	if isLast {
		return prefix + TreeSpace
	}
	return prefix + TreePipe
}

// RenderRun renders the result of running the named series.
func (r *Renderer) RenderRun(name string, res *runtime.Result) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "%s - %s\n\n", overall(res), res.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "series: %s %s %s\n", name, res.SeriesID,
		r.gray("("+formatDuration(res.Finished.Sub(res.Started))+")"))
	if len(res.Names) > 0 {
		buf.WriteString("│\n")
	}

	for i, n := range res.Names {
		t, ok := res.Test(n)
		if !ok {
			continue
		}
		buf.WriteString(r.renderTest(t, i == len(res.Names)-1))
	}

	fmt.Fprintf(&buf, "\nResult: %s\n", overall(res))
	return buf.String()
}

func overall(res *runtime.Result) string {
	switch {
	case len(res.Unresolved()) > 0:
		return "Incomplete"
	case res.Passed():
		return "Passed"
	default:
		return "Failed"
	}
}

func (r *Renderer) renderTest(t *runtime.TestResult, isLast bool) string {
	var buf strings.Builder

	parts := []string{r.definition(DefinitionSymbol(t.Status, t.Passed)+" "+t.Name, t)}
	if !t.Started.IsZero() && !t.Finished.IsZero() && t.Status == core.Finished {
		parts = append(parts, r.gray("("+formatDuration(t.Finished.Sub(t.Started))+")"))
	}
	parts = append(parts, "["+t.Status.String()+"]")
	buf.WriteString(branchChar(isLast) + strings.Join(parts, " ") + "\n")

	cPrefix := childPrefix("", isLast)
	results := make(map[int]runtime.InstanceResult, len(t.Results))
	for _, res := range t.Results {
		results[res.ID] = res
	}

	lines := len(t.Instances)
	if t.LaunchErr != nil {
		lines++
	}
	for i, inst := range t.Instances {
		buf.WriteString(r.renderInstance(inst, results[inst.ID()], i == lines-1, cPrefix))
	}
	if t.LaunchErr != nil {
		buf.WriteString(r.renderError(t.LaunchErr.Error(), cPrefix))
	}

	if !isLast {
		buf.WriteString(TreePipe + "\n")
	}
	return buf.String()
}

func (r *Renderer) renderInstance(inst core.Instance, res runtime.InstanceResult, isLast bool, prefix string) string {
	var buf strings.Builder

	result := res.Result
	label := result
	if label == "" {
		label = "-"
	}
	line := fmt.Sprintf("%s #%07d %s %s", ResultSymbol(result), inst.ID(), inst.Name(), label)

	var note, logPath string
	if run, ok := inst.(*filetestrun.TestRun); ok {
		if stored, err := run.Results(); err == nil {
			note = stored.Note
		}
		logPath = run.File(filetestrun.LogFile)
	}
	buf.WriteString(prefix + branchChar(isLast) + r.result(line, result) + "\n")

	cPrefix := childPrefix(prefix, isLast)
	maxWidth := max(r.config.MaxWidth-len(cPrefix)-2, 20)
	if note != "" {
		for _, l := range wrapText(note, maxWidth) {
			buf.WriteString(cPrefix + "  " + r.gray(l) + "\n")
		}
	}
	if res.Err != nil {
		buf.WriteString(cPrefix + "  " + r.gray("error: "+res.Err.Error()) + "\n")
	}

	if r.config.ShowLogs && result != core.ResultPass && result != core.ResultSkipped && logPath != "" {
		buf.WriteString(r.renderLog(logPath, cPrefix, maxWidth))
	}
	return buf.String()
}

func (r *Renderer) renderLog(path, prefix string, maxWidth int) string {
	lines, truncated, err := ReadLogFileTail(path, r.config.MaxLogLines)
	if err != nil || len(lines) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString(prefix + "  log: " + r.gray(path) + "\n")
	if truncated > 0 {
		buf.WriteString(prefix + "    " + r.gray(fmt.Sprintf("... (%d more lines)", truncated)) + "\n")
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, wl := range wrapText(trimmed, maxWidth) {
			buf.WriteString(prefix + "    " + wl + "\n")
		}
	}
	return buf.String()
}

func (r *Renderer) renderError(errMsg, prefix string) string {
	return prefix + TreeLastBranch + r.result("error: "+errMsg, core.ResultError) + "\n"
}

// wrapText wraps text at word boundaries to fit within maxWidth.
func wrapText(text string, maxWidth int) []string {
	if len(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		for len(word) > maxWidth {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
			lines = append(lines, word[:maxWidth])
			word = word[maxWidth:]
		}
		switch {
		case word == "":
		case current.Len() == 0:
			current.WriteString(word)
		case current.Len()+1+len(word) <= maxWidth:
			current.WriteString(" ")
			current.WriteString(word)
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
