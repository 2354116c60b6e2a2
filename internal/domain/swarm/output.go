package swarm

import (
	"regexp"
	"strings"
)

var (
	ansiPattern   = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*\x07`)
	urlPattern    = regexp.MustCompile(`https?://[^\s"'\)\]]+`)
	devURLPattern = regexp.MustCompile(`https?://(?:localhost|127\.0\.0\.1|0\.0\.0\.0)(?::\d+)?[^\s"'\)\]]*`)
)

// CleanTerminal strips ANSI escape sequences and trailing whitespace from
// raw session output so it can be shown to humans or fed to the oracle.
func CleanTerminal(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ExtractDevServerURL returns the last local development-server URL found in
// output, or "" when none is present.
func ExtractDevServerURL(output string) string {
	matches := devURLPattern.FindAllString(output, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// ExtractSummary pulls a short human-meaningful summary out of terminal
// output: artifact links first, otherwise the last few non-empty lines.
// Returns "" when nothing useful can be extracted.
func ExtractSummary(output string) string {
	clean := CleanTerminal(output)
	if clean == "" {
		return ""
	}

	if urls := urlPattern.FindAllString(clean, -1); len(urls) > 0 {
		seen := make(map[string]bool, len(urls))
		var uniq []string
		for _, u := range urls {
			if !seen[u] {
				seen[u] = true
				uniq = append(uniq, u)
			}
		}
		if len(uniq) > 3 {
			uniq = uniq[len(uniq)-3:]
		}
		return strings.Join(uniq, "\n")
	}

	var tail []string
	lines := strings.Split(clean, "\n")
	for i := len(lines) - 1; i >= 0 && len(tail) < 3; i-- {
		l := strings.TrimSpace(lines[i])
		if l != "" {
			tail = append([]string{l}, tail...)
		}
	}
	return Truncate(strings.Join(tail, "\n"), 300)
}
