package usecases

import (
	"regexp"
	"strings"
)

var (
	typography = strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`,
		"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
		"\u2013", "-", "\u2014", "--",
		"\u2026", "...",
		"\u00a0", " ", "\u2002", " ", "\u2003", " ", "\u2009", " ", "\u202f", " ", "\u3000", " ",
		"\u200b", "", "\ufeff", "",
	)

	pageNumberLine  = regexp.MustCompile(`(?i)^(?:\d+|page\s+\d+\s+of\s+\d+|\d+\s*/\s*\d+)$`)
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:!?\-()\[\]{}"']`)
	horizontalSpace = regexp.MustCompile(`[ \t\f]+`)
	spaceBeforeMark = regexp.MustCompile(` ([.,;:!?])`)
	dotRun          = regexp.MustCompile(`\.{3,}`)
	dashRun         = regexp.MustCompile(`-{3,}`)
	markThenWord    = regexp.MustCompile(`([,;:!?])(\p{L})`)
	periodThenUpper = regexp.MustCompile(`\.(\p{Lu})`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes raw extracted text for chunking.
// It is total and idempotent: Clean(Clean(x)) == Clean(x).
func Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := typography.Replace(raw)
	text = dropPageNumberLines(text)
	text = disallowedChars.ReplaceAllString(text, "")
	// stripping can leave a bare page number behind ("12•")
	text = dropPageNumberLines(text)

	text = horizontalSpace.ReplaceAllString(text, " ")
	text = spaceBeforeMark.ReplaceAllString(text, "$1")
	text = dotRun.ReplaceAllString(text, "...")
	text = dashRun.ReplaceAllString(text, "---")
	text = markThenWord.ReplaceAllString(text, "$1 $2")
	text = periodThenUpper.ReplaceAllString(text, ". $1")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLineRun.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

func dropPageNumberLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if pageNumberLine.MatchString(strings.TrimSpace(line)) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}
