package llm

import (
	"regexp"
	"strings"

	"github.com/personashop/backend/internal/domain"
)

var (
	bulletRegex  = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
	sectionRegex = regexp.MustCompile(`(?i)^\s*(explanation|pros|cons|match_score)\s*:\s*(.*)$`)
	bestChoice   = regexp.MustCompile(`(?is)\bbest[_ ]choice\s*:.*$`)
)

// ParseExplanation reads a reply in the EXPLANATION/PROS/CONS format. A reply
// without section headers is taken whole as the explanation text. Any score the
// model adds is ignored.
func ParseExplanation(content string) *domain.GeneratedExplanation {
	out := &domain.GeneratedExplanation{}
	section := ""
	var text []string

	for _, line := range strings.Split(content, "\n") {
		if m := sectionRegex.FindStringSubmatch(line); m != nil {
			section = strings.ToLower(m[1])
			if rest := strings.TrimSpace(m[2]); rest != "" {
				switch section {
				case "explanation":
					text = append(text, rest)
				case "pros":
					out.Pros = append(out.Pros, rest)
				case "cons":
					out.Cons = append(out.Cons, rest)
				}
			}
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch section {
		case "", "explanation":
			text = append(text, line)
		case "pros":
			if item := bulletItem(line); item != "" {
				out.Pros = append(out.Pros, item)
			}
		case "cons":
			if item := bulletItem(line); item != "" {
				out.Cons = append(out.Cons, item)
			}
		}
	}

	out.Explanation = strings.Join(text, " ")
	return out
}

// ParseSummary trims the reply and drops a trailing BEST_CHOICE line
func ParseSummary(content string) string {
	content = bestChoice.ReplaceAllString(content, "")
	return strings.Join(strings.Fields(content), " ")
}

func bulletItem(line string) string {
	return strings.TrimSpace(bulletRegex.ReplaceAllString(line, ""))
}
