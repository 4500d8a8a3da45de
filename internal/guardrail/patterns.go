package guardrail

import (
	"regexp"
	"strings"

	"github.com/roach88/huntql/internal/qerr"
)

type dangerousPattern struct {
	name string
	re   *regexp.Regexp
}

// defaultPatterns is the injection denylist. Patterns are matched
// case-insensitively against raw text.
var defaultPatterns = []dangerousPattern{
	{"chained destructive statement", regexp.MustCompile(`(?i);\s*(drop|delete|truncate|alter|insert|update|create|exec|execute|shutdown|grant|revoke|merge)\b`)},
	{"union select", regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`)},
	{"quote followed by trailing comment", regexp.MustCompile(`['"]\s*(--|#)\s*$`)},
	{"inline comment", regexp.MustCompile(`/\*.*\*/`)},
	{"quoted tautology", regexp.MustCompile(`(?i)['"]\s*or\s+['"]?\d+['"]?\s*=\s*['"]?\d+`)},
	{"pipe to external operator", regexp.MustCompile(`(?i)\|\s*(externaldata|evaluate|http_request|http_request_post|sql_request)\b`)},
	{"new pipeline stage", regexp.MustCompile(`[\r\n]\s*\|`)},
	{"stored procedure", regexp.MustCompile(`(?i)\b(xp_cmdshell|sp_executesql|sp_oacreate)\b`)},
	{"management command", regexp.MustCompile(`(?i)(^|[\s;|])\.(drop|delete|set-or-replace|append|alter|create|purge)\s`)},
	{"NUL byte", regexp.MustCompile(`\x00`)},
}

// ScanDangerousPatterns rejects text that looks like a statement-injection
// attempt. Apply it to attacker-influenced free text (filter values, intent)
// only. Identifiers that already passed schema lookup and enum values never
// need scanning.
func (e *Engine) ScanDangerousPatterns(text string) error {
	for _, p := range e.patterns {
		if loc := p.re.FindStringIndex(text); loc != nil {
			return qerr.New(qerr.KindDangerousPattern, "input rejected: %s", p.name).
				WithDetail("match", excerpt(text, loc[0], loc[1]))
		}
	}
	return nil
}

func excerpt(s string, start, end int) string {
	const maxLen = 40
	if end-start > maxLen {
		end = start + maxLen
	}
	return strings.ToValidUTF8(strings.ReplaceAll(s[start:end], "\x00", `\0`), "")
}

// identifierUnsafe lists characters that can break out of an identifier
// position in any supported dialect.
const identifierUnsafe = "'\"`;|()[]{}\\=<>!&$\x00\r\n\t"

// ValidateIdentifier rejects dataset and field names carrying characters that
// could alter query structure. It does not check existence.
func ValidateIdentifier(name string) error {
	if i := strings.IndexAny(name, identifierUnsafe); i >= 0 {
		return qerr.New(qerr.KindDangerousPattern, "identifier %q contains invalid character %q", name, name[i:i+1])
	}
	return nil
}
