package builder

import (
	"net/netip"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/huntql/internal/platform"
	"github.com/roach88/huntql/internal/similarity"
)

// indicator is one IOC recognised in intent text.
type indicator struct {
	kind  platform.IOCKind
	value string
}

// intent is what the builder understands of free text.
type intent struct {
	text       string
	words      []string
	indicators []indicator
	window     time.Duration
	phrase     string // the time phrase window came from
}

var (
	sha256Pattern  = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
	sha1Pattern    = regexp.MustCompile(`\b[a-fA-F0-9]{40}\b`)
	md5Pattern     = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	ipv4Pattern    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Pattern    = regexp.MustCompile(`[0-9A-Fa-f]{0,4}(?::[0-9A-Fa-f]{0,4}){2,7}`)
	processPattern = regexp.MustCompile(`(?i)\b([a-z0-9_\-]+\.(?:exe|dll|bat|cmd|ps1|vbs))\b`)
	portPattern    = regexp.MustCompile(`(?i)\bport\s*(?:=|is|:)?\s*(\d{1,5})\b`)
	hostPattern    = labelled(`host(?:name)?|device|server|endpoint`)
	userPattern    = labelled(`user(?:name)?|account`)
	domainPattern  = labelled(`domain`)

	// A quoted string after a command line mention: command line "-enc JAB".
	cmdlinePattern  = regexp.MustCompile(`(?i)\b(?:command[\s_-]?lines?|cmdlines?)\b[^"'\n]{0,24}?["']([^"'\n]{3,})["']`)
	winPathPattern  = regexp.MustCompile(`(?i)\b([a-z]:\\[^\s"'<>|*?]+)`)
	// Unix paths need two components and must start a word, so "/c" flags
	// and URL paths are skipped.
	unixPathPattern = regexp.MustCompile(`(?:^|[\s"'(=])(/[\w.\-]+(?:/[\w.\-]+)+)`)

	windowPattern = regexp.MustCompile(`(?i)\b(?:last|past|previous)\s+(?:(\d+)\s*)?(h|hours?|d|days?|weeks?|months?)\b`)
)

// labelled matches "<label> is X", "<label>=X", "<label> named X" or
// "<label> 'X'". A bare "<label> X" is not enough: "user activity" names no
// user.
func labelled(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + label + `)(?:\s+(?:named|is|equals)\s+['"]?|\s*[=:]\s*['"]?|\s+['"])([A-Za-z0-9_.@\\\-]{2,})['"]?`)
}

// parseIntent extracts dataset keywords, indicators and a time window from
// text. It never fails: anything it does not recognise is left to retrieval.
func parseIntent(text string) intent {
	in := intent{text: strings.TrimSpace(text)}
	if in.text == "" {
		return in
	}
	in.words = similarity.Tokenize(in.text)
	in.window, in.phrase = parseWindow(in.text)

	add := func(kind platform.IOCKind, value string) {
		ind := indicator{kind: kind, value: value}
		if !slices.Contains(in.indicators, ind) {
			in.indicators = append(in.indicators, ind)
		}
	}
	for _, m := range sha256Pattern.FindAllString(in.text, -1) {
		add(platform.IOCSHA256, strings.ToLower(m))
	}
	for _, m := range sha1Pattern.FindAllString(in.text, -1) {
		add(platform.IOCSHA1, strings.ToLower(m))
	}
	for _, m := range md5Pattern.FindAllString(in.text, -1) {
		add(platform.IOCMD5, strings.ToLower(m))
	}
	for _, m := range ipv4Pattern.FindAllString(in.text, -1) {
		if addr, err := netip.ParseAddr(m); err == nil && addr.Is4() {
			add(platform.IOCIPv4, m)
		}
	}
	for _, m := range ipv6Pattern.FindAllString(in.text, -1) {
		if addr, err := netip.ParseAddr(m); err == nil && addr.Is6() && !addr.Is4In6() && !addr.IsUnspecified() {
			add(platform.IOCIPv6, addr.String())
		}
	}
	for _, m := range processPattern.FindAllStringSubmatch(in.text, -1) {
		add(platform.IOCProcess, strings.ToLower(m[1]))
	}
	for _, m := range portPattern.FindAllStringSubmatch(in.text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= 65535 {
			add(platform.IOCPort, m[1])
		}
	}
	for _, m := range hostPattern.FindAllStringSubmatch(in.text, -1) {
		add(platform.IOCHost, strings.TrimRight(m[1], "."))
	}
	for _, m := range userPattern.FindAllStringSubmatch(in.text, -1) {
		add(platform.IOCUser, m[1])
	}
	for _, m := range domainPattern.FindAllStringSubmatch(in.text, -1) {
		add(platform.IOCDomain, strings.ToLower(strings.TrimRight(m[1], ".")))
	}
	for _, m := range cmdlinePattern.FindAllStringSubmatch(in.text, -1) {
		add(platform.IOCCommandLine, strings.TrimSpace(m[1]))
	}
	for _, re := range []*regexp.Regexp{winPathPattern, unixPathPattern} {
		for _, m := range re.FindAllStringSubmatch(in.text, -1) {
			if p := strings.TrimRight(m[1], ".,;:)"); strings.ContainsAny(p, `\/`) {
				add(platform.IOCPath, p)
			}
		}
	}
	return in
}

// parseWindow reads the first "last N <unit>" phrase. A missing count means
// one. Months count as 30 days.
func parseWindow(text string) (time.Duration, string) {
	m := windowPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ""
	}
	n := int64(1)
	if m[1] != "" {
		v, err := strconv.ParseInt(m[1], 10, 32)
		if err != nil || v <= 0 {
			return 0, ""
		}
		n = v
	}
	day := 24 * time.Hour
	var unit time.Duration
	switch u := strings.ToLower(m[2]); {
	case strings.HasPrefix(u, "h"):
		unit = time.Hour
	case strings.HasPrefix(u, "d"):
		unit = day
	case strings.HasPrefix(u, "w"):
		unit = 7 * day
	default:
		unit = 30 * day
	}
	return time.Duration(n) * unit, m[0]
}
