package roster

import (
	"regexp"
	"strconv"
	"strings"
)

// usnPattern matches the structured university seat number format:
// numeric prefix, branch letters, 2-digit year, sub-branch letters,
// numeric suffix (e.g. "1BA21CS045").
var usnPattern = regexp.MustCompile(`^(\d+)([A-Z]+)(\d{2})([A-Z]+)(\d+)$`)

// ParsedUSN is the structured decomposition of a well-formed USN.
type ParsedUSN struct {
	Prefix    int    // leading numeric component
	Branch    string // college code letters
	Year      int    // 2-digit admission year
	SubBranch string // branch/programme letters
	Number    int    // roll number, compared numerically
}

// ParseUSN decomposes a USN into its structured components. The second
// return value is false when the USN does not match the expected format;
// such identifiers are still valid roster keys, they just sort by raw
// string after all well-formed USNs.
func ParseUSN(usn string) (ParsedUSN, bool) {
	m := usnPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(usn)))
	if m == nil {
		return ParsedUSN{}, false
	}

	// The regexp guarantees digits-only groups; Atoi can still overflow on
	// absurdly long prefixes, which we treat as non-conforming.
	prefix, err := strconv.Atoi(m[1])
	if err != nil {
		return ParsedUSN{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return ParsedUSN{}, false
	}
	number, err := strconv.Atoi(m[5])
	if err != nil {
		return ParsedUSN{}, false
	}

	return ParsedUSN{
		Prefix:    prefix,
		Branch:    m[2],
		Year:      year,
		SubBranch: m[4],
		Number:    number,
	}, true
}

// compare orders two parsed USNs component-wise. The numeric suffix is
// compared as an integer so "...9" sorts before "...10".
func (p ParsedUSN) compare(o ParsedUSN) int {
	if p.Prefix != o.Prefix {
		return cmpInt(p.Prefix, o.Prefix)
	}
	if p.Branch != o.Branch {
		return strings.Compare(p.Branch, o.Branch)
	}
	if p.Year != o.Year {
		return cmpInt(p.Year, o.Year)
	}
	if p.SubBranch != o.SubBranch {
		return strings.Compare(p.SubBranch, o.SubBranch)
	}
	return cmpInt(p.Number, o.Number)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
