package criteria

import (
	"regexp"
	"strconv"
	"strings"
)

// ProteinChange is a single amino-acid substitution.
type ProteinChange struct {
	Ref string // three-letter code
	Pos int64
	Alt string
}

var (
	threeLetterRe = regexp.MustCompile(`p\.\(?([A-Z][a-z]{2})(\d+)([A-Z][a-z]{2}|=|\*)\)?`)
	oneLetterRe   = regexp.MustCompile(`p\.\(?([A-Z])(\d+)([A-Z]|=|\*)\)?(?:$|[^a-z])`)
)

var aminoAcids = map[string]string{
	"A": "Ala", "R": "Arg", "N": "Asn", "D": "Asp", "C": "Cys",
	"E": "Glu", "Q": "Gln", "G": "Gly", "H": "His", "I": "Ile",
	"L": "Leu", "K": "Lys", "M": "Met", "F": "Phe", "P": "Pro",
	"S": "Ser", "T": "Thr", "W": "Trp", "Y": "Tyr", "V": "Val",
}

var standardThreeLetter = func() map[string]bool {
	m := make(map[string]bool, len(aminoAcids))
	for _, aa := range aminoAcids {
		m[aa] = true
	}
	return m
}()

// ParseProteinChange extracts the first amino-acid substitution from an
// HGVS protein notation, e.g. "NP_000050.2:p.(Arg23His)" or "p.R23H".
// Multiple notations separated by ";" are accepted; the first is used.
// Synonymous and stop changes are returned with Alt "=" or "Ter".
func ParseProteinChange(s string) (ProteinChange, bool) {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	if m := threeLetterRe.FindStringSubmatch(s); m != nil {
		pos, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return ProteinChange{}, false
		}
		return ProteinChange{Ref: m[1], Pos: pos, Alt: normalizeAlt(m[3])}, true
	}
	if m := oneLetterRe.FindStringSubmatch(s); m != nil {
		ref, ok := aminoAcids[m[1]]
		if !ok {
			return ProteinChange{}, false
		}
		pos, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return ProteinChange{}, false
		}
		alt := m[3]
		if aa, ok := aminoAcids[alt]; ok {
			alt = aa
		}
		return ProteinChange{Ref: ref, Pos: pos, Alt: normalizeAlt(alt)}, true
	}
	return ProteinChange{}, false
}

func normalizeAlt(alt string) string {
	if alt == "*" {
		return "Ter"
	}
	return alt
}

// IsMissense reports a substitution between two different standard amino
// acids.
func (p ProteinChange) IsMissense() bool {
	return standardThreeLetter[p.Ref] && standardThreeLetter[p.Alt] && p.Ref != p.Alt
}
