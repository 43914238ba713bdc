package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Address is the canonical form of a raw listing address. It has no
// identity of its own; it is a pure function of the input text.
type Address struct {
	Locality string   // locality base, generic place words dropped
	Street   string   // street name without the type marker
	Number   string   // house number token, e.g. "5" or "12a"
	Tokens   []string // all tokens after folding and expansion
	Key      string   // comparison key: "locality street number"
}

// AbbrevRules expands the fixed dictionary of Polish street and locality
// abbreviations. Keys are already folded (lowercase, no diacritics)
// because expansion runs after folding.
type AbbrevRules struct {
	rules map[string]string
}

// NewAbbrevRules returns the default Polish abbreviation rules.
func NewAbbrevRules() *AbbrevRules {
	rules := map[string]string{
		"ul":    "ulica",
		"al":    "aleja",
		"pl":    "plac",
		"os":    "osiedle",
		"sw":    "swietego",
		"gen":   "generala",
		"ks":    "ksiedza",
		"kard":  "kardynala",
		"marsz": "marszalka",
		"bulw":  "bulwar",
	}
	return &AbbrevRules{rules: rules}
}

// Expand applies the rules token by token.
func (ar *AbbrevRules) Expand(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if full, ok := ar.rules[tok]; ok {
			out[i] = full
		} else {
			out[i] = tok
		}
	}
	return out
}

// Street-type markers that introduce a street name.
var streetMarkers = map[string]bool{
	"ulica":   true,
	"aleja":   true,
	"aleje":   true,
	"plac":    true,
	"osiedle": true,
	"rondo":   true,
	"rynek":   true,
	"skwer":   true,
	"bulwar":  true,
}

// Generic place words ignored when comparing locality names, following the
// TERYT matching rules ("Kolonia Borek" and "Borek" share one base).
var placeGenericWords = map[string]bool{
	"kolonia": true,
	"kol":     true,
	"osiedle": true,
	"os":      true,
	"nowa":    true,
	"stara":   true,
}

// reNumber matches house numbers, including forms like "5/7" and "12a".
var reNumber = regexp.MustCompile(`^\d+[a-z]?(?:/\d+[a-z]?)?$`)

// polishFold maps the Polish letters Unicode decomposition does not cover
// (ł has no combining form).
var polishFold = strings.NewReplacer(
	"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n",
	"ó", "o", "ś", "s", "ź", "z", "ż", "z",
)

var diacriticStrip = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics. Total: on a transform error the
// partially folded input is returned as-is.
func Fold(s string) string {
	s = polishFold.Replace(strings.ToLower(strings.TrimSpace(s)))
	if out, _, err := transform.String(diacriticStrip, s); err == nil {
		s = out
	}
	return s
}

// LocalityBase reduces a locality or gmina name to its comparison base:
// folded, punctuation dropped, generic place words removed. When dropping
// generic words would leave nothing, the folded form is kept whole.
func LocalityBase(s string) string {
	tokens := strings.Fields(stripPunct(Fold(s)))
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !placeGenericWords[tok] {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return strings.Join(tokens, " ")
	}
	return strings.Join(kept, " ")
}

// Normalize canonicalizes a raw address into an Address. Deterministic and
// total: malformed input yields an Address with an empty key, never an
// error. Two spellings of the same real-world address must produce the
// same Key for downstream matching to work.
func Normalize(raw string) Address {
	folded := stripPunct(Fold(raw))
	tokens := NewAbbrevRules().Expand(strings.Fields(folded))
	if len(tokens) == 0 {
		return Address{}
	}

	marker := -1
	for i, tok := range tokens {
		if streetMarkers[tok] {
			marker = i
			break
		}
	}

	var street, number string
	var locality []string

	if marker >= 0 {
		locality = append(locality, tokens[:marker]...)
		rest := tokens[marker+1:]
		streetEnd := len(rest)
		for i, tok := range rest {
			if reNumber.MatchString(tok) {
				number = tok
				streetEnd = i
				locality = append(locality, rest[i+1:]...)
				break
			}
		}
		street = strings.Join(rest[:streetEnd], " ")
	} else {
		numAt := -1
		for i, tok := range tokens {
			if reNumber.MatchString(tok) {
				numAt = i
				break
			}
		}
		if numAt >= 0 {
			street = strings.Join(tokens[:numAt], " ")
			number = tokens[numAt]
			locality = tokens[numAt+1:]
		} else {
			locality = tokens
		}
	}

	localityBase := LocalityBase(strings.Join(locality, " "))

	var parts []string
	for _, p := range []string{localityBase, street, number} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return Address{
		Locality: localityBase,
		Street:   street,
		Number:   number,
		Tokens:   tokens,
		Key:      strings.Join(parts, " "),
	}
}

// stripPunct replaces everything except letters, digits and spaces, then
// collapses runs of whitespace. A slash between digits survives so
// composite house numbers like "5/7" stay one token.
func stripPunct(s string) string {
	runes := []rune(s)
	b := strings.Builder{}
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '/' && i > 0 && i+1 < len(runes) &&
			(unicode.IsDigit(runes[i-1]) || unicode.IsLetter(runes[i-1])) &&
			unicode.IsDigit(runes[i+1]):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
