// Package extract pulls listing links and address fragments out of portal
// HTML. Embedded JSON blobs are preferred, the DOM is a fallback, and hard
// filters keep interface chrome ("Wróć", "Udostępnij", portal domains) out
// of street names.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricebot-pl/internal/normalize"
)

// AddressParts is the address material found on one listing page. Empty
// fields mean the page did not state them.
type AddressParts struct {
	Province string
	City     string
	District string
	Street   string
}

// Text joins the non-empty parts into a single free-text address suitable
// for normalization, street first the way listing headers print it.
func (p AddressParts) Text() string {
	var parts []string
	for _, v := range []string{p.Street, p.City, p.District, p.Province} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// uiBlacklist holds interface phrases that must never be taken for a
// street name.
var uiBlacklist = []string{
	"wróć", "wroc", "udostępnij", "udostepnij", "zapisz", "obserwuj",
	"wszystkie zdjęcia", "wszystkie zdjecia", "pokaż na mapie", "pokaz na mapie",
	"zadzwoń", "napisz", "drukuj", "pobierz", "pełny ekran", "pelny ekran",
	"galeria", "wideo", "video", "wirtualny spacer",
	"otomoto.pl", "fixly.pl", "obido.pl", "kupuję nieruchomości", "kupuje nieruchomosci",
	"google", "maps", "openstreetmap", "wyznacz trasę", "wyznacz trase", "trasa", "dojazd",
}

const streetPrefix = `(?:ul\.|ulica|al\.|aleja|alei|aleje|pl\.|plac|os\.|osiedle|rynek|rondo|bulw\.|bulwar|skwer)`

var (
	reWhitespace   = regexp.MustCompile(`\s+`)
	reHeaderTail   = regexp.MustCompile(`[|•·—–]\s*.*$`)
	reDomainOrURL  = regexp.MustCompile(`(?i)(https?://|www\.)|\b[a-z0-9.-]+\.(pl|com|net|org)\b`)
	reStreetPrefix = regexp.MustCompile(`(?i)^` + streetPrefix + `\b`)
	reProperName   = regexp.MustCompile(`^[A-ZĄĆĘŁŃÓŚŻŹ]`)
	reShowOnMap    = regexp.MustCompile(`(?i)^poka[zż] na mapie\s*`)

	// Typical DOM concatenation artifacts around street prefixes.
	reDoubleDot  = regexp.MustCompile(`(?i)\b(ul|al|pl)\.\s*\.\s*`)
	reUlicaSplit = regexp.MustCompile(`(?i)\bul\.\s*lica\b`)
	reAlejaSplit = regexp.MustCompile(`(?i)\bal\.\s*eja\b`)
	rePlacSplit  = regexp.MustCompile(`(?i)\bpl\.\s*ac\b`)

	jsonStreetKeys = []*regexp.Regexp{
		regexp.MustCompile(`"streetLabel"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"streetName"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"street"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"route"\s*:\s*"([^"]+)"`),
	}
	jsonCityKeys = []*regexp.Regexp{
		regexp.MustCompile(`"cityLabel"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"city"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"locality"\s*:\s*"([^"]+)"`),
	}
	jsonDistrictKeys = []*regexp.Regexp{
		regexp.MustCompile(`"districtLabel"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"district"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"subLocality"\s*:\s*"([^"]+)"`),
	}
	jsonProvinceKeys = []*regexp.Regexp{
		regexp.MustCompile(`"province"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"voivodeship"\s*:\s*"([^"]+)"`),
	}
)

// ParseAddress extracts address parts from a listing page. Embedded JSON
// keys win; the DOM fills in what the JSON lacks.
func ParseAddress(html string) (AddressParts, error) {
	js := fromJSONScripts(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return js, err
	}
	dom := fromDOM(doc)

	out := AddressParts{
		Province: firstNonEmpty(js.Province, dom.Province),
		City:     firstNonEmpty(js.City, dom.City),
		District: firstNonEmpty(js.District, dom.District),
	}
	out.Street = looksLikeStreet(firstNonEmpty(js.Street, dom.Street))
	return out, nil
}

func fromJSONScripts(html string) AddressParts {
	return AddressParts{
		Province: cleanText(firstMatch(jsonProvinceKeys, html)),
		City:     cleanText(firstMatch(jsonCityKeys, html)),
		District: cleanText(firstMatch(jsonDistrictKeys, html)),
		Street:   looksLikeStreet(firstMatch(jsonStreetKeys, html)),
	}
}

func fromDOM(doc *goquery.Document) AddressParts {
	var out AddressParts

	// Header bar: "Miasto, Dzielnica, Województwo".
	if head := doc.Find(`[data-cy="adPageHeader-address"]`).First(); head.Length() > 0 {
		var parts []string
		for _, p := range strings.Split(cleanText(head.Text()), ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			out.City = parts[0]
		}
		if len(parts) > 1 {
			out.District = parts[1]
		}
		if len(parts) > 2 {
			out.Province = parts[len(parts)-1]
		}
	}

	// "Pokaż na mapie" link usually carries the street.
	mapLink := doc.Find(`[data-cy="adPageMap-link"], a[href*="google.com/maps"], a[href*="maps.google"]`).First()
	if mapLink.Length() > 0 {
		raw := reShowOnMap.ReplaceAllString(cleanText(mapLink.Text()), "")
		raw = strings.TrimSpace(strings.SplitN(raw, ",", 2)[0])
		out.Street = looksLikeStreet(raw)
	}

	// Any other node starting with a street prefix.
	if out.Street == "" {
		doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if sel.Children().Length() > 0 {
				return true
			}
			text := cleanText(sel.Text())
			if reStreetPrefix.MatchString(text) {
				if s := looksLikeStreet(text); s != "" {
					out.Street = s
					return false
				}
			}
			return true
		})
	}
	return out
}

// looksLikeStreet returns s cleaned up if it is a plausible street name,
// empty string otherwise. Interface phrases and domains never pass.
func looksLikeStreet(s string) string {
	if s == "" {
		return ""
	}
	t := normalizeStreet(cleanText(s))
	folded := normalize.Fold(t)

	if reDomainOrURL.MatchString(folded) {
		return ""
	}
	for _, bad := range uiBlacklist {
		if strings.Contains(folded, normalize.Fold(bad)) {
			return ""
		}
	}

	words := strings.Fields(t)
	if len(words) == 0 || len(words) > 8 {
		return ""
	}

	if reStreetPrefix.MatchString(t) {
		return t
	}
	// No prefix: accept a proper name, reject sentence-like text.
	if reProperName.MatchString(t) && !strings.HasSuffix(t, "!") &&
		!strings.HasSuffix(t, "?") && !strings.HasSuffix(t, ".") {
		return t
	}
	return ""
}

func normalizeStreet(s string) string {
	t := reDoubleDot.ReplaceAllString(s, "$1. ")
	t = reUlicaSplit.ReplaceAllString(t, "ul.")
	t = reAlejaSplit.ReplaceAllString(t, "al.")
	t = rePlacSplit.ReplaceAllString(t, "pl.")
	t = reWhitespace.ReplaceAllString(t, " ")
	return strings.Trim(t, " ,.-")
}

func cleanText(s string) string {
	t := reWhitespace.ReplaceAllString(s, " ")
	t = reHeaderTail.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return cleanText(m[1])
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseListingLinks extracts canonical offer URLs from a results page,
// resolved against baseURL (the portal default when empty). Primary
// selector is the listing-item link; any anchor pointing at an offer path
// is the fallback.
func ParseListingLinks(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var links []string
	collect := func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u := CleanListingURL(href, baseURL)
		if u != "" && !seen[u] {
			seen[u] = true
			links = append(links, u)
		}
	}

	doc.Find(`a[data-cy="listing-item-link"]`).Each(collect)
	if len(links) == 0 {
		doc.Find(`a[href*="/pl/oferta/"]`).Each(collect)
	}
	return links, nil
}

const listingBase = "https://www.otodom.pl"

// CleanListingURL canonicalizes an offer link against baseURL: absolute
// URL, offer path only, no query or fragment, no trailing slash.
func CleanListingURL(href, baseURL string) string {
	if href == "" {
		return ""
	}
	if baseURL == "" {
		baseURL = listingBase
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	if !strings.Contains(u.Path, "/pl/oferta/") {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

var (
	reSlugDash  = regexp.MustCompile(`(\pL|\pN)-(\pL|\pN)`)
	reSlugJunk  = regexp.MustCompile(`[^a-z0-9-]+`)
	reSlugRuns  = regexp.MustCompile(`-{3,}`)
	reSlugSpace = regexp.MustCompile(`\s+`)
)

// RegionSlug converts a voivodeship name to the portal's URL slug:
// lowercase, diacritics stripped, spaces and internal hyphens doubled, so
// "warmińsko-mazurskie" becomes "warminsko--mazurskie".
func RegionSlug(name string) string {
	s := normalize.Fold(name)
	s = reSlugSpace.ReplaceAllString(s, "--")
	// Two passes so consecutive single hyphens ("a-b-c") are all doubled.
	s = reSlugDash.ReplaceAllString(s, "$1--$2")
	s = reSlugDash.ReplaceAllString(s, "$1--$2")
	s = reSlugJunk.ReplaceAllString(s, "")
	s = reSlugRuns.ReplaceAllString(s, "--")
	return strings.Trim(s, "-")
}
