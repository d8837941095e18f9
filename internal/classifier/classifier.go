package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reason explains a Verdict.
type Reason string

const (
	ReasonExplicitPlastic Reason = "explicit_plastic"
	ReasonBottleFallback  Reason = "bottle_fallback"
	ReasonGlass           Reason = "glass"
	ReasonNoBottle        Reason = "no_bottle"
)

type Verdict struct {
	IsPlasticBottle bool   `json:"is_plastic_bottle"`
	Reason          Reason `json:"reason"`
}

// Keyword lists are matched as substrings of the normalized text, so
// compounds such as "plastikflasche" or "en:plasticbottle" count. Entries are
// already lowercase and diacritic-free.
var bottleWords = []string{
	"bottle",
	"bouteille",
	"botella",
	"flasche",
	"bottiglia", "bottiglie",
	"garrafa",
	"fles",
}

var plasticWords = []string{
	"plastic",
	"plastique",
	"plastico", "plastica",
	"kunststoff", "plastik",
	"polyethylen",
}

// Resin codes are short enough to appear inside unrelated words ("petit"),
// so they only match whole tokens.
var plasticCodes = map[string]struct{}{
	"pet": {}, "pete": {}, "rpet": {},
	"hdpe": {}, "pehd": {}, "ldpe": {}, "pebd": {},
}

var glassWords = []string{
	"glass",
	"verre",
	"vidrio",
	"glas",
	"vetro",
	"vidro",
}

// Normalize lowercases s and strips diacritics ("Bouteille en PLASTIQUE é" ->
// "bouteille en plastique e").
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// SearchText concatenates every text source of p into one normalized string.
func SearchText(p Product) string {
	parts := []string{p.Packaging, p.PackagingEn, p.ProductName, p.GenericName}
	parts = append(parts, p.PackagingTags...)
	parts = append(parts, p.CategoriesTags...)
	for _, pkg := range p.Packagings {
		parts = append(parts, string(pkg.Material), string(pkg.Shape))
	}
	return Normalize(strings.Join(parts, " "))
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func hasToken(text string, set map[string]struct{}) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if _, ok := set[f]; ok {
			return true
		}
	}
	return false
}

// Classify decides whether p is a plastic bottle. The rule is permissive:
// a bottle without any glass mention is accepted even when no plastic term is
// present.
func Classify(p Product) Verdict {
	text := SearchText(p)

	bottle := containsAny(text, bottleWords)
	plastic := containsAny(text, plasticWords) || hasToken(text, plasticCodes)
	glass := containsAny(text, glassWords)

	switch {
	case !bottle:
		return Verdict{Reason: ReasonNoBottle}
	case glass:
		return Verdict{Reason: ReasonGlass}
	case plastic:
		return Verdict{IsPlasticBottle: true, Reason: ReasonExplicitPlastic}
	default:
		return Verdict{IsPlasticBottle: true, Reason: ReasonBottleFallback}
	}
}

// IsPlasticBottle is shorthand for Classify(p).IsPlasticBottle.
func IsPlasticBottle(p Product) bool {
	return Classify(p).IsPlasticBottle
}
