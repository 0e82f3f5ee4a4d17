package postal

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/ignite/recipient-engine/internal/pkg/textutil"
)

// Country is a recognised destination for letters. UK marks countries and
// crown dependencies delivered at domestic rates, which are addressed with
// a postcode rather than a country line.
type Country struct {
	Name string
	UK   bool
}

var countries = []Country{
	{"United Kingdom", true},
	{"Jersey", true},
	{"Guernsey", true},
	{"Isle of Man", true},

	{"Afghanistan", false}, {"Albania", false}, {"Algeria", false}, {"Andorra", false},
	{"Argentina", false}, {"Armenia", false}, {"Australia", false}, {"Austria", false},
	{"Azerbaijan", false}, {"Bahrain", false}, {"Bangladesh", false}, {"Barbados", false},
	{"Belarus", false}, {"Belgium", false}, {"Bermuda", false}, {"Bosnia and Herzegovina", false},
	{"Botswana", false}, {"Brazil", false}, {"Brunei", false}, {"Bulgaria", false},
	{"Cambodia", false}, {"Cameroon", false}, {"Canada", false}, {"Chile", false},
	{"China", false}, {"Colombia", false}, {"Costa Rica", false}, {"Croatia", false},
	{"Cuba", false}, {"Cyprus", false}, {"Czechia", false}, {"Denmark", false},
	{"Dominican Republic", false}, {"Ecuador", false}, {"Egypt", false}, {"Estonia", false},
	{"Ethiopia", false}, {"Fiji", false}, {"Finland", false}, {"France", false},
	{"Georgia", false}, {"Germany", false}, {"Ghana", false}, {"Gibraltar", false},
	{"Greece", false}, {"Hong Kong", false}, {"Hungary", false}, {"Iceland", false},
	{"India", false}, {"Indonesia", false}, {"Iran", false}, {"Iraq", false},
	{"Ireland", false}, {"Israel", false}, {"Italy", false}, {"Jamaica", false},
	{"Japan", false}, {"Jordan", false}, {"Kazakhstan", false}, {"Kenya", false},
	{"Kuwait", false}, {"Latvia", false}, {"Lebanon", false}, {"Liechtenstein", false},
	{"Lithuania", false}, {"Luxembourg", false}, {"Malaysia", false}, {"Maldives", false},
	{"Malta", false}, {"Mauritius", false}, {"Mexico", false}, {"Monaco", false},
	{"Mongolia", false}, {"Montenegro", false}, {"Morocco", false}, {"Mozambique", false},
	{"Myanmar", false}, {"Namibia", false}, {"Nepal", false}, {"Netherlands", false},
	{"New Zealand", false}, {"Nigeria", false}, {"North Macedonia", false}, {"Norway", false},
	{"Oman", false}, {"Pakistan", false}, {"Panama", false}, {"Papua New Guinea", false},
	{"Paraguay", false}, {"Peru", false}, {"Philippines", false}, {"Poland", false},
	{"Portugal", false}, {"Qatar", false}, {"Romania", false}, {"Russia", false},
	{"Rwanda", false}, {"San Marino", false}, {"Saudi Arabia", false}, {"Senegal", false},
	{"Serbia", false}, {"Seychelles", false}, {"Singapore", false}, {"Slovakia", false},
	{"Slovenia", false}, {"Somalia", false}, {"South Africa", false}, {"South Korea", false},
	{"Spain", false}, {"Sri Lanka", false}, {"Sudan", false}, {"Sweden", false},
	{"Switzerland", false}, {"Taiwan", false}, {"Tanzania", false}, {"Thailand", false},
	{"Trinidad and Tobago", false}, {"Tunisia", false}, {"Turkey", false}, {"Uganda", false},
	{"Ukraine", false}, {"United Arab Emirates", false}, {"United States", false},
	{"Uruguay", false}, {"Uzbekistan", false}, {"Venezuela", false}, {"Vietnam", false},
	{"Yemen", false}, {"Zambia", false}, {"Zimbabwe", false},
}

// countrySynonyms maps alternative spellings to a canonical name from the
// countries list. Punctuation and case differences are already handled by
// countryKey, so only genuinely different spellings belong here.
var countrySynonyms = map[string]string{
	"UK":               "United Kingdom",
	"GB":               "United Kingdom",
	"Great Britain":    "United Kingdom",
	"Britain":          "United Kingdom",
	"England":          "United Kingdom",
	"Scotland":         "United Kingdom",
	"Wales":            "United Kingdom",
	"Cymru":            "United Kingdom",
	"Northern Ireland": "United Kingdom",

	"USA":                      "United States",
	"US":                       "United States",
	"America":                  "United States",
	"United States of America": "United States",

	"Czech Republic":      "Czechia",
	"Holland":             "Netherlands",
	"Republic of Ireland": "Ireland",
	"Eire":                "Ireland",
	"Éire":                "Ireland",
	"Russian Federation":  "Russia",
	"Korea":               "South Korea",
	"Republic of Korea":   "South Korea",
	"UAE":                 "United Arab Emirates",
	"Emirates":            "United Arab Emirates",
	"Burma":               "Myanmar",
	"Macedonia":           "North Macedonia",
	"Türkiye":             "Turkey",
	"Viet Nam":            "Vietnam",
}

var countryIndex = buildCountryIndex()

func buildCountryIndex() map[string]Country {
	index := make(map[string]Country, len(countries)+len(countrySynonyms))
	byName := make(map[string]Country, len(countries))
	for _, c := range countries {
		byName[c.Name] = c
		index[countryKey(c.Name)] = c
	}
	for synonym, canonical := range countrySynonyms {
		c, ok := byName[canonical]
		if !ok {
			panic("postal: synonym " + synonym + " points at unknown country " + canonical)
		}
		index[countryKey(synonym)] = c
	}
	return index
}

// countryKey folds a country spelling down to its lookup form: case folded,
// punctuation dropped, "&" expanded, whitespace collapsed, leading "the"
// removed. "U.K" and "The Netherlands" land on the same keys as "UK" and
// "Netherlands".
func countryKey(name string) string {
	key := cases.Fold().String(name)
	key = strings.ReplaceAll(key, "&", " and ")
	key = textutil.RemoveAll(key, ".'’")
	key = textutil.NormaliseWhitespace(key)
	return strings.TrimPrefix(key, "the ")
}

// lookupCountry reports whether line names a recognised country.
func lookupCountry(line string) (Country, bool) {
	c, ok := countryIndex[countryKey(line)]
	return c, ok
}
