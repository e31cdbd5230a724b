// Package tax infers a buyer's country from a tax number and maps countries
// to their VAT percentage.
package tax

import (
	"regexp"
)

// Country identifies a supported buyer country.
type Country string

const (
	Germany Country = "GERMANY"
	Italy   Country = "ITALY"
	Greece  Country = "GREECE"
	France  Country = "FRANCE"
)

type profile struct {
	country Country
	pattern *regexp.Regexp
	percent int
}

// profiles is evaluated in order; the first matching pattern wins.
var profiles = []profile{
	{country: Germany, pattern: regexp.MustCompile(`^DE\d{9}$`), percent: 19},
	{country: Italy, pattern: regexp.MustCompile(`^IT\d{11}$`), percent: 22},
	{country: Greece, pattern: regexp.MustCompile(`^GR\d{9}$`), percent: 24},
	{country: France, pattern: regexp.MustCompile(`^FR[A-Z]{2}\d{9}$`), percent: 20},
}

// ResolveCountry returns the country whose tax number format matches
// taxNumber exactly. No case or whitespace normalization is applied.
func ResolveCountry(taxNumber string) (Country, bool) {
	for _, p := range profiles {
		if p.pattern.MatchString(taxNumber) {
			return p.country, true
		}
	}
	return "", false
}

// Percent returns the VAT percentage for the given country.
func Percent(c Country) (int, bool) {
	for _, p := range profiles {
		if p.country == c {
			return p.percent, true
		}
	}
	return 0, false
}

// Countries lists the supported countries in resolution order.
func Countries() []Country {
	out := make([]Country, len(profiles))
	for i, p := range profiles {
		out[i] = p.country
	}
	return out
}
