package groundtruth

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// dollarPattern matches a dollar amount in release text: a "$", digits with
// optional thousands separators and decimals, and an optional scale word.
var dollarPattern = regexp.MustCompile(`(?i)\$\s*((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)(?:\s*(million|billion|thousand)\b)?`)

// amountPattern is looser than dollarPattern and is used for model answers,
// where the "$" is optional and scale words are often abbreviated.
var amountPattern = regexp.MustCompile(`(?i)(-?)\$?\s*(\d[\d,]*(?:\.\d+)?|\.\d+)\s*(million|billion|thousand|mm|bn|m|b|k)?\b`)

var scales = map[string]float64{
	"thousand": 1e3,
	"k":        1e3,
	"million":  1e6,
	"mm":       1e6,
	"m":        1e6,
	"billion":  1e9,
	"bn":       1e9,
	"b":        1e9,
}

// firstDollarAmount returns the first dollar amount that starts within
// window characters of the beginning of s.
func firstDollarAmount(s string, window int) (float64, bool) {
	// A match must start inside the window; leave room for it to finish.
	if limit := window*utf8.UTFMax + 64; len(s) > limit {
		s = s[:limit]
	}
	loc := dollarPattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return 0, false
	}
	if utf8.RuneCountInString(s[:loc[0]]) >= window {
		return 0, false
	}

	number := s[loc[2]:loc[3]]
	var scale string
	if loc[4] >= 0 {
		scale = s[loc[4]:loc[5]]
	}
	return toAmount(number, scale)
}

// ParseAmount parses a free-form monetary answer such as "$1.2 million",
// "380,000", "USD 5k" or "2.5bn". Surrounding prose is tolerated; the first
// number in s is used.
func ParseAmount(s string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, ok := toAmount(m[2], m[3])
	if !ok {
		return 0, false
	}
	if m[1] == "-" {
		v = -v
	}
	return v, true
}

func toAmount(number, scale string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if mult, ok := scales[strings.ToLower(scale)]; ok {
		v *= mult
	}
	return v, true
}
