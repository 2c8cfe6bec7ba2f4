package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ParseOptions controls how numeric cells are recognised.
type ParseOptions struct {
	// DecimalSeparator; 0 auto-detects per value.
	DecimalSeparator rune
	// ThousandsSeparator; 0 means none when DecimalSeparator is set,
	// and auto-detection among ',' '.' ' ' otherwise.
	ThousandsSeparator rune
}

// DefaultParseOptions matches plain CSV exports: '.' decimals, no grouping.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{DecimalSeparator: '.'}
}

// missingTokens is the default NA set of pandas.read_csv. Cells match
// exactly; surrounding whitespace makes a cell a value.
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// ParseNumber parses a cell as a finite float64.
func ParseNumber(s string, opt ParseOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	unsigned := strings.TrimLeft(raw, "+-")
	if strings.HasPrefix(unsigned, "0x") || strings.HasPrefix(unsigned, "0X") {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		dec, thou = detectSeparators(raw, thou)
		if thou == 0 {
			for _, sep := range []rune{',', '.', ' '} {
				if sep != dec {
					raw = strings.ReplaceAll(raw, string(sep), "")
				}
			}
		}
	}
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// detectSeparators picks the decimal separator of a single value. An explicit
// thousands separator fixes the decimal to the other of ',' and '.'.
func detectSeparators(raw string, thou rune) (dec, outThou rune) {
	switch thou {
	case ',':
		return '.', thou
	case '.':
		return ',', thou
	}
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0 && thou == 0:
		if cpos > dpos {
			return ',', '.'
		}
		return '.', ','
	case cpos > dpos:
		return ',', thou
	default:
		return '.', thou
	}
}
