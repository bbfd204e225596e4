package identification

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"musicscan/internal/scan"
)

// Confidence assigned to normalized values.
const (
	confidenceValidEAN   = 0.95
	confidenceInvalidEAN = 0.7
	confidenceBarcode    = 0.8
	confidenceCode       = 0.9
	confidenceText       = 0.85
	confidenceYear       = 0.9
	confidenceRejected   = 0

	minBarcodeDigits    = 8
	barcodeLikeDigitRun = 12
)

var (
	copyrightMarker = regexp.MustCompile(`(?i)(©|℗|\(c\)|\(p\)|copyright|phonographic)`)
	yearPattern     = regexp.MustCompile(`\b(19[0-9]{2}|20[0-9]{2})\b`)
	bareYear        = regexp.MustCompile(`^[0-9]{4}$`)
)

// Normalize cleans every field read by the extractor and applies the
// cross-field guards. Rejections are recorded in audit and leave the
// normalized value nil.
func Normalize(parsed ParsedExtraction, audit *scan.AuditLog) scan.Extractions {
	out := make(scan.Extractions, 0, len(parsed.Fields))
	index := make(map[scan.Field]int, len(parsed.Fields))

	for _, field := range scan.Fields() {
		raw, ok := parsed.Fields[field]
		if !ok || strings.TrimSpace(raw.Value) == "" {
			continue
		}
		extraction := normalizeField(field, raw, parsed.YearContext, audit)
		index[field] = len(out)
		out = append(out, extraction)
	}

	barcodeRaw := digitsOnly(parsed.Raw(scan.FieldBarcode))
	barcode := ""
	if i, ok := index[scan.FieldBarcode]; ok {
		barcode = out[i].Value()
	}

	if i, ok := index[scan.FieldCatNo]; ok && out[i].Present() && barcodeRaw != "" {
		if digitsOnly(out[i].Value()) == barcodeRaw {
			audit.Append("catno_rejected", fmt.Sprintf("catalog number %q repeats the barcode digits %s", out[i].RawValue, barcodeRaw))
			out[i] = rejected(out[i])
		}
	}
	if i, ok := index[scan.FieldMatrix]; ok && out[i].Present() && barcode != "" {
		if strings.Contains(digitsOnly(out[i].Value()), barcode) {
			audit.Append("matrix_rejected", fmt.Sprintf("matrix %q contains the barcode digits %s", out[i].RawValue, barcode))
			out[i] = rejected(out[i])
		}
	}
	return out
}

func normalizeField(field scan.Field, raw RawField, yearContext string, audit *scan.AuditLog) scan.Extraction {
	extraction := scan.Extraction{Field: field, RawValue: raw.Value, Source: raw.Source}
	reject := func(reason string) scan.Extraction {
		audit.Append(string(field)+"_rejected", fmt.Sprintf("%q: %s", raw.Value, reason))
		return rejected(extraction)
	}

	switch field {
	case scan.FieldBarcode:
		digits := digitsOnly(raw.Value)
		if len(digits) < minBarcodeDigits {
			return reject(fmt.Sprintf("only %d digits", len(digits)))
		}
		extraction.Confidence = confidenceBarcode
		if len(digits) == 13 {
			extraction.Confidence = confidenceInvalidEAN
			if validEAN13(digits) {
				extraction.Confidence = confidenceValidEAN
			} else {
				audit.Append("barcode_checksum", fmt.Sprintf("%s fails the EAN-13 check digit; kept with reduced confidence", digits))
			}
		}
		return withValue(extraction, digits)

	case scan.FieldCatNo:
		value := collapseWhitespace(raw.Value)
		if compact := stripWhitespace(value); len(compact) >= barcodeLikeDigitRun && digitsOnly(compact) == compact {
			return reject("purely numeric with barcode length")
		}
		extraction.Confidence = confidenceCode
		return withValue(extraction, value)

	case scan.FieldMatrix:
		value := collapseWhitespace(raw.Value)
		if longestDigitRun(value) >= barcodeLikeDigitRun && !hasLetter(value) {
			return reject("barcode-like digit run without letters")
		}
		extraction.Confidence = confidenceCode
		return withValue(extraction, value)

	case scan.FieldIFPIMaster, scan.FieldIFPIMould:
		value := strings.ToUpper(stripWhitespace(raw.Value))
		if value == "" {
			return reject("empty after normalization")
		}
		extraction.Confidence = confidenceCode
		return withValue(extraction, value)

	case scan.FieldLabel, scan.FieldCountry:
		value := collapseWhitespace(raw.Value)
		extraction.Confidence = confidenceText
		return withValue(extraction, value)

	case scan.FieldYearHint:
		year, reason := normalizeYear(raw.Value, yearContext)
		if year == "" {
			return reject(reason)
		}
		extraction.Confidence = confidenceYear
		return withValue(extraction, year)

	default:
		return reject("unknown field")
	}
}

// normalizeYear accepts a four digit year only when it comes from a
// copyright or phonographic line.
func normalizeYear(raw, context string) (string, string) {
	raw = strings.TrimSpace(raw)
	line := strings.TrimSpace(context)
	if line == "" {
		line = raw
	}
	if !copyrightMarker.MatchString(line) {
		return "", "no copyright line"
	}
	if bareYear.MatchString(raw) {
		if !strings.Contains(line, raw) {
			return "", "year not present in the copyright line"
		}
		if !yearPattern.MatchString(raw) {
			return "", "implausible year"
		}
		return raw, ""
	}
	loc := copyrightMarker.FindStringIndex(line)
	if match := yearPattern.FindString(line[loc[1]:]); match != "" {
		return match, ""
	}
	return "", "no four digit year after the copyright marker"
}

// YearValue parses a normalized year hint.
func YearValue(value string) int {
	year, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return year
}

func withValue(extraction scan.Extraction, value string) scan.Extraction {
	extraction.NormalizedValue = &value
	return extraction
}

func rejected(extraction scan.Extraction) scan.Extraction {
	extraction.NormalizedValue = nil
	extraction.Confidence = confidenceRejected
	return extraction
}
