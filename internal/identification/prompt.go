package identification

import (
	"fmt"
	"strings"

	"musicscan/internal/scan"
)

// ExtractionSystemPrompt is sent with every extraction request.
const ExtractionSystemPrompt = `You read printed and etched text from photographs of a compact disc, its inlay and its case.

Rules:
- Report ONLY text that is physically visible in the photos. Never infer a value from your knowledge of the release.
- If a field is not clearly legible, return null for it. A missing value is always better than a guess.
- Copy values exactly as printed, including spaces and punctuation.
- For every field you return, name the photo it came from in "<field>_source" using one of: front, back_cover, disc_hub, other.

Fields:
- barcode: the EAN/UPC number printed under the barcode stripes.
- catno: the label's catalog number (often on the spine, back cover or disc face). Never copy the barcode digits here.
- matrix: the matrix/runout text etched or stamped on the clear inner ring of the disc.
- ifpi_master: the IFPI mastering SID code (starts with "IFPI L").
- ifpi_mould: the IFPI mould SID code (starts with "IFPI" followed by digits/letters, not "L").
- label: the record label name.
- country: the country of manufacture or release as printed ("Made in ...", "Printed in ...").
- year_hint: a four digit year, only when it appears in a copyright or phonographic line (©, ℗, (c), (p), "copyright").
- year_hint_context: the full copyright/phonographic line the year was taken from.
- artist, title: the artist and album title as printed on the front cover.

Respond with a single JSON object containing exactly these keys:
barcode, barcode_source, catno, catno_source, matrix, matrix_source, ifpi_master, ifpi_master_source,
ifpi_mould, ifpi_mould_source, label, label_source, country, country_source, year_hint, year_hint_source,
year_hint_context, artist, title.`

func buildExtractionPrompt(images []scan.Image) string {
	var builder strings.Builder
	builder.WriteString("Photos in order:\n")
	for i, image := range images {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, image.Kind)
	}
	builder.WriteString("Extract the fields from these photos.")
	return builder.String()
}
