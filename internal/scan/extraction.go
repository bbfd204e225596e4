package scan

// Field names a printed identifier read from the photos.
type Field string

const (
	FieldBarcode    Field = "barcode"
	FieldCatNo      Field = "catno"
	FieldMatrix     Field = "matrix"
	FieldIFPIMaster Field = "ifpi_master"
	FieldIFPIMould  Field = "ifpi_mould"
	FieldLabel      Field = "label"
	FieldCountry    Field = "country"
	FieldYearHint   Field = "year_hint"
)

// Fields lists every extracted field in a stable order.
func Fields() []Field {
	return []Field{
		FieldBarcode,
		FieldCatNo,
		FieldMatrix,
		FieldIFPIMaster,
		FieldIFPIMould,
		FieldLabel,
		FieldCountry,
		FieldYearHint,
	}
}

// Extraction is one field read from the images. A nil NormalizedValue means
// the field was absent or rejected.
type Extraction struct {
	Field           Field     `json:"field"`
	RawValue        string    `json:"rawValue"`
	NormalizedValue *string   `json:"normalizedValue"`
	Confidence      float64   `json:"confidence"`
	Source          ImageKind `json:"source,omitempty"`
}

// Value returns the normalized value or the empty string.
func (e Extraction) Value() string {
	if e.NormalizedValue == nil {
		return ""
	}
	return *e.NormalizedValue
}

// Present reports whether the field survived normalization.
func (e Extraction) Present() bool {
	return e.NormalizedValue != nil
}

// Extractions indexes a run's extractions by field.
type Extractions []Extraction

// Get returns the extraction for field, if any.
func (list Extractions) Get(field Field) (Extraction, bool) {
	for _, e := range list {
		if e.Field == field {
			return e, true
		}
	}
	return Extraction{}, false
}

// Value returns the normalized value for field or the empty string.
func (list Extractions) Value(field Field) string {
	e, ok := list.Get(field)
	if !ok {
		return ""
	}
	return e.Value()
}

// Has reports whether field has a normalized value.
func (list Extractions) Has(field Field) bool {
	e, ok := list.Get(field)
	return ok && e.Present()
}

// HasPressingEvidence reports whether a matrix or IFPI code survived normalization.
func (list Extractions) HasPressingEvidence() bool {
	return list.Has(FieldMatrix) || list.Has(FieldIFPIMaster) || list.Has(FieldIFPIMould)
}
