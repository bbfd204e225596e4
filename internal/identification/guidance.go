package identification

import "musicscan/internal/scan"

// Missing field names reported to the caller.
const (
	missingMatrix  = "matrix"
	missingIFPI    = "ifpi"
	missingBarcode = "barcode"
	missingCatNo   = "catno"
)

var photoInstructions = map[string]string{
	missingMatrix: "Photograph the clear inner ring of the disc (playing side up) at an angle of about 30 degrees " +
		"with a single light source from the side so the etched matrix text catches the light. Fill the frame with the hub.",
	missingIFPI: "Take a close-up of the inner ring on both sides of the disc. The IFPI codes are tiny (\"IFPI L...\" " +
		"near the matrix, \"IFPI ....\" in the mould area); tilt the disc until they reflect and avoid flash glare.",
	missingBarcode: "Photograph the back cover straight on with the barcode and the digits under it in sharp focus. " +
		"If the barcode is on a sticker or the shrink wrap, include that too.",
	missingCatNo: "Photograph the spine and the bottom edge of the back cover, where the catalog number is usually " +
		"printed, and the printed face of the disc near the label logo.",
}

// MissingFields lists the decisive identifiers that could not be read.
func MissingFields(fields scan.Extractions) []string {
	missing := make([]string, 0, 4)
	if !fields.Has(scan.FieldMatrix) {
		missing = append(missing, missingMatrix)
	}
	if !fields.Has(scan.FieldIFPIMaster) && !fields.Has(scan.FieldIFPIMould) {
		missing = append(missing, missingIFPI)
	}
	if !fields.Has(scan.FieldBarcode) {
		missing = append(missing, missingBarcode)
	}
	if !fields.Has(scan.FieldCatNo) {
		missing = append(missing, missingCatNo)
	}
	return missing
}

// PhotoGuidance returns one photography instruction per missing field.
func PhotoGuidance(missing []string) []scan.PhotoGuidance {
	guidance := make([]scan.PhotoGuidance, 0, len(missing))
	for _, field := range missing {
		instruction, ok := photoInstructions[field]
		if !ok {
			continue
		}
		guidance = append(guidance, scan.PhotoGuidance{Field: field, Instruction: instruction})
	}
	return guidance
}
