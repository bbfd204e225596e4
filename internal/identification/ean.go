package identification

// validEAN13 checks the EAN-13 check digit of a 13 digit string.
func validEAN13(digits string) bool {
	if len(digits) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return int(digits[12]-'0') == check
}
