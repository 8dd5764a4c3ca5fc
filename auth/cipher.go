package auth

// Encrypt applies the fixed +3 substitution cipher used on the wire between
// the coordinator and the auth service. Letters shift within their case,
// digits wrap modulo 10, everything else passes through. This is an obfuscation
// step inherited from the protocol, not a security control.
func Encrypt(input string) string {
	out := make([]byte, len(input))
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c+3-'A')%26
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c+3-'a')%26
		case c >= '0' && c <= '9':
			out[i] = '0' + (c+3-'0')%10
		default:
			out[i] = c
		}
	}
	return string(out)
}
