package source

// UTF-16 constants and utf16RuneLen are copied verbatim from the Go 1.23
// standard library's unicode/utf16 package: the build toolchain is pinned to
// go1.21, which predates utf16.RuneLen.
const (
	surr1 = 0xd800
	surr3 = 0xe000

	surrSelf = 0x10000

	maxRune = '\U0010FFFF' // Maximum valid Unicode code point.
)

// utf16RuneLen returns the number of 16-bit words in the UTF-16 encoding of
// the rune. It returns -1 if the rune is not a valid value to encode in
// UTF-16.
func utf16RuneLen(r rune) int {
	switch {
	case 0 <= r && r < surr1, surr3 <= r && r < surrSelf:
		return 1
	case surrSelf <= r && r <= maxRune:
		return 2
	default:
		return -1
	}
}
