package encoding

// utf8Decoder implements the Decoder contract for UTF-8.
type utf8Decoder struct{}

func (utf8Decoder) Name() string             { return "utf-8" }
func (utf8Decoder) MaxCodepointLength() int  { return 4 }

func (utf8Decoder) NextCodepoint(data []byte, pos, end int) (Codepoint, int, bool) {
	return decodeStep(data, pos, end, func() (Codepoint, int, bool) {
		b0 := data[pos]

		switch {
		case b0 < 0x80:
			return Codepoint(b0), 1, true

		case b0&0xE0 == 0xC0:
			if pos+1 >= end || !isCont(data[pos+1]) {
				return 0, 0, false
			}
			cp := (Codepoint(b0&0x1F) << 6) | Codepoint(data[pos+1]&0x3F)
			if cp < 0x80 {
				return 0, 0, false // overlong encoding
			}
			return cp, 2, true

		case b0&0xF0 == 0xE0:
			if pos+2 >= end || !isCont(data[pos+1]) || !isCont(data[pos+2]) {
				return 0, 0, false
			}
			cp := (Codepoint(b0&0x0F) << 12) | (Codepoint(data[pos+1]&0x3F) << 6) | Codepoint(data[pos+2]&0x3F)
			if cp < 0x800 || (cp >= 0xD800 && cp <= 0xDFFF) {
				return 0, 0, false // overlong or surrogate
			}
			return cp, 3, true

		case b0&0xF8 == 0xF0:
			if pos+3 >= end || !isCont(data[pos+1]) || !isCont(data[pos+2]) || !isCont(data[pos+3]) {
				return 0, 0, false
			}
			cp := (Codepoint(b0&0x07) << 18) | (Codepoint(data[pos+1]&0x3F) << 12) |
				(Codepoint(data[pos+2]&0x3F) << 6) | Codepoint(data[pos+3]&0x3F)
			if cp < 0x10000 || cp > 0x10FFFF {
				return 0, 0, false
			}
			return cp, 4, true

		default:
			return 0, 0, false
		}
	})
}

func isCont(b byte) bool { return b&0xC0 == 0x80 }

func (utf8Decoder) EncodeCodepoint(cp Codepoint) []byte {
	switch {
	case cp < 0x80:
		return []byte{byte(cp)}
	case cp < 0x800:
		return []byte{
			byte(0xC0 | (cp >> 6)),
			byte(0x80 | (cp & 0x3F)),
		}
	case cp < 0x10000:
		return []byte{
			byte(0xE0 | (cp >> 12)),
			byte(0x80 | ((cp >> 6) & 0x3F)),
			byte(0x80 | (cp & 0x3F)),
		}
	default:
		return []byte{
			byte(0xF0 | (cp >> 18)),
			byte(0x80 | ((cp >> 12) & 0x3F)),
			byte(0x80 | ((cp >> 6) & 0x3F)),
			byte(0x80 | (cp & 0x3F)),
		}
	}
}
