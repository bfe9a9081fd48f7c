package http

// appendUint appends the decimal form of n to dst without going through strconv.
func appendUint(dst []byte, n int64) []byte {
	if n <= 0 {
		return append(dst, '0')
	}

	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = '0' + byte(n%10)
		n /= 10
	}

	return append(dst, buf[i:]...)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
