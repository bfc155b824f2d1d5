package device

import (
	"math/rand"
	"strconv"
	"strings"
)

const (
	encodedPasswordLength = 321
	passwordAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	tensPosition = 123
	onesPosition = 289
)

// EncodePassword scrambles a password the way the gs1900 login page does.
// Positions are 1-based: every 5th position carries the next password
// character counted from the end, positions 123 and 289 carry the tens and
// ones digit of the length, everything else is random filler.
func EncodePassword(password string) string {
	chars := []rune(password)
	length := len(chars)
	remaining := length

	var b strings.Builder
	b.Grow(encodedPasswordLength)
	for i := 1; i <= encodedPasswordLength; i++ {
		switch {
		case i%5 == 0 && remaining > 0:
			remaining--
			b.WriteRune(chars[remaining])
		case i == tensPosition:
			b.WriteString(strconv.Itoa(length / 10 % 10))
		case i == onesPosition:
			b.WriteString(strconv.Itoa(length % 10))
		default:
			b.WriteByte(passwordAlphabet[rand.Intn(len(passwordAlphabet))])
		}
	}
	return b.String()
}
