package identifier

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

// RedactionMarker replaces every checksum-valid SVNR in outbound text.
const RedactionMarker = "[REDACTED SVNR]"

// ErrNoCheckDigit is returned by Generate when the serial and birth date
// produce a remainder of 10, which has no single-digit check value.
var ErrNoCheckDigit = errors.New("svnr: no check digit for serial and birth date")

// Weight of every digit position. The check digit itself sits at index 3.
var weights = [10]int{3, 7, 9, 0, 5, 8, 4, 2, 1, 6}

const (
	svnrLength   = 10
	checkDigitAt = 3
	groupSplit   = 4
)

// Detect returns every SVNR-shaped substring of text, left to right and
// non-overlapping. Accepted shapes are ten contiguous digits ("1237010180")
// or four and six digits separated by one space ("1237 010180"). A candidate
// must not touch a letter or digit on either side.
func Detect(text string) []models.IdentifierMatch {
	var matches []models.IdentifierMatch

	for i := 0; i < len(text); {
		if !isDigit(text[i]) || !boundaryBefore(text, i) {
			i++
			continue
		}

		end, digits, ok := matchAt(text, i)
		if !ok {
			i++
			continue
		}

		matches = append(matches, models.IdentifierMatch{
			Start:         i,
			End:           end,
			Value:         text[i:end],
			ChecksumValid: ValidChecksum(digits),
		})
		i = end
	}

	return matches
}

// ContainsValid reports whether text holds at least one checksum-valid SVNR.
func ContainsValid(text string) bool {
	for _, m := range Detect(text) {
		if m.ChecksumValid {
			return true
		}
	}
	return false
}

// Redact replaces every checksum-valid match with marker and returns the
// sanitized text with the number of replacements. Checksum-invalid
// candidates are left untouched.
func Redact(text string, marker string) (string, int) {
	matches := Detect(text)
	if len(matches) == 0 {
		return text, 0
	}

	var sb strings.Builder
	sb.Grow(len(text))

	last, count := 0, 0
	for _, m := range matches {
		if !m.ChecksumValid {
			continue
		}
		sb.WriteString(text[last:m.Start])
		sb.WriteString(marker)
		last = m.End
		count++
	}
	sb.WriteString(text[last:])

	return sb.String(), count
}

// ValidChecksum validates a ten digit SVNR without separators.
func ValidChecksum(digits string) bool {
	if len(digits) != svnrLength || digits[0] == '0' {
		return false
	}

	sum := 0
	for i := 0; i < svnrLength; i++ {
		if !isDigit(digits[i]) {
			return false
		}
		sum += int(digits[i]-'0') * weights[i]
	}

	return sum%11 == int(digits[checkDigitAt]-'0')
}

// Generate builds a checksum-valid SVNR from a three digit serial number
// (100-999) and a birth date.
func Generate(serial int, birthDate time.Time) (string, error) {
	if serial < 100 || serial > 999 {
		return "", fmt.Errorf("svnr: serial %d out of range [100, 999]", serial)
	}

	body := fmt.Sprintf("%03d0%s", serial, birthDate.Format("020106"))

	sum := 0
	for i := 0; i < svnrLength; i++ {
		sum += int(body[i]-'0') * weights[i]
	}

	check := sum % 11
	if check == 10 {
		return "", ErrNoCheckDigit
	}

	return body[:checkDigitAt] + string(rune('0'+check)) + body[checkDigitAt+1:], nil
}

func matchAt(text string, i int) (int, string, bool) {
	// contiguous
	if end := i + svnrLength; end <= len(text) && allDigits(text[i:end]) && boundaryAfter(text, end) {
		return end, text[i:end], true
	}

	// grouped 4+6
	end := i + svnrLength + 1
	if end > len(text) || text[i+groupSplit] != ' ' {
		return 0, "", false
	}
	head, tail := text[i:i+groupSplit], text[i+groupSplit+1:end]
	if !allDigits(head) || !allDigits(tail) || !boundaryAfter(text, end) {
		return 0, "", false
	}

	return end, head + tail, true
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
