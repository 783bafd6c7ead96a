package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var ErrInvalidPhoneFormat = eris.New("normalize: invalid phone format")

// phoneTokenRe finds North American numbers inside free text (search snippets,
// listing blurbs). Area code and exchange cannot start with 0 or 1.
var phoneTokenRe = regexp.MustCompile(`(?:\+?1[-. ]?)?\(?([2-9][0-9]{2})\)?[-. ]?([2-9][0-9]{2})[-. ]?([0-9]{4})\b`)

// NormalizePhone returns raw in "(XXX) XXX-XXXX" form. Ten digits are required,
// or eleven with a leading country code 1.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", eris.Wrapf(ErrInvalidPhoneFormat, "phone %q has %d significant digits", raw, len(digits))
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:]), nil
}

// FindPhone returns the first phone-shaped token in text, normalised.
func FindPhone(text string) (string, bool) {
	m := phoneTokenRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return fmt.Sprintf("(%s) %s-%s", m[1], m[2], m[3]), true
}
