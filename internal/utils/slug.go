package utils

import (
	"strings"
	"unicode"

	"github.com/fiam/gounidecode/unidecode"
)

// Slugify turns a display label into the stored value of a room type or
// amenity: "Salle de Réunion" -> "salle_de_reunion".  Accents are folded to
// ASCII, anything outside [a-z0-9] and whitespace is dropped, whitespace
// runs become a single underscore.
func Slugify(label string) string {
	s := strings.ToLower(unidecode.Unidecode(label))
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}
