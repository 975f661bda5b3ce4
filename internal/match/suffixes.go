package match

// derivationalSuffixes lists endings that turn a base word into a derived
// form rather than a compound: "joyful" derives from "joy", it does not
// compound it.
var derivationalSuffixes = map[string]struct{}{
	"ful": {}, "fully": {},
	"ness": {}, "nesses": {},
	"ly": {},
	"ous": {}, "ously": {}, "ousness": {},
	"ish": {},
	"tion": {}, "tions": {},
	"sion": {}, "sions": {},
	"al": {}, "ial": {}, "ials": {}, "ially": {},
	"ive": {}, "ives": {}, "ively": {},
	"ment": {}, "ments": {},
	"less": {}, "lessly": {}, "lessness": {},
	"dom": {}, "hood": {},
	"ship": {}, "ships": {},
	"ity": {}, "ities": {},
	"ize": {}, "ized": {}, "izes": {}, "izing": {},
	"ise": {}, "ised": {}, "ises": {}, "ising": {},
	"ify": {}, "ified": {}, "ifying": {},
	"ate": {}, "ated": {}, "ating": {},
	"ation": {}, "ations": {},
	"ing": {}, "ings": {},
	"ed": {},
	"er": {}, "ers": {},
	"est": {},
	"en": {}, "ens": {},
	"ward": {}, "wards": {},
	"wise": {},
}

func isDerivationalSuffix(s string) bool {
	_, ok := derivationalSuffixes[s]
	return ok
}

// isConsonant treats every lowercase letter outside aeiou as a consonant,
// including y.
func isConsonant(c byte) bool {
	if c < 'a' || c > 'z' {
		return false
	}
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	}
	return true
}
