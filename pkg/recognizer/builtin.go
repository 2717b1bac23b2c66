package recognizer

import (
	"regexp"
	"strings"
)

// Internal label vocabulary of the built-in recognizers. The anonymizer
// maps these to display labels before redaction.
const (
	LabelEmail             = "EMAIL_ADDRESS"
	LabelPhone             = "PHONE_NUMBER"
	LabelSSN               = "FI_SSN"
	LabelFilename          = "FILENAME"
	LabelIP                = "IP_ADDRESS"
	LabelIBAN              = "IBAN_CODE"
	LabelRegistrationPlate = "FI_REGISTRATION_PLATE"
	LabelAddress           = "ADDRESS"
	LabelProperty          = "REAL_PROPERTY_ID"
	LabelPerson            = "PERSON"
	LabelDate              = "DATE"
	LabelOther             = "OTHER"
	LabelGrantlisted       = "GRANTLISTED"
	LabelCustom            = "CUSTOM"
)

func rule(name, pattern string, score float64) Rule {
	return Rule{Name: name, Regex: regexp.MustCompile(pattern), Score: score}
}

// NewEmail recognizes e-mail addresses.
func NewEmail(language string) *PatternRecognizer {
	return NewPattern("email", language, LabelEmail, []Rule{
		rule("email", `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, 1.0),
	})
}

// NewPhone recognizes Finnish phone numbers in international and local
// formats, such as +35891234567, +358 9 123 4567 and 09 123 4567.
func NewPhone(language string) *PatternRecognizer {
	return NewPattern("phone", language, LabelPhone, []Rule{
		rule("international", `\b(\+?[0-9]{11,12})\b`, 1.0),
		rule("international with spaces", `\b(\+?[0-9]{2,3}\s?[0-9]{2,3}\s?[0-9]{1,3}\s?[0-9]{3}\s?[0-9]{4})\b`, 0.7),
		rule("local 2-1-3-3-4", `\b([0-9]{2,3}\s?[0-9]{1,3}\s?[0-9]{3,4}\s?[0-9]{3,4})\b`, 0.7),
		rule("local 3-4-3", `\b([0-9]{2,3}\s?[0-9]{3,4}\s?[0-9]{3,4})\b`, 0.7),
		rule("local 2-5-3", `\b([0-9]{2,3}\s?[0-9]{3,5}\s?[0-9]{3,5})\b`, 0.6),
		rule("organization number", `\b(\(?[0-9]{2,3}\)?\s?[0-9]{5,6}\)?)\b`, 0.6),
	})
}

// NewSSN recognizes the Finnish personal identity code. A match with too
// many century separators is rejected by the invalidate hook.
func NewSSN(language string) *PatternRecognizer {
	return NewPattern("ssn", language, LabelSSN, []Rule{
		rule("full", `\b([0-3][0-9][0-1][0-9][0-9]{2})([-+A])([0-9]{3})([a-zA-Z0-9])\b`, 1.0),
		rule("partial", `\b([0-3][0-9][0-1][0-9][0-9]{2})([-+A])`, 0.6),
		rule("partially censored", `\b([0-3][0-9][0-1][0-9][0-9]{2})([-+A])?([a-zA-Z]{3,4})?\b`, 0.55),
		rule("incomplete", `\b([0-3][0-9][0-1][0-9][0-9]{2})([-+A])?([0-9]{3})?([a-zA-Z0-9])?\b`, 0.5),
	}, WithInvalidate(func(match string) bool {
		upper := strings.ToUpper(match)
		return strings.Count(upper, "A") > 2 || strings.Count(upper, "-") > 1 || strings.Count(upper, "+") > 1
	}))
}

// NewFilename recognizes common document and image file names and URLs
// pointing at them.
func NewFilename(language string) *PatternRecognizer {
	const ext = `(txt|doc|xls|xlsx|docx|pdf|jpg|png|ppt|pptx)`
	return NewPattern("filename", language, LabelFilename, []Rule{
		rule("file name", `\b(http)?\w+\.`+ext+`\b`, 0.70),
		rule("file url", `\b[A-Za-z0-9]+://[A-Za-z0-9.%_/-]+\.`+ext+`\b[#?]?[A-Za-z0-9%_&=-]*`, 0.75),
	})
}

// NewIP recognizes IPv4 and full-form IPv6 addresses.
func NewIP(language string) *PatternRecognizer {
	return NewPattern("ip", language, LabelIP, []Rule{
		rule("ipv4", `\b((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`, 0.6),
		rule("ipv6", `\b([0-9A-Fa-f]{1,4}:){7}[0-9A-Fa-f]{1,4}\b`, 0.6),
	})
}

// NewIBAN recognizes IBAN account numbers. Matches failing the mod-97
// checksum are rejected by the invalidate hook.
func NewIBAN(language string) *PatternRecognizer {
	return NewPattern("iban", language, LabelIBAN, []Rule{
		rule("iban compact", `\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`, 0.75),
		rule("iban finnish spaced", `\bFI[0-9]{2}(\s?[0-9]{4}){3}\s?[0-9]{2}\b`, 0.85),
	}, WithInvalidate(ibanChecksumFails))
}

// ibanChecksumFails reports whether the candidate IBAN fails the ISO 13616
// mod-97 check.
func ibanChecksumFails(candidate string) bool {
	s := strings.ToUpper(strings.ReplaceAll(candidate, " ", ""))
	if len(s) < 5 {
		return true
	}
	rearranged := s[4:] + s[:4]
	rem := 0
	for _, c := range rearranged {
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return true
		}
	}
	return rem != 1
}

// NewRegistrationPlate recognizes Finnish vehicle registration plates.
func NewRegistrationPlate(language string) *PatternRecognizer {
	return NewPattern("registration_plate", language, LabelRegistrationPlate, []Rule{
		rule("car XXX-000", `\b([A-Za-z]{3})[-]([0-9]{3})\b`, 0.75),
		rule("motorcycle XX-000", `\b([A-Za-z]{2})[-]([0-9]{3})\b`, 0.75),
		rule("diplomat XX-0000", `\b([A-Za-z]{2})[-]([0-9]{4})\b`, 0.5),
		rule("car loose XXX 000", `\b([A-Za-z]{3})[-\s]?([0-9]{3})\b`, 0.5),
	})
}

// NewProperty recognizes Finnish real property identifiers.
func NewProperty(language string) *PatternRecognizer {
	return NewPattern("property_id", language, LabelProperty, []Rule{
		rule("dashed", `\b([0-9]{1,3})[-]([0-9]{1,3})[-]([0-9]{1,4})[-]([0-9]{1,4})\b`, 0.7),
		rule("dashed with suffix", `\b([0-9]{1,3})[-]([0-9]{1,3})[-]([0-9]{1,4})[-]([0-9]{1,4})[-]([0-9A-Za-z]{1,4})\b`, 0.7),
		rule("compact", `\b([0-9]{14,19})\b`, 0.3),
	})
}

// NewAddress recognizes Finnish street addresses by street-name suffix and
// five-digit postal codes. Matches containing a contact-info stopword are
// rejected.
func NewAddress(language string) *PatternRecognizer {
	return NewPattern("address", language, LabelAddress, []Rule{
		rule("street", `(\p{L}+)(katu|tie|kuja|polku|gatan|vägen|väylä)(\s)([0-9]+)?(\s)?(\p{L})?(\s)?([0-9]+)?`, 1.0),
		rule("zip", `\b([0-9]{5})\b`, 0.75),
	}, WithInvalidate(func(match string) bool {
		return strings.Contains(strings.ToLower(match), "hteystieto")
	}))
}

// NewModelFI wraps the external model for Finnish text.
func NewModelFI() *ModelRecognizer {
	return NewModel("model_fi", "fi", []string{LabelPerson, LabelDate}, 0.90)
}

// NewModelEN wraps the external model for English text.
func NewModelEN() *ModelRecognizer {
	return NewModel("model_en", "en", []string{LabelPerson, LabelPhone}, 0.90)
}

// NewAddressTokenPattern recognizes street addresses from model-tagged
// tokens followed by a house-number-like tail such as "3 B 11" or "181".
func NewAddressTokenPattern(language string) *TokenPatternRecognizer {
	named := []string{"PERSON", "LOC", "GPE"}
	multi := []string{"LOC", "GPE", "ORG"}
	return NewTokenPattern(TokenPatternConfig{
		Name:     "address_token",
		Language: language,
		Label:    LabelAddress,
		Sequences: []TokenSequence{
			{Name: "named+cardinal", Rules: []TokenRule{
				{EntityIn: named, Repeat: true},
				{EntityIn: []string{"CARDINAL"}, Repeat: true},
			}},
			{Name: "named+cardinal+unit", Rules: []TokenRule{
				{EntityIn: named, Repeat: true},
				{EntityIn: []string{"CARDINAL"}, Repeat: true},
				{IsAlpha: true, Length: 1},
				{EntityIn: []string{"CARDINAL"}},
			}},
			{Name: "named+cardinal+stair", Rules: []TokenRule{
				{EntityIn: named, Repeat: true},
				{EntityIn: []string{"CARDINAL"}, Repeat: true},
				{IsAlpha: true, Length: 1},
			}},
			{Name: "named+digits+unit", Rules: []TokenRule{
				{EntityIn: named, Repeat: true},
				{IsDigit: true},
				{IsAlpha: true, Length: 1},
				{IsDigit: true},
			}},
			{Name: "named+digits+stair", Rules: []TokenRule{
				{EntityIn: named, Repeat: true},
				{IsDigit: true},
				{IsAlpha: true, Length: 1},
			}},
			{Name: "named+digits", Rules: []TokenRule{
				{EntityIn: named, Repeat: true},
				{IsDigit: true},
			}},
			{Name: "multiword+digits+unit", Rules: []TokenRule{
				{EntityIn: multi, Repeat: true},
				{IsDigit: true},
				{IsAlpha: true, Length: 1},
				{IsDigit: true},
			}},
			{Name: "multiword+digits+stair", Rules: []TokenRule{
				{EntityIn: multi, Repeat: true},
				{IsDigit: true},
				{IsAlpha: true, Length: 1},
			}},
			{Name: "multiword+digits", Rules: []TokenRule{
				{EntityIn: multi, Repeat: true},
				{IsDigit: true},
			}},
		},
		Score:        0.8,
		LeadDenylist: []string{"ainakin", "noin", "yli", "alle"},
		FullSpan:     false,
	})
}
