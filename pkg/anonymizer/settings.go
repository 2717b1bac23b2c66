// Package anonymizer contains the orchestration core: instance settings,
// the recognizer registry with its per-profile cache, span conflict
// resolution, and the Anonymize operation that ties detection, relabeling,
// redaction and statistics together.
package anonymizer

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/recognizer"
)

// SupportedLanguages is the fixed set of languages the built-in
// recognizers and the model wrappers cover.
var SupportedLanguages = []string{"fi", "en"}

// Names of the standard recognizers, as used in the settings file and the
// registry.
const (
	RecognizerGrantlist         = "grantlist"
	RecognizerBlocklist         = "blocklist"
	RecognizerEmail             = "email"
	RecognizerPhone             = "phone"
	RecognizerSSN               = "ssn"
	RecognizerFilename          = "filename"
	RecognizerIP                = "ip"
	RecognizerIBAN              = "iban"
	RecognizerRegistrationPlate = "registration_plate"
	RecognizerProperty          = "property_id"
	RecognizerAddress           = "address"
	RecognizerModelFI           = "model_fi"
	RecognizerModelEN           = "model_en"
	RecognizerAddressToken      = "address_token"
)

// DefaultRecognizers is the standard set. The street-address regex
// recognizer is not in it; it over-matches on free-form feedback text and
// is enabled per deployment.
var DefaultRecognizers = []string{
	RecognizerGrantlist,
	RecognizerBlocklist,
	RecognizerEmail,
	RecognizerPhone,
	RecognizerSSN,
	RecognizerFilename,
	RecognizerIP,
	RecognizerIBAN,
	RecognizerRegistrationPlate,
	RecognizerProperty,
	RecognizerModelFI,
	RecognizerModelEN,
	RecognizerAddressToken,
}

// AllRecognizers additionally enables the street-address regex recognizer.
var AllRecognizers = append(slices.Clone(DefaultRecognizers), RecognizerAddress)

// DefaultMaskMappings maps internal labels to the Finnish display
// vocabulary used in redaction markers and statistics keys.
var DefaultMaskMappings = map[string]string{
	recognizer.LabelAddress:           "OSOITE",
	recognizer.LabelEmail:             "SÄHKÖPOSTI",
	recognizer.LabelRegistrationPlate: "REKISTERINUMERO",
	recognizer.LabelPhone:             "PUHELIN",
	recognizer.LabelSSN:               "HENKILÖTUNNUS",
	recognizer.LabelIP:                "IP-OSOITE",
	recognizer.LabelIBAN:              "TILINUMERO",
	recognizer.LabelOther:             "KIELTOLISTA_TUNNISTE",
	recognizer.LabelProperty:          "KIINTEISTÖTUNNUS",
	recognizer.LabelPerson:            "NIMI",
	recognizer.LabelGrantlisted:       "GRANTLISTED",
	recognizer.LabelFilename:          "TIEDOSTONIMI",
}

// DefaultDebugMaskMappings is the display vocabulary of debug mode, where
// labels additionally carry the detection score.
var DefaultDebugMaskMappings = map[string]string{
	recognizer.LabelAddress:           "OSOITE",
	recognizer.LabelEmail:             "SÄHKÖPOSTI",
	recognizer.LabelRegistrationPlate: "REKISTERINUMERO",
	recognizer.LabelPhone:             "PUHELIN",
	recognizer.LabelSSN:               "HENKILÖTUNNUS",
	recognizer.LabelIP:                "IP-OSOITE",
	recognizer.LabelIBAN:              "TILINUMERO",
	recognizer.LabelOther:             "TUNNISTE",
	recognizer.LabelProperty:          "KIINTEISTÖTUNNUS",
	recognizer.LabelPerson:            "SPACY_NIMI",
	recognizer.LabelGrantlisted:       "GRANTLISTED",
	recognizer.LabelFilename:          "TIEDOSTONIMI",
}

// DefaultScoreThreshold drops spans the recognizers are less than half
// sure about.
const DefaultScoreThreshold = 0.5

// Settings are the instance-level knobs of an Anonymizer. The zero value
// is not usable; start from DefaultSettings or LoadSettings.
type Settings struct {
	// Languages to analyze by default, a subset of SupportedLanguages.
	Languages []string `yaml:"languages"`
	// ScoreThreshold is the minimum span score kept for resolution.
	ScoreThreshold float64 `yaml:"score_threshold"`
	// Debug switches to the debug display vocabulary and appends scores to
	// output labels.
	Debug bool `yaml:"debug"`
	// Recognizers enables standard recognizers by name.
	Recognizers []string `yaml:"recognizers"`
	// MaskMappings overrides the internal-to-display label mapping.
	MaskMappings map[string]string `yaml:"mask_mappings"`
	// DebugMaskMappings overrides the debug-mode mapping.
	DebugMaskMappings map[string]string `yaml:"debug_mask_mappings"`
	// ProtectedLabels are internal labels whose text is never redacted.
	ProtectedLabels []string `yaml:"protected_labels"`
	// ListThreshold is the fuzzy similarity floor of list recognizers.
	ListThreshold float64 `yaml:"list_threshold"`
	// NERServiceURL is the base URL of the external model service; empty
	// disables model-backed recognition.
	NERServiceURL string `yaml:"ner_service_url"`
}

// DefaultSettings returns the built-in configuration. Maps are cloned so
// a loaded settings file cannot reach the package-level defaults.
func DefaultSettings() Settings {
	return Settings{
		Languages:         []string{"fi", "en"},
		ScoreThreshold:    DefaultScoreThreshold,
		Recognizers:       slices.Clone(DefaultRecognizers),
		MaskMappings:      maps.Clone(DefaultMaskMappings),
		DebugMaskMappings: maps.Clone(DefaultDebugMaskMappings),
		ProtectedLabels:   []string{recognizer.LabelGrantlisted},
		ListThreshold:     recognizer.DefaultListThreshold,
	}
}

// LoadSettings reads a YAML settings file over the defaults. A missing
// file returns the defaults; environment references in the file are
// expanded before parsing.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parsing settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}

// Validate normalizes the settings and rejects out-of-range values.
func (s *Settings) Validate() error {
	if s.ScoreThreshold < 0 || s.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold %v outside [0,1]", s.ScoreThreshold)
	}
	if s.ListThreshold < 0 || s.ListThreshold > 1 {
		return fmt.Errorf("list_threshold %v outside [0,1]", s.ListThreshold)
	}
	var langs []string
	for _, lang := range s.Languages {
		if slices.Contains(SupportedLanguages, lang) {
			langs = append(langs, lang)
		}
	}
	if len(langs) == 0 {
		return fmt.Errorf("languages %v contain none of the supported %v", s.Languages, SupportedLanguages)
	}
	s.Languages = langs
	if s.MaskMappings == nil {
		s.MaskMappings = maps.Clone(DefaultMaskMappings)
	}
	if s.DebugMaskMappings == nil {
		s.DebugMaskMappings = maps.Clone(DefaultDebugMaskMappings)
	}
	return nil
}

// Masks returns the active display mapping.
func (s *Settings) Masks() map[string]string {
	if s.Debug {
		return s.DebugMaskMappings
	}
	return s.MaskMappings
}

func (s *Settings) enabled(name string) bool {
	return slices.Contains(s.Recognizers, name)
}

func (s *Settings) protected(label string) bool {
	return slices.Contains(s.ProtectedLabels, label)
}
