package anonymizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-of-Helsinki/text-anonymizer/pkg/recognizer"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, []string{"fi", "en"}, s.Languages)
	assert.Equal(t, 0.5, s.ScoreThreshold)
	assert.False(t, s.Debug)
	assert.NotContains(t, s.Recognizers, RecognizerAddress)
	assert.Contains(t, s.Recognizers, RecognizerPhone)
	assert.Equal(t, []string{recognizer.LabelGrantlisted}, s.ProtectedLabels)
	assert.Equal(t, "NIMI", s.MaskMappings[recognizer.LabelPerson])
	assert.Equal(t, "SPACY_NIMI", s.DebugMaskMappings[recognizer.LabelPerson])
}

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsOverrides(t *testing.T) {
	t.Setenv("NER_URL", "http://localhost:8080")
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
languages: [fi]
score_threshold: 0.7
debug: true
ner_service_url: ${NER_URL}
`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"fi"}, s.Languages)
	assert.Equal(t, 0.7, s.ScoreThreshold)
	assert.True(t, s.Debug)
	assert.Equal(t, "http://localhost:8080", s.NERServiceURL)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultSettings().Recognizers, s.Recognizers)
	assert.Equal(t, DefaultSettings().MaskMappings, s.MaskMappings)
}

func TestLoadSettingsMaskOverrideKeepsDefaultsIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mask_mappings:
  PERSON: HENKILÖ
`), 0o644))

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "HENKILÖ", s.MaskMappings[recognizer.LabelPerson])
	assert.Equal(t, "PUHELIN", s.MaskMappings[recognizer.LabelPhone])
	assert.Equal(t, "NIMI", DefaultMaskMappings[recognizer.LabelPerson])
}

func TestLoadSettingsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("languages: [fi\n"), 0o644))

	s, err := LoadSettings(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsRejectsOutOfRangeThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("score_threshold: 1.5\n"), 0o644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestValidateFiltersUnsupportedLanguages(t *testing.T) {
	s := DefaultSettings()
	s.Languages = []string{"fi", "sv"}
	require.NoError(t, s.Validate())
	assert.Equal(t, []string{"fi"}, s.Languages)

	s.Languages = []string{"sv", "de"}
	assert.Error(t, s.Validate())
}

func TestMasksFollowsDebug(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "NIMI", s.Masks()[recognizer.LabelPerson])
	s.Debug = true
	assert.Equal(t, "SPACY_NIMI", s.Masks()[recognizer.LabelPerson])
}

func TestLabelize(t *testing.T) {
	masks := map[string]string{"PERSON": "NIMI"}

	assert.Equal(t, "NIMI", labelize("PERSON", 0.9, masks, false))
	assert.Equal(t, "NIMI_0.90", labelize("PERSON", 0.9, masks, true))
	assert.Equal(t, "CUSTOM", labelize("CUSTOM", 0.8, masks, false))
	assert.Equal(t, "CUSTOM_0.85", labelize("CUSTOM", 0.85, masks, true))
}
