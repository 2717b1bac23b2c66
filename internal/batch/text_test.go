package batch

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeText(t *testing.T) {
	r := newRunner(t)

	input := "Matti Meikäläinen kirjoitti palautteen.\n" +
		"Hän soitti numerosta 0401234567.\n" +
		"\n" +
		"Toinen kappale ilman tunnisteita.\n"
	var out bytes.Buffer

	summary, err := r.AnonymizeText(context.Background(), strings.NewReader(input), &out, TextOptions{})
	require.NoError(t, err)

	want := "<NIMI> kirjoitti palautteen. Hän soitti numerosta <PUHELIN>.\n" +
		"Toinen kappale ilman tunnisteita.\n"
	assert.Equal(t, want, out.String())

	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 2, summary.Anonymized)
	assert.Equal(t, map[string]int{"NIMI": 1, "PUHELIN": 1}, summary.Statistics)
}

func TestAnonymizeTextJoinsLinesWithinParagraph(t *testing.T) {
	r := newRunner(t)

	input := "Matti\nMeikäläinen soitti.\n"
	var out bytes.Buffer

	_, err := r.AnonymizeText(context.Background(), strings.NewReader(input), &out, TextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "<NIMI> soitti.\n", out.String())
}

func TestAnonymizeTextCollapsesWhitespace(t *testing.T) {
	r := newRunner(t)

	input := "Paljon   välilyöntejä    tässä.\n"
	var out bytes.Buffer

	_, err := r.AnonymizeText(context.Background(), strings.NewReader(input), &out, TextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Paljon välilyöntejä tässä.\n", out.String())
}

func TestAnonymizeTextSeparator(t *testing.T) {
	r := newRunner(t)

	input := "eka kappale\n\ntoka kappale\n"
	var out bytes.Buffer

	_, err := r.AnonymizeText(context.Background(), strings.NewReader(input), &out, TextOptions{
		Separator: "---",
	})
	require.NoError(t, err)
	assert.Equal(t, "eka kappale\n---\ntoka kappale\n", out.String())
}

func TestAnonymizeTextEmptyInput(t *testing.T) {
	r := newRunner(t)

	var out bytes.Buffer
	summary, err := r.AnonymizeText(context.Background(), strings.NewReader(""), &out, TextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", out.String())
	assert.Equal(t, 0, summary.Rows)
}

func TestAnonymizeTextCanceledContext(t *testing.T) {
	r := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := r.AnonymizeText(ctx, strings.NewReader("jotain tekstiä\n"), &out, TextOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReadChunks(t *testing.T) {
	chunks, err := readChunks(strings.NewReader("a\nb\n\n\nc\n\nd\ne\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "c", "d e"}, chunks)
}

func TestReadChunksBlankOnly(t *testing.T) {
	chunks, err := readChunks(strings.NewReader("\n\n   \n"))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
