package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ai-code-mother/pkg/errors"
)

func TestExtract_SingleFileFencedBlock(t *testing.T) {
	text := "Here is your page:\n```HTML\n  <h1>Hi</h1>\n```\nEnjoy!"

	artifact, err := Extract(ModeSingleFile, text)
	require.NoError(t, err)

	single, ok := artifact.(SingleFileArtifact)
	require.True(t, ok)
	assert.Equal(t, "<h1>Hi</h1>", single.HTML)
}

func TestExtract_SingleFileFallbackToWholeText(t *testing.T) {
	artifact, err := Extract(ModeSingleFile, "\n  <!DOCTYPE html><p>raw</p>  \n")
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><p>raw</p>", artifact.(SingleFileArtifact).HTML)
}

func TestExtract_SingleFileEmptyFenceFallsBack(t *testing.T) {
	text := "```html\n   \n```"
	artifact, err := Extract(ModeSingleFile, text)
	require.NoError(t, err)
	assert.Equal(t, text, artifact.(SingleFileArtifact).HTML)
}

func TestExtract_SingleFileIsIdempotent(t *testing.T) {
	for _, text := range []string{
		"```html\n<div>a</div>\n```",
		"  <div>b</div>  ",
	} {
		first, err := Extract(ModeSingleFile, text)
		require.NoError(t, err)
		second, err := Extract(ModeSingleFile, first.(SingleFileArtifact).HTML)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func TestExtract_NonGreedyStopsAtFirstFence(t *testing.T) {
	text := "```html\n<p>one</p>\n```\ntext\n```html\n<p>two</p>\n```"
	artifact, err := Extract(ModeSingleFile, text)
	require.NoError(t, err)
	assert.Equal(t, "<p>one</p>", artifact.(SingleFileArtifact).HTML)
}

func TestExtract_MultiFileWithoutStylesheet(t *testing.T) {
	text := "```html\n<div id=\"app\"></div>\n```\n\n```javascript\nconsole.log('hi')\n```"

	artifact, err := Extract(ModeMultiFile, text)
	require.NoError(t, err)

	multi, ok := artifact.(MultiFileArtifact)
	require.True(t, ok)
	assert.Equal(t, `<div id="app"></div>`, multi.HTML)
	assert.Equal(t, "console.log('hi')", multi.JS)
	assert.Empty(t, multi.CSS)
}

func TestExtract_MultiFileAllBlocks(t *testing.T) {
	text := "```CSS\nbody{margin:0}\n```\n```js\nlet a = 1\n```\n```html\n<main></main>\n```"

	artifact, err := Extract(ModeMultiFile, text)
	require.NoError(t, err)

	multi := artifact.(MultiFileArtifact)
	assert.Equal(t, "<main></main>", multi.HTML)
	assert.Equal(t, "let a = 1", multi.JS)
	assert.Equal(t, "body{margin:0}", multi.CSS)
}

func TestExtract_MultiFileIgnoresJSONBlock(t *testing.T) {
	text := "```json\n{\"a\":1}\n```\n```html\n<p></p>\n```"
	artifact, err := Extract(ModeMultiFile, text)
	require.NoError(t, err)
	assert.Empty(t, artifact.(MultiFileArtifact).JS)
}

func TestExtract_UnsupportedModes(t *testing.T) {
	_, err := Extract(ModeProject, "```html\n<p></p>\n```")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnsupportedMode))

	_, err = Extract(GenerationMode("Desktop"), "anything")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnsupportedMode))
}

func TestParseMode(t *testing.T) {
	cases := map[string]GenerationMode{
		"SingleFile":  ModeSingleFile,
		"html":        ModeSingleFile,
		"multi_file":  ModeMultiFile,
		"MULTIFILE":   ModeMultiFile,
		"vue_project": ModeProject,
		" Project ":   ModeProject,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("react")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnsupportedMode))
}

func TestSessionKeyAndDirName(t *testing.T) {
	assert.Equal(t, "42-SingleFile", SessionKey{AppID: 42, Mode: ModeSingleFile}.String())
	assert.Equal(t, "SingleFile_42", DirName(ModeSingleFile, 42))
	assert.Equal(t, "Project_7", DirName(ModeProject, 7))
}
