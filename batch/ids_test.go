package batch

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIDs(t *testing.T) {
	input := `# textures for the welcome area
89556747-24cb-43ed-920b-47caed15465f

  3B3B6E5E-3F3E-4C1E-9F3A-1D2C3B4A5F6E
`
	ids, err := ReadIDs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, okID, ids[0])
	assert.Equal(t, okID2, ids[1])
}

func TestReadIDsReportsLineNumbers(t *testing.T) {
	input := "89556747-24cb-43ed-920b-47caed15465f\n# comment\nnot-an-id\n\nalso bad\n"
	ids, err := ReadIDs(strings.NewReader(input))
	require.Error(t, err)
	assert.Len(t, ids, 1)

	var lerr *LineError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, 3, lerr.Line)
	assert.Contains(t, err.Error(), `line 3: invalid asset id "not-an-id"`)
	assert.Contains(t, err.Error(), `line 5: invalid asset id "also bad"`)
}

func TestReadIDsEmpty(t *testing.T) {
	ids, err := ReadIDs(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, ids)
}
