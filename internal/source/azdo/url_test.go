package azdo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordURL(t *testing.T) {
	resolved, err := ParseRecordURL("https://dev.azure.com/contoso/Platform/_workitems/edit/4211")
	require.NoError(t, err)
	assert.Equal(t, "https://dev.azure.com/contoso", resolved.EndpointURL)
	assert.Equal(t, "Platform", resolved.ProjectID)
	assert.Equal(t, 4211, resolved.RecordID)
}

func TestParseRecordURLEscapedProject(t *testing.T) {
	resolved, err := ParseRecordURL("https://dev.azure.com/contoso/Core%20Services/_workitems/edit/9")
	require.NoError(t, err)
	assert.Equal(t, "Core Services", resolved.ProjectID)
}

func TestParseRecordURLRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{
		"not a url at all ://",
		"/relative/only",
		"https://dev.azure.com/contoso/Platform/_boards/board/123",
		"https://dev.azure.com/contoso/Platform/_workitems/edit/abc",
		"https://dev.azure.com/contoso",
	} {
		_, err := ParseRecordURL(raw)
		assert.Error(t, err, "input %q", raw)
	}
}
