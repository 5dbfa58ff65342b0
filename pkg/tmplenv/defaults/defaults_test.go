package defaults

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractWritesNamedTemplateForEachLanguage(t *testing.T) {
	for _, lang := range []string{"c", "cpp"} {
		dir, err := Extract(lang)
		require.NoError(t, err)
		defer os.RemoveAll(dir)

		name, err := TemplateName(lang)
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NotEmpty(t, data)
	}
}

func TestExtractUnknownLanguage(t *testing.T) {
	_, err := Extract("rust")
	require.Error(t, err)
}
