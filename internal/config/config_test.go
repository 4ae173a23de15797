package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
org:
  name: Example Org
  description: An example organization
  url: https://example.org
  logo_url: https://example.org/logo.svg
  socials:
    github: https://github.com/example

leaderboard:
  data_source: ./data
  plugins:
    sample:
      source: dummy
      config:
        contributors: 4
        seed: 7
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, "Example Org", cfg.Org.Name)
	assert.Equal(t, "https://github.com/example", cfg.Org.Socials["github"])

	spec, ok := cfg.Leaderboard.Plugins["sample"]
	require.True(t, ok)
	assert.Equal(t, "dummy", spec.Source)
	assert.EqualValues(t, 4, spec.Config["contributors"])
}

func TestParseSubstitutesEnvReferences(t *testing.T) {
	t.Setenv("TALLY_TEST_TOKEN", "s3cret")

	cfg, err := Parse([]byte(`
org:
  name: Example
  description: d
  url: https://example.org
  logo_url: https://example.org/logo.svg
leaderboard:
  plugins:
    gh:
      source: dummy
      config:
        token: ${{ env.TALLY_TEST_TOKEN }}
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Leaderboard.Plugins["gh"].Config["token"])
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"missing org name",
			"org:\n  description: d\n  url: https://x.org\n  logo_url: https://x.org/l.svg\n",
			"org.name",
		},
		{
			"bad url",
			"org:\n  name: n\n  description: d\n  url: not-a-url\n  logo_url: https://x.org/l.svg\n",
			"org.url",
		},
		{
			"plugin without source",
			"org:\n  name: n\n  description: d\n  url: https://x.org\n  logo_url: https://x.org/l.svg\nleaderboard:\n  plugins:\n    broken: {}\n",
			"broken.source",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadFromDataDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(validConfig), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "Example Org", cfg.Org.Name)
}
