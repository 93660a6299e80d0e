package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolateHome(t)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Timestamp", c.TimestampColumn)
	assert.Equal(t, "WD", c.WindDirectionColumn)
	assert.Equal(t, "WS", c.WindSpeedColumn)
	assert.Equal(t, []string{"GHI", "DNI", "DHI", "Tamb"}, c.Variables)
	assert.Equal(t, []string{"GHI", "DNI", "DHI"}, c.ClampColumns)
	assert.Equal(t, 3.0, c.ZThreshold)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.Equal(t, ":9464", c.MetricsAddr)
	assert.Equal(t, rune(0), c.DelimiterRune())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("SOLARSTAT_Z_THRESHOLD", "2.5")
	t.Setenv("SOLARSTAT_VARIABLES", "GHI,WS")
	t.Setenv("SOLARSTAT_DELIMITER", ";")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2.5, c.ZThreshold)
	assert.Equal(t, []string{"GHI", "WS"}, c.Variables)
	assert.Equal(t, ';', c.DelimiterRune())
}

func TestLoad_FileAndSchema(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "solarstat.yaml")
	yml := `timestamp_column: Timestamp
variables: [GHI, Tamb]
expected_types:
  - Tamb=float64
  - Timestamp=datetime
  - Comments=object
log_format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", c.LogFormat)

	s, err := c.Schema()
	require.NoError(t, err)
	assert.Equal(t, table.Schema{
		{Name: "Timestamp", Kind: table.Timestamp},
		{Name: "Tamb", Kind: table.Numeric},
		{Name: "Comments", Kind: table.Text},
	}, s)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative threshold", map[string]string{"SOLARSTAT_Z_THRESHOLD": "-1"}},
		{"unknown log format", map[string]string{"SOLARSTAT_LOG_FORMAT": "xml"}},
		{"unknown log level", map[string]string{"SOLARSTAT_LOG_LEVEL": "verbose"}},
		{"bad type spec", map[string]string{"SOLARSTAT_EXPECTED_TYPES": "GHI"}},
		{"unknown kind", map[string]string{"SOLARSTAT_EXPECTED_TYPES": "GHI=blob"}},
		{"long delimiter", map[string]string{"SOLARSTAT_DELIMITER": ";;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := isolateHome(t)

	c, err := Load("")
	require.NoError(t, err)
	c.WindSpeedColumn = "WSgust"
	c.ExpectedTypes = []string{"GHI=numeric"}
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".solarstat", "config.yaml"))
	require.NoError(t, err)

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "WSgust", again.WindSpeedColumn)
	assert.Equal(t, []string{"GHI=numeric"}, again.ExpectedTypes)
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ",": ',', `\t`: '\t', "tab": '\t', "|": '|'} {
		got, err := ParseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseDelimiter("ab")
	assert.Error(t, err)
}

func TestDefaults_IgnoreEnvironment(t *testing.T) {
	t.Setenv("SOLARSTAT_Z_THRESHOLD", "2.5")
	c, err := Defaults()
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.ZThreshold)
	assert.Equal(t, "Timestamp", c.TimestampColumn)
}
