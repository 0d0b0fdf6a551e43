package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSuite() Suite {
	return Suite{
		Name:      "conformance",
		Timestamp: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Properties: []JUnitProperty{
			{Name: "root", Value: "/project"},
		},
		Cases: []Case{
			{Name: "yaml_frontmatter_task", Classname: "structural", Duration: 2 * time.Millisecond, Outcome: OutcomePass},
			{Name: "required_fields_task", Classname: "structural", Outcome: OutcomeFail, Message: "Command missing required fields: description"},
			{Name: "config_syntax_settings", Classname: "structural", Outcome: OutcomeError},
			{Name: "component_assembly_integration", Classname: "integration", Outcome: OutcomeSkip, Message: "No components directory found"},
		},
	}
}

func TestConvertToJUnit(t *testing.T) {
	suites := ConvertToJUnit(newTestSuite())

	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.InDelta(t, 1.5, suites.Time, 1e-9)
	require.Len(t, suites.TestSuites, 1)

	s := suites.TestSuites[0]
	assert.Equal(t, "conformance", s.Name)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, "2025-06-15T12:00:00Z", s.Timestamp)
	require.Len(t, s.TestCases, 4)

	assert.Nil(t, s.TestCases[0].Failure)
	assert.InDelta(t, 0.002, s.TestCases[0].Time, 1e-9)
	require.NotNil(t, s.TestCases[1].Failure)
	assert.Equal(t, "CheckFailure", s.TestCases[1].Failure.Type)
	require.NotNil(t, s.TestCases[2].Error)
	assert.Equal(t, "execution error", s.TestCases[2].Error.Message)
	require.NotNil(t, s.TestCases[3].Skipped)
}

func TestWriteJUnitXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, WriteJUnitXML(newTestSuite(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 4, parsed.Tests)
	assert.Equal(t, "/project", parsed.TestSuites[0].Properties[0].Value)
}
