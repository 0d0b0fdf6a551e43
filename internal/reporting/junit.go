package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one group of conformance tests.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one check of one file.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a test assertion failure.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an unexpected error during test execution.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

// JUnitSkipped marks a test as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Outcome of a single case.
type Outcome string

const (
	OutcomePass  Outcome = "pass"
	OutcomeFail  Outcome = "fail"
	OutcomeSkip  Outcome = "skip"
	OutcomeError Outcome = "error"
)

// Case is the input for one JUnit test case.
type Case struct {
	Name      string
	Classname string
	Duration  time.Duration
	Outcome   Outcome
	Message   string
	Detail    string
}

// Suite is the input for a JUnit document with a single suite.
type Suite struct {
	Name       string
	Timestamp  time.Time
	Duration   time.Duration
	Properties []JUnitProperty
	Cases      []Case
}

// ConvertToJUnit builds the JUnit document for suite.
func ConvertToJUnit(s Suite) *JUnitTestSuites {
	out := JUnitTestSuite{
		Name:       s.Name,
		Tests:      len(s.Cases),
		Time:       s.Duration.Seconds(),
		Timestamp:  s.Timestamp.Format(time.RFC3339),
		Properties: s.Properties,
	}
	for _, c := range s.Cases {
		tc := JUnitTestCase{Name: c.Name, Classname: c.Classname, Time: c.Duration.Seconds()}
		switch c.Outcome {
		case OutcomeFail:
			out.Failures++
			tc.Failure = &JUnitFailure{Message: c.Message, Type: "CheckFailure", Body: c.Detail}
		case OutcomeError:
			out.Errors++
			msg := c.Message
			if msg == "" {
				msg = "execution error"
			}
			tc.Error = &JUnitError{Message: msg, Type: "ExecutionError"}
		case OutcomeSkip:
			out.Skipped++
			tc.Skipped = &JUnitSkipped{Message: c.Message}
		}
		out.TestCases = append(out.TestCases, tc)
	}
	return &JUnitTestSuites{
		Tests:      out.Tests,
		Failures:   out.Failures,
		Errors:     out.Errors,
		Time:       out.Time,
		TestSuites: []JUnitTestSuite{out},
	}
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(s Suite, path string) error {
	data, err := xml.MarshalIndent(ConvertToJUnit(s), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}
	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0o644)
}
