// Package report parses the text reports printed by the OpenAFS tools.
//
// Each report has a grammar made of named line rules. Rules are exported so
// they can be tested on their own. Parsers skip blank lines and ignore
// trailing whitespace, but a required line that never shows up is a
// *ParseError carrying the raw report; nothing is defaulted.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse matches every *ParseError.
var ErrParse = errors.New("unexpected report format")

// Rule is one line shape of a report grammar.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

func newRule(name, pattern string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern)}
}

// Match reports whether line has the rule's shape and returns its captures.
// Surrounding whitespace is ignored.
func (r Rule) Match(line string) ([]string, bool) {
	m := r.Pattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil, false
	}
	return m[1:], true
}

// ParseError reports that a report did not have the expected shape.
type ParseError struct {
	// Report names the tool output being parsed (e.g. "vos listvldb").
	Report string

	// Rule is the name of the rule that failed.
	Rule string

	// Input is the complete raw report.
	Input string

	// Err is an optional detail, such as an out of range number.
	Err error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %s: no matching line", e.Report, e.Rule)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s: %v", e.Report, e.Rule, e.Err)
	}
	return fmt.Sprintf("%s in:\n%s", msg, e.Input)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Scanner walks the non-blank lines of a report.
type Scanner struct {
	report string
	input  string
	lines  []string
	pos    int
}

// NewScanner splits text into lines, dropping blank lines and trailing
// whitespace. report names the output in errors.
func NewScanner(report, text string) *Scanner {
	s := &Scanner{report: report, input: text}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRightFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\r'
		})
		if strings.TrimSpace(line) != "" {
			s.lines = append(s.lines, line)
		}
	}
	return s
}

// Errorf builds a *ParseError for rule.
func (s *Scanner) Errorf(rule Rule, format string, args ...any) *ParseError {
	var err error
	if format != "" {
		err = fmt.Errorf(format, args...)
	}
	return &ParseError{Report: s.report, Rule: rule.Name, Input: s.input, Err: err}
}

// Next requires the next line to match rule.
func (s *Scanner) Next(rule Rule) ([]string, error) {
	if s.pos >= len(s.lines) {
		return nil, s.Errorf(rule, "")
	}
	m, ok := rule.Match(s.lines[s.pos])
	if !ok {
		return nil, s.Errorf(rule, "")
	}
	s.pos++
	return m, nil
}

// Find skips forward to the first line matching rule.
func (s *Scanner) Find(rule Rule) ([]string, error) {
	for i := s.pos; i < len(s.lines); i++ {
		if m, ok := rule.Match(s.lines[i]); ok {
			s.pos = i + 1
			return m, nil
		}
	}
	return nil, s.Errorf(rule, "")
}

// Any reports whether any line, consumed or not, matches rule.
func (s *Scanner) Any(rule Rule) bool {
	for _, line := range s.lines {
		if _, ok := rule.Match(line); ok {
			return true
		}
	}
	return false
}

// Done reports whether every line has been consumed.
func (s *Scanner) Done() bool {
	return s.pos >= len(s.lines)
}

// Peek returns the next line without consuming it.
func (s *Scanner) Peek() (string, bool) {
	if s.Done() {
		return "", false
	}
	return s.lines[s.pos], true
}

// Skip consumes one line.
func (s *Scanner) Skip() {
	if !s.Done() {
		s.pos++
	}
}

// Int parses a captured decimal number.
func (s *Scanner) Int(rule Rule, text string) (int64, error) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, s.Errorf(rule, "bad number %q", text)
	}
	return n, nil
}

const partitionPrefix = "/vicep"

var partitionPattern = regexp.MustCompile(`^/vicep([a-z]{1,2})$`)

// PartitionLetter converts a partition device name such as "/vicepa" to its
// letter form "a".
func PartitionLetter(device string) (string, error) {
	m := partitionPattern.FindStringSubmatch(device)
	if m == nil {
		return "", fmt.Errorf("invalid partition name %q", device)
	}
	return m[1], nil
}

// PartitionDevice converts a partition letter to its device name. Values
// already carrying the device prefix are returned unchanged.
func PartitionDevice(letter string) string {
	if strings.HasPrefix(letter, partitionPrefix) {
		return letter
	}
	return partitionPrefix + letter
}
