// Package diag implements span-bearing diagnostics for the assembler
// pipeline: a closed set of error kinds, Rust-style span rendering, and
// an accumulate-don't-abort collector shared by the lexer and parser.
package diag

import (
	"fmt"
	"strings"
)

// Kind is the closed set of diagnostic kinds the assembler can raise.
type Kind int

const (
	// Lexical
	KindInvalidNumber Kind = iota
	KindInvalidRegister
	KindUnexpectedCharacter
	KindUnterminatedStringLiteral

	// Syntactic
	KindInvalidGlobalDecl
	KindInvalidExternDecl
	KindInvalidRodataDecl
	KindInvalidEquDecl
	KindInvalidDirective
	KindInvalidInstruction
	KindUnexpectedToken

	// Semantic
	KindUndefinedLabel

	// Internal
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidNumber:
		return "invalid number"
	case KindInvalidRegister:
		return "invalid register"
	case KindUnexpectedCharacter:
		return "unexpected character"
	case KindUnterminatedStringLiteral:
		return "unterminated string literal"
	case KindInvalidGlobalDecl:
		return "invalid global declaration"
	case KindInvalidExternDecl:
		return "invalid extern declaration"
	case KindInvalidRodataDecl:
		return "invalid rodata declaration"
	case KindInvalidEquDecl:
		return "invalid equ declaration"
	case KindInvalidDirective:
		return "invalid directive"
	case KindInvalidInstruction:
		return "invalid instruction"
	case KindUnexpectedToken:
		return "unexpected token"
	case KindUndefinedLabel:
		return "undefined label"
	case KindInternal:
		return "internal error"
	default:
		return "unknown"
	}
}

// Level mirrors the teacher's three-tier severity model.
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Span is a byte range into the source buffer.
type Span struct {
	Start int
	End   int
}

// Location is a resolved line/column position used for rendering.
type Location struct {
	File   string
	Line   int
	Column int
	Length int
}

func (loc Location) String() string {
	if loc.File == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// Context carries optional help text rendered below a diagnostic.
type Context struct {
	SourceLine string
	Suggestion string
	HelpText   string
}

// Diagnostic is a single assembler error or warning.
type Diagnostic struct {
	Level    Level
	Kind     Kind
	Message  string
	Location Location
	Context  Context
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Kind, d.Message)
}

// Format renders the diagnostic Rust-compiler style: a colored header,
// a `-->` location line, the offending source line with a caret
// underline, and optional help/note lines.
func (d Diagnostic) Format(useColor bool) string {
	var sb strings.Builder

	if useColor {
		sb.WriteString("\033[1;31m")
	}
	sb.WriteString(d.Level.String())
	sb.WriteString(": ")
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(d.Kind.String())
	if d.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(d.Message)
	}
	sb.WriteString("\n")

	if useColor {
		sb.WriteString("\033[1;34m")
	}
	sb.WriteString("  --> ")
	sb.WriteString(d.Location.String())
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString("\n")

	if d.Context.SourceLine != "" {
		lineNum := fmt.Sprintf("%d", d.Location.Line)
		padding := strings.Repeat(" ", len(lineNum)+1)

		sb.WriteString(padding)
		sb.WriteString("|\n")
		sb.WriteString(lineNum)
		sb.WriteString(" | ")
		sb.WriteString(d.Context.SourceLine)
		sb.WriteString("\n")
		sb.WriteString(padding)
		sb.WriteString("| ")

		if d.Location.Column > 0 {
			sb.WriteString(strings.Repeat(" ", d.Location.Column-1))
			if useColor {
				sb.WriteString("\033[1;31m")
			}
			if d.Location.Length > 0 {
				sb.WriteString(strings.Repeat("^", d.Location.Length))
			} else {
				sb.WriteString("^")
			}
			if useColor {
				sb.WriteString("\033[0m")
			}
			sb.WriteString("\n")
		}
	}

	if d.Context.Suggestion != "" {
		if useColor {
			sb.WriteString("\033[1;32m")
		}
		sb.WriteString("   help: ")
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(d.Context.Suggestion)
		sb.WriteString("\n")
	}

	if d.Context.HelpText != "" {
		if useColor {
			sb.WriteString("\033[1;36m")
		}
		sb.WriteString("   note: ")
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(d.Context.HelpText)
		sb.WriteString("\n")
	}

	return sb.String()
}

// Collector accumulates diagnostics across the lexer and parser
// without aborting the pipeline early.
type Collector struct {
	errors   []Diagnostic
	warnings []Diagnostic
	source   string
	file     string
}

// NewCollector creates an empty collector.
func NewCollector(file string) *Collector {
	return &Collector{file: file}
}

// SetSource stores the source text so diagnostics can quote the
// offending line.
func (c *Collector) SetSource(source string) {
	c.source = source
}

// Addf records an error-level diagnostic at the given byte span.
func (c *Collector) Addf(kind Kind, span Span, line, col int, format string, args ...any) {
	d := Diagnostic{
		Level:   LevelError,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Location: Location{
			File:   c.file,
			Line:   line,
			Column: col,
			Length: span.End - span.Start,
		},
	}
	d.Context.SourceLine = c.sourceLine(line)
	c.errors = append(c.errors, d)
}

// AddInternalf records a fatal internal-error diagnostic: a pipeline
// invariant (e.g. a missing .text section at emit time) was violated.
func (c *Collector) AddInternalf(format string, args ...any) {
	c.errors = append(c.errors, Diagnostic{
		Level:   LevelFatal,
		Kind:    KindInternal,
		Message: fmt.Sprintf(format, args...),
		Context: Context{HelpText: "this indicates a bug in the assembler itself"},
	})
}

func (c *Collector) sourceLine(lineNum int) string {
	if c.source == "" || lineNum <= 0 {
		return ""
	}
	lines := strings.Split(c.source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// HasErrors reports whether any error-or-fatal diagnostics were
// recorded; a non-empty result suppresses section and ELF emission.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns the accumulated diagnostics in recording order.
func (c *Collector) Errors() []Diagnostic {
	return c.errors
}

// Report renders every accumulated diagnostic followed by a summary
// line, matching the teacher's ErrorCollector.Report layout.
func (c *Collector) Report(useColor bool) string {
	var sb strings.Builder
	for i, e := range c.errors {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.Format(useColor))
	}
	if len(c.errors) > 0 {
		sb.WriteString("\n")
		if useColor {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString(fmt.Sprintf("%d error(s)", len(c.errors)))
		if useColor {
			sb.WriteString("\033[0m")
		}
		sb.WriteString(" found\n")
	}
	return sb.String()
}
