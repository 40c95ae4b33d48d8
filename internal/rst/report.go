package rst

import (
	"fmt"
	"io"
)

// A ReportLevel is the severity of a parser diagnostic.
type ReportLevel int

const (
	ReportInfo ReportLevel = iota + 1
	ReportWarning
	ReportError
	ReportSevere
	// ReportNone suppresses every diagnostic.
	ReportNone
)

func (l ReportLevel) String() string {
	switch l {
	case ReportInfo:
		return "INFO"
	case ReportWarning:
		return "WARNING"
	case ReportError:
		return "ERROR"
	case ReportSevere:
		return "SEVERE"
	case ReportNone:
		return "NONE"
	}
	return fmt.Sprintf("ReportLevel(%d)", int(l))
}

// Options configure Parse.
type Options struct {
	// ReportLevel is the minimum severity of diagnostics written to
	// Warnings. The zero value reports warnings and above.
	ReportLevel ReportLevel
	// Warnings receives diagnostics. Nothing is written if it is nil.
	Warnings io.Writer
	// Source names the input in diagnostics.
	Source string
}

func (p *parser) message(level ReportLevel, line int, format string, args ...any) *Node {
	msg := fmt.Sprintf(format, args...)
	threshold := p.opts.ReportLevel
	if threshold == 0 {
		threshold = ReportWarning
	}
	if p.opts.Warnings != nil && level >= threshold && threshold < ReportNone {
		src := p.opts.Source
		if src == "" {
			src = "<string>"
		}
		fmt.Fprintf(p.opts.Warnings, "%s:%d: (%s/%d) %s\n", src, line, level, int(level), msg)
	}
	return &Node{Kind: KindSystemMessage, Text: msg, Level: level, Line: line}
}
