package logger

// The logger collects diagnostics during tokenizing, parsing, and printing.
// Messages are accumulated on a deferred log and drained with "Done" so that
// a parse either returns a tree or a complete set of errors, never partial
// output interleaved with diagnostics.

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		panic("Internal error")
	}
}

type Msg struct {
	Kind MsgKind
	Data MsgData
}

type MsgData struct {
	Text     string
	Location *MsgLocation
}

type MsgLocation struct {
	File     string
	Line     int // 1-based
	Column   int // 1-based, in bytes
	LineText string
}

// Loc is the 0-based byte offset of a location from the start of the file.
type Loc struct {
	Start int32
}

// Range is a half-open byte range into the source file.
type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

type Source struct {
	// Shown in error messages. "<css input>" when the input has no file name.
	PrettyPath string

	Contents string
}

func (s *Source) TextForRange(r Range) string {
	return s.Contents[r.Loc.Start:r.End()]
}

// LocationForPosition converts a 1-based line and column into a MsgLocation,
// capturing the text of the offending line for excerpt rendering.
func (s *Source) LocationForPosition(line int, column int) *MsgLocation {
	lineStart := 0
	current := 1
	contents := s.Contents
	for i := 0; i < len(contents) && current < line; i++ {
		c := contents[i]
		if c == '\n' {
			current++
			lineStart = i + 1
		} else if c == '\r' {
			if i+1 < len(contents) && contents[i+1] == '\n' {
				i++
			}
			current++
			lineStart = i + 1
		}
	}
	lineEnd := len(contents)
	for i := lineStart; i < len(contents); i++ {
		if contents[i] == '\n' || contents[i] == '\r' {
			lineEnd = i
			break
		}
	}
	return &MsgLocation{
		File:     s.PrettyPath,
		Line:     line,
		Column:   column,
		LineText: contents[lineStart:lineEnd],
	}
}

// This type is just so we can use Go's native sort function
type SortableMsgs []Msg

func (a SortableMsgs) Len() int          { return len(a) }
func (a SortableMsgs) Swap(i int, j int) { a[i], a[j] = a[j], a[i] }

func (a SortableMsgs) Less(i int, j int) bool {
	ai := a[i].Data.Location
	aj := a[j].Data.Location
	if ai == nil || aj == nil {
		return ai == nil && aj != nil
	}
	if ai.Line != aj.Line {
		return ai.Line < aj.Line
	}
	if ai.Column != aj.Column {
		return ai.Column < aj.Column
	}
	return a[i].Kind > a[j].Kind
}

// Log is a set of closures over shared mutable message state. Closures keep
// the call sites free of a concrete logger type.
type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

func (log Log) AddError(source *Source, line int, column int, text string) {
	log.AddMsg(Msg{
		Kind: Error,
		Data: MsgData{Text: text, Location: source.LocationForPosition(line, column)},
	})
}

func (log Log) AddWarning(source *Source, line int, column int, text string) {
	log.AddMsg(Msg{
		Kind: Warning,
		Data: MsgData{Text: text, Location: source.LocationForPosition(line, column)},
	})
}

// NewDeferLog holds all messages until "Done" is called. Parsing is all-or-
// nothing so there is no reason to stream diagnostics out early.
func NewDeferLog() Log {
	var msgs SortableMsgs
	var mutex sync.Mutex
	hasErrors := false

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sort.Stable(msgs)
			return msgs
		},
	}
}

func (msg Msg) String() string {
	data := msg.Data
	if data.Location == nil {
		return fmt.Sprintf("%s: %s", msg.Kind, data.Text)
	}
	loc := data.Location
	return fmt.Sprintf("%s:%d:%d: %s: %s\n%s",
		loc.File, loc.Line, loc.Column, msg.Kind, data.Text, RenderExcerpt(loc))
}

func marginWithLineText(maxMargin int, line int, marked bool) string {
	number := fmt.Sprintf("%d", line)
	marker := "  "
	if marked {
		marker = "> "
	}
	return fmt.Sprintf("%s%s%s | ", marker, strings.Repeat(" ", maxMargin-len(number)), number)
}

func emptyMargin(maxMargin int) string {
	return fmt.Sprintf("  %s | ", strings.Repeat(" ", maxMargin))
}

// RenderExcerpt draws the offending line with a caret under the error
// column. Only the offending line's text is carried on the location, so when
// the error is past line 1 the preceding line's margin row is drawn without
// its text, and no following line is drawn. Callers that have the source use
// ExcerptLines with RenderExcerptAround for the full form:
//
//	  1 | a::before {
//	> 2 |   color red
//	    |         ^
//	  3 | }
func RenderExcerpt(loc *MsgLocation) string {
	return RenderExcerptAround(loc, "", "", loc.Line > 1, false)
}

// RenderExcerptAround is the full form used when the neighboring lines are
// known. hasPrev/hasNext report whether those lines exist at all, since an
// existing-but-empty line still gets a margin row.
func RenderExcerptAround(loc *MsgLocation, prevLine string, nextLine string, hasPrev bool, hasNext bool) string {
	maxShown := loc.Line
	if hasNext {
		maxShown = loc.Line + 1
	}
	maxMargin := len(fmt.Sprintf("%d", maxShown))

	sb := strings.Builder{}
	if hasPrev {
		sb.WriteString(marginWithLineText(maxMargin, loc.Line-1, false))
		sb.WriteString(prevLine)
		sb.WriteByte('\n')
	}
	sb.WriteString(marginWithLineText(maxMargin, loc.Line, true))
	sb.WriteString(loc.LineText)
	sb.WriteByte('\n')

	// The caret column is measured in bytes into the line text. Tabs keep
	// their width of one so the caret stays aligned with raw terminal output.
	column := loc.Column - 1
	if column < 0 {
		column = 0
	}
	if column > len(loc.LineText) {
		column = len(loc.LineText)
	}
	sb.WriteString(emptyMargin(maxMargin))
	sb.WriteString(strings.Repeat(" ", column))
	sb.WriteString("^")
	if hasNext {
		sb.WriteByte('\n')
		sb.WriteString(marginWithLineText(maxMargin, loc.Line+1, false))
		sb.WriteString(nextLine)
	}
	return sb.String()
}

// ExcerptLines returns the lines surrounding the 1-based line in contents,
// for feeding RenderExcerptAround.
func ExcerptLines(contents string, line int) (prev string, next string, hasPrev bool, hasNext bool) {
	lines := strings.Split(strings.ReplaceAll(strings.ReplaceAll(contents, "\r\n", "\n"), "\r", "\n"), "\n")
	if line-2 >= 0 && line-2 < len(lines) {
		prev = lines[line-2]
		hasPrev = true
	}
	if line >= 0 && line < len(lines) {
		next = lines[line]
		hasNext = true
	}
	return
}
