package render

import (
	"bytes"
	"strconv"
	"strings"
)

type lineKind int

const (
	kindDirective lineKind = iota
	kindComment
	kindBlank
	kindRaw
)

// Directive is one emitted configuration line: a keyword and its arguments.
type Directive struct {
	Keyword string
	Args    []string
}

func (d Directive) String() string {
	if len(d.Args) == 0 {
		return d.Keyword
	}
	return d.Keyword + " " + strings.Join(d.Args, " ")
}

type line struct {
	kind      lineKind
	directive Directive
	text      string
}

// Builder collects configuration lines in emission order.
type Builder struct {
	lines []line
}

func (b *Builder) Add(keyword string, args ...string) {
	b.lines = append(b.lines, line{kind: kindDirective, directive: Directive{Keyword: keyword, Args: args}})
}

func (b *Builder) AddIf(cond bool, keyword string, args ...string) {
	if cond {
		b.Add(keyword, args...)
	}
}

// Value adds "keyword value" unless value is empty.
func (b *Builder) Value(keyword, value string) {
	b.AddIf(value != "", keyword, value)
}

// Uint adds "keyword n" when n is set.
func (b *Builder) Uint(keyword string, n *uint16) {
	if n != nil {
		b.Add(keyword, strconv.FormatUint(uint64(*n), 10))
	}
}

// Push adds a push directive with its argument quoted.
func (b *Builder) Push(args ...string) {
	b.Add("push", `"`+strings.Join(args, " ")+`"`)
}

// Comment adds one comment line per text. Embedded line breaks start a new
// comment line, so text never leaks out as a directive.
func (b *Builder) Comment(text ...string) {
	for _, t := range text {
		t = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(t)
		for _, part := range strings.Split(t, "\n") {
			if part == "" {
				b.lines = append(b.lines, line{kind: kindComment, text: "#"})
				continue
			}
			b.lines = append(b.lines, line{kind: kindComment, text: "# " + part})
		}
	}
}

// Blank separates sections. Consecutive blanks collapse into one.
func (b *Builder) Blank() {
	if n := len(b.lines); n > 0 && b.lines[n-1].kind == kindBlank {
		return
	}
	b.lines = append(b.lines, line{kind: kindBlank})
}

// Raw appends a line verbatim.
func (b *Builder) Raw(text string) {
	b.lines = append(b.lines, line{kind: kindRaw, text: text})
}

// Directives returns the emitted directives without comments or raw lines.
func (b *Builder) Directives() []Directive {
	var out []Directive
	for _, l := range b.lines {
		if l.kind == kindDirective {
			out = append(out, l.directive)
		}
	}
	return out
}

func (b *Builder) Bytes() []byte {
	var buf bytes.Buffer
	lines := b.lines
	for len(lines) > 0 && lines[len(lines)-1].kind == kindBlank {
		lines = lines[:len(lines)-1]
	}
	for _, l := range lines {
		switch l.kind {
		case kindDirective:
			buf.WriteString(l.directive.String())
		case kindComment, kindRaw:
			buf.WriteString(l.text)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func (b *Builder) String() string {
	return string(b.Bytes())
}
