// Package shaderpp implements the offline shader annotation preprocessor.
// It rewrites `@buffer[...]` decorations in compute shader source into GLSL
// storage buffer declarations and collects the binding metadata the runtime
// needs to build descriptor layouts for the kernel.
//
// Grammar of a decoration, anywhere in the source:
//
//	@buffer[name=particles access=read_write type=vec4 layout=std430]
//
// Values may be double-quoted, with backslash escapes. The preprocessor
// assigns binding indices in order of first appearance, all in set 0.
// `@push_constant[...]` is recognized but not implemented; it is replaced
// with a comment saying so.
package shaderpp

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Manwe314/FlowVk/shadermeta"
)

const (
	bufferToken = "@buffer["
	pushToken   = "@push_constant["
)

// Result holds the transformed shader source and the metadata collected
// from it. Decoration errors do not abort the transform; they are embedded
// as comments at the decoration site and reported in Errs.
type Result struct {
	Source string
	Module shadermeta.Module
	Errs   []string
}

type decorKind int

const (
	decorBuffer decorKind = iota
	decorPush
)

type foundDecor struct {
	kind     decorKind
	pos      int
	tokenLen int
}

// Transform rewrites the shader text and collects its buffer bindings.
// kernelName becomes the metadata module name (conventionally the source
// file stem).
func Transform(kernelName, text string) Result {
	res := Result{Module: shadermeta.Module{KernelName: kernelName}}
	seen := map[string]int{} // buffer name -> index into Module.Buffers
	nextBinding := uint32(0)

	var out strings.Builder
	out.Grow(len(text))

	cursor := 0
	for {
		d, ok := findNextDecor(text, cursor)
		if !ok {
			break
		}
		out.WriteString(text[cursor:d.pos])

		openBracket := d.pos + d.tokenLen - 1
		closeBracket, ok := findMatchingBracket(text, openBracket)
		if !ok {
			res.fail(&out, "unterminated decoration")
			cursor = d.pos + d.tokenLen
			continue
		}
		inner := text[openBracket+1 : closeBracket]
		cursor = closeBracket + 1

		if d.kind == decorPush {
			out.WriteString("/* shaderpp: @push_constant not implemented yet */\n")
			continue
		}

		kv, err := parseKVPairs(inner)
		if err != nil {
			res.fail(&out, "failed to parse @buffer[...]: "+err.Error())
			continue
		}

		name, access, typ, layout := kv["name"], kv["access"], kv["type"], kv["layout"]
		if name == "" || access == "" || typ == "" || layout == "" {
			res.fail(&out, "@buffer requires name, access, type, layout")
			continue
		}

		acc, err := shadermeta.ParseAccess(access)
		if err != nil {
			res.fail(&out, "access must be read_only/write_only/read_write")
			continue
		}
		if !shadermeta.SupportedLayout(layout) {
			res.fail(&out, "layout must be std430/std140/scalar")
			continue
		}
		lay, _ := shadermeta.ParseLayout(layout)

		if idx, dup := seen[name]; dup {
			prev := res.Module.Buffers[idx]
			if prev.Access != acc || prev.TypeName != typ || prev.Layout != lay {
				res.fail(&out, "duplicate @buffer name with mismatched properties")
			}
			// Same buffer referenced again: emit nothing.
			continue
		}

		b := shadermeta.BufferBinding{
			Name:     name,
			TypeName: typ,
			Access:   acc,
			Layout:   lay,
			Set:      0,
			Binding:  nextBinding,
		}
		nextBinding++
		seen[name] = len(res.Module.Buffers)
		res.Module.Buffers = append(res.Module.Buffers, b)
		out.WriteString(ssboDecl(b))
	}

	out.WriteString(text[cursor:])
	res.Source = out.String()
	return res
}

func (r *Result) fail(out *strings.Builder, msg string) {
	r.Errs = append(r.Errs, msg)
	fmt.Fprintf(out, "/* shaderpp ERROR: %s */\n", msg)
}

func findNextDecor(text string, from int) (foundDecor, bool) {
	bufPos := indexFrom(text, bufferToken, from)
	pushPos := indexFrom(text, pushToken, from)

	if bufPos < 0 && pushPos < 0 {
		return foundDecor{}, false
	}
	if bufPos >= 0 && (pushPos < 0 || bufPos < pushPos) {
		return foundDecor{decorBuffer, bufPos, len(bufferToken)}, true
	}
	return foundDecor{decorPush, pushPos, len(pushToken)}, true
}

func indexFrom(text, token string, from int) int {
	if from >= len(text) {
		return -1
	}
	i := strings.Index(text[from:], token)
	if i < 0 {
		return -1
	}
	return from + i
}

// findMatchingBracket scans from the opening '[' to its closing ']',
// ignoring brackets inside double-quoted strings and honoring backslash
// escapes.
func findMatchingBracket(text string, open int) (int, bool) {
	inString := false
	escaped := false
	for i := open; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case c == ']' && !inString:
			return i, true
		}
	}
	return 0, false
}

func parseKVPairs(inner string) (map[string]string, error) {
	kv := map[string]string{}
	i := 0
	for {
		skipSpace(inner, &i)
		if i >= len(inner) {
			return kv, nil
		}
		key := parseKey(inner, &i)
		if key == "" {
			return nil, fmt.Errorf("expected key at offset %d", i)
		}
		skipSpace(inner, &i)
		if i >= len(inner) || inner[i] != '=' {
			return nil, fmt.Errorf("expected '=' after %q", key)
		}
		i++
		val, ok := parseValue(inner, &i)
		if !ok {
			return nil, fmt.Errorf("missing value for %q", key)
		}
		kv[key] = val
	}
}

func skipSpace(s string, i *int) {
	for *i < len(s) && unicode.IsSpace(rune(s[*i])) {
		*i++
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func parseKey(s string, i *int) string {
	start := *i
	for *i < len(s) && isIdentChar(s[*i]) {
		*i++
	}
	return s[start:*i]
}

func parseValue(s string, i *int) (string, bool) {
	skipSpace(s, i)
	if *i >= len(s) {
		return "", false
	}
	if s[*i] == '"' {
		*i++
		var out strings.Builder
		escaped := false
		for *i < len(s) {
			c := s[*i]
			*i++
			if escaped {
				out.WriteByte(c)
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				return out.String(), true
			}
			out.WriteByte(c)
		}
		return "", false // unterminated string
	}
	start := *i
	for *i < len(s) && !unicode.IsSpace(rune(s[*i])) {
		*i++
	}
	if start == *i {
		return "", false
	}
	return s[start:*i], true
}

func accessQualifier(a shadermeta.Access) string {
	switch a {
	case shadermeta.ReadOnly:
		return "readonly "
	case shadermeta.WriteOnly:
		return "writeonly "
	default:
		return "" // read_write: no qualifier
	}
}

// ssboDecl renders the GLSL storage buffer block a @buffer decoration
// expands to.
func ssboDecl(b shadermeta.BufferBinding) string {
	var out strings.Builder
	fmt.Fprintf(&out, "layout(set = %d, binding = %d, %s) ", b.Set, b.Binding, b.Layout)
	out.WriteString(accessQualifier(b.Access))
	fmt.Fprintf(&out, "buffer %sBuffer {\n", pascalCase(b.Name))
	fmt.Fprintf(&out, "  %s data[];\n", b.TypeName)
	fmt.Fprintf(&out, "} %s;\n", b.Name)
	return out.String()
}

// pascalCase turns a buffer name into a GLSL block name: alphanumeric runs
// are capitalized, everything else is a word break.
func pascalCase(s string) string {
	var out strings.Builder
	upper := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if upper {
				out.WriteRune(unicode.ToUpper(r))
			} else {
				out.WriteRune(r)
			}
			upper = false
		} else {
			upper = true
		}
	}
	name := out.String()
	if name == "" {
		name = "Buffer"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "B" + name
	}
	return name
}
