package core

import (
	"strings"

	"github.com/dave/dst"
)

// Annotation is one `// [...]` comment. Every entry of Params starts with
// the tag name followed by its values:
//
//	// [:usemacros, :receiver=b, :with(:a=1, :b)]
//
// gives [[:usemacros] [:receiver b] [:with :a 1 :b]].
type Annotation struct {
	Params [][]string
}

func (a Annotation) Has(tag string) bool {
	for _, param := range a.Params {
		if len(param) > 0 && param[0] == tag {
			return true
		}
	}
	return false
}

// Values returns whatever follows tag, if the tag is present.
func (a Annotation) Values(tag string) ([]string, bool) {
	for _, param := range a.Params {
		if len(param) > 0 && param[0] == tag {
			return param[1:], true
		}
	}
	return nil, false
}

func HasAnnotation(annotations []Annotation, tag string) bool {
	for _, annotation := range annotations {
		if annotation.Has(tag) {
			return true
		}
	}
	return false
}

// GetTagValue returns the first value of the first matching tag.
func GetTagValue(annotations []Annotation, tag string) (string, bool) {
	for _, annotation := range annotations {
		if values, ok := annotation.Values(tag); ok && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}

// stripAnnotations drops the annotation comments carrying tag, and a blank
// line right after one, keeping the rest of a doc comment.
func stripAnnotations(decs dst.Decorations, tag string) dst.Decorations {
	out := dst.Decorations{}
	dropped := false
	for _, d := range decs {
		if d == "\n" && dropped {
			continue
		}
		dropped = HasAnnotation(extractAnnotations([]string{d}), tag)
		if !dropped {
			out = append(out, d)
		}
	}
	return out
}

func extractAnnotations(comments []string) []Annotation {
	annotations := []Annotation{}
	for _, rawComment := range comments {
		comment := strings.TrimSpace(rawComment)
		comment = strings.Replace(comment, "// [", "//[", 1)
		if !strings.HasPrefix(comment, "//[") || !strings.HasSuffix(comment, "]") {
			continue
		}
		comment = comment[3 : len(comment)-1]

		annotation := Annotation{Params: [][]string{}}
		for _, section := range splitTopLevel(comment) {
			if section == "" {
				continue
			}
			if open := strings.Index(section, "("); open >= 0 {
				// :tag(:param=value, :other)
				name := strings.TrimSpace(section[:open])
				inner := section[open+1:]
				if end := strings.LastIndex(inner, ")"); end >= 0 {
					inner = inner[:end]
				}
				param := []string{name}
				for _, child := range splitTopLevel(inner) {
					if child == "" {
						continue
					}
					param = append(param, splitPair(child)...)
				}
				annotation.Params = append(annotation.Params, param)
				continue
			}
			annotation.Params = append(annotation.Params, splitPair(section))
		}
		annotations = append(annotations, annotation)
	}
	return annotations
}

// splitTopLevel splits on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	sections := []string{}
	depth := 0
	start := 0
	for idx := 0; idx < len(s); idx++ {
		switch s[idx] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				sections = append(sections, strings.TrimSpace(s[start:idx]))
				start = idx + 1
			}
		}
	}
	return append(sections, strings.TrimSpace(s[start:]))
}

func splitPair(s string) []string {
	if name, value, ok := strings.Cut(s, "="); ok {
		return []string{strings.TrimSpace(name), strings.TrimSpace(value)}
	}
	return []string{strings.TrimSpace(s)}
}
