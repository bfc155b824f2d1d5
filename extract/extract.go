// Package extract scrapes form state and table rows out of the hand-written,
// non well-formed markup the switch web interfaces emit.
//
// All extractors are lenient: a fragment that does not match simply yields no
// entry. Field names are matched case-insensitively against a name pattern so
// the same extractor serves every dialect.
package extract

import (
	"regexp"
	"strings"

	"github.com/swoga/zyxel-webctl/cache"
	"github.com/swoga/zyxel-webctl/form"
)

var patterns = cache.New[string, *regexp.Regexp]()

func compile(expr string) *regexp.Regexp {
	return patterns.GetOrCreate(expr, func() *regexp.Regexp {
		return regexp.MustCompile(expr)
	})
}

// namePattern anchors a field name pattern, matching case-insensitively.
func namePattern(pattern string) *regexp.Regexp {
	return compile(`(?i)^(?:` + pattern + `)$`)
}

var (
	controlPattern = regexp.MustCompile(`(?is)<input\b[^>]*>|<select\b[^>]*>.*?</select>|<textarea\b[^>]*>.*?</textarea>`)
	inputPattern   = regexp.MustCompile(`(?is)<input\b[^>]*>`)
	selectPattern  = regexp.MustCompile(`(?is)<select\b([^>]*)>(.*?)</select>`)
	textareaBody   = regexp.MustCompile(`(?is)<textarea\b[^>]*>(.*?)</textarea>`)
	quotedPattern  = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	checkedMarker  = regexp.MustCompile(`(?i)\bchecked\b`)

	// both attribute orders of a selected option, tried in this order
	optionValueFirst    = regexp.MustCompile(`(?is)<option\b[^>]*?\bvalue\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))[^>]*?\bselected\b[^>]*>([^<]*)`)
	optionSelectedFirst = regexp.MustCompile(`(?is)<option\b[^>]*?\bselected\b[^>]*?\bvalue\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))[^>]*>([^<]*)`)
	optionPattern       = regexp.MustCompile(`(?is)<option\b([^>]*)>([^<]*)`)
)

// Attr returns the value of attribute name within a single tag.
func Attr(tag, name string) (string, bool) {
	re := compile(`(?is)[\s<]` + regexp.QuoteMeta(name) + `\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)
	m := re.FindStringSubmatch(tag)
	if m == nil {
		return "", false
	}
	return firstGroup(m[1:]), true
}

func firstGroup(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

// hasMarker looks for a bare boolean attribute, ignoring quoted attribute values.
func hasMarker(tag string, marker *regexp.Regexp) bool {
	return marker.MatchString(quotedPattern.ReplaceAllString(tag, `""`))
}

// Checked reports whether a tag carries the checked marker.
func Checked(tag string) bool {
	return hasMarker(tag, checkedMarker)
}

func inputType(tag string) string {
	t, _ := Attr(tag, "type")
	return strings.ToLower(t)
}

func isToggle(t string) bool {
	return t == "checkbox" || t == "radio"
}

func isButton(t string) bool {
	return t == "button" || t == "submit" || t == "reset" || t == "image"
}

// Inputs returns the values of text-like inputs whose name matches pattern, in document order.
func Inputs(content, pattern string) []form.Field {
	re := namePattern(pattern)
	var fields []form.Field
	for _, tag := range inputPattern.FindAllString(content, -1) {
		name, ok := Attr(tag, "name")
		if !ok || !re.MatchString(name) {
			continue
		}
		t := inputType(tag)
		if isToggle(t) || isButton(t) {
			continue
		}
		value, ok := Attr(tag, "value")
		if !ok {
			continue
		}
		fields = append(fields, form.Field{Name: name, Value: value})
	}
	return fields
}

// CheckedValues returns the values of checked checkboxes and radios whose name matches pattern.
func CheckedValues(content, pattern string) []string {
	re := namePattern(pattern)
	var values []string
	for _, tag := range inputPattern.FindAllString(content, -1) {
		name, ok := Attr(tag, "name")
		if !ok || !re.MatchString(name) || !isToggle(inputType(tag)) {
			continue
		}
		if Checked(tag) {
			values = append(values, toggleValue(tag))
		}
	}
	return values
}

func toggleValue(tag string) string {
	if v, ok := Attr(tag, "value"); ok {
		return v
	}
	return "on"
}

type Option struct {
	Value string
	Label string
}

// SelectedOption returns the selected option of a select body. The
// value-before-selected order is tried first; the other order only when it
// found nothing.
func SelectedOption(body string) (Option, bool) {
	for _, re := range []*regexp.Regexp{optionValueFirst, optionSelectedFirst} {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		return Option{
			Value: firstGroup(m[1:4]),
			Label: strings.TrimSpace(m[4]),
		}, true
	}
	return Option{}, false
}

// FirstOption returns the option a browser submits for a select without a
// selected option. An option without a value submits its text.
func FirstOption(body string) (Option, bool) {
	m := optionPattern.FindStringSubmatch(body)
	if m == nil {
		return Option{}, false
	}
	label := strings.TrimSpace(m[2])
	value, ok := Attr("<option"+m[1]+">", "value")
	if !ok {
		value = label
	}
	return Option{Value: value, Label: label}, true
}

// Selects returns the selected value of every select whose name matches pattern.
func Selects(content, pattern string) []form.Field {
	re := namePattern(pattern)
	var fields []form.Field
	for _, m := range selectPattern.FindAllStringSubmatch(content, -1) {
		name, ok := Attr("<select"+m[1]+">", "name")
		if !ok || !re.MatchString(name) {
			continue
		}
		opt, ok := SelectedOption(m[2])
		if !ok {
			continue
		}
		fields = append(fields, form.Field{Name: name, Value: opt.Value})
	}
	return fields
}

// Snapshot captures every control whose name matches pattern as a browser
// would submit it: text-like inputs with their value (empty when it has none),
// checkboxes and radios only when checked, selects with their selected option
// or else the first one. Buttons are skipped.
func Snapshot(content, pattern string) *form.Snapshot {
	re := namePattern(pattern)
	s := form.New()
	for _, control := range controlPattern.FindAllString(content, -1) {
		lower := strings.ToLower(control[:min(len(control), 9)])
		switch {
		case strings.HasPrefix(lower, "<select"):
			m := selectPattern.FindStringSubmatch(control)
			if m == nil {
				continue
			}
			name, ok := Attr("<select"+m[1]+">", "name")
			if !ok || !re.MatchString(name) {
				continue
			}
			if opt, ok := SelectedOption(m[2]); ok {
				s.Add(name, opt.Value)
			} else if opt, ok := FirstOption(m[2]); ok {
				s.Add(name, opt.Value)
			}
		case strings.HasPrefix(lower, "<textarea"):
			name, ok := Attr(control, "name")
			if !ok || !re.MatchString(name) {
				continue
			}
			if m := textareaBody.FindStringSubmatch(control); m != nil {
				s.Add(name, m[1])
			}
		default:
			name, ok := Attr(control, "name")
			if !ok || !re.MatchString(name) {
				continue
			}
			t := inputType(control)
			switch {
			case isButton(t):
			case isToggle(t):
				if Checked(control) {
					s.Add(name, toggleValue(control))
				}
			default:
				value, _ := Attr(control, "value")
				s.Add(name, value)
			}
		}
	}
	return s
}

// Token returns the value of the hidden anti-replay input called name.
func Token(content, name string) (string, bool) {
	for _, f := range Inputs(content, regexp.QuoteMeta(name)) {
		if f.Value != "" {
			return f.Value, true
		}
	}
	return "", false
}
