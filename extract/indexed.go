package extract

import (
	"regexp"
	"strings"
)

// Convention is a field naming scheme of the form-based dialects.
type Convention int

const (
	// Underscored names look like rpVlanport_Ipt_PVID.
	Underscored Convention = iota
	// Lowercase names look like rpvlanport_IptPVID.
	Lowercase
)

// Page returns the page prefix in the convention's casing.
func (c Convention) Page(page string) string {
	if c == Lowercase {
		return strings.ToLower(page)
	}
	return page
}

// Field builds a control name from page prefix, control kind (Ipt, Chk, Slt, ...) and name.
func (c Convention) Field(page, kind, name string) string {
	if c == Lowercase {
		return strings.ToLower(page) + "_" + kind + name
	}
	return page + "_" + kind + "_" + name
}

// Indexed appends the query-style port suffix, rpPort_Ipt_PortName?3.
func Indexed(field, index string) string {
	return field + "?" + index
}

// IndexValue is the value a checkbox carries for one row, ?3.
func IndexValue(index string) string {
	return "?" + index
}

func indexedName(field string) *regexp.Regexp {
	return compile(`(?i)^` + regexp.QuoteMeta(field) + `\?(\d+)$`)
}

// IndexedInputs maps the index of every field?N text input to its value.
func IndexedInputs(content, field string) map[string]string {
	re := indexedName(field)
	values := map[string]string{}
	for _, f := range Inputs(content, regexp.QuoteMeta(field)+`\?\d+`) {
		if m := re.FindStringSubmatch(f.Name); m != nil {
			values[m[1]] = f.Value
		}
	}
	return values
}

// IndexedCheckboxes maps the index of every checkbox called field with a ?N
// value to its checked state. Unchecked boxes are included as false.
func IndexedCheckboxes(content, field string) map[string]bool {
	re := namePattern(regexp.QuoteMeta(field))
	states := map[string]bool{}
	for _, tag := range inputPattern.FindAllString(content, -1) {
		name, ok := Attr(tag, "name")
		if !ok || !re.MatchString(name) {
			continue
		}
		value, ok := Attr(tag, "value")
		if !ok || !strings.HasPrefix(value, "?") {
			continue
		}
		states[strings.TrimPrefix(value, "?")] = Checked(tag)
	}
	return states
}

// IndexedSelects maps the index of every field?N select to its selected option.
func IndexedSelects(content, field string) map[string]Option {
	re := indexedName(field)
	options := map[string]Option{}
	for _, m := range selectPattern.FindAllStringSubmatch(content, -1) {
		name, ok := Attr("<select"+m[1]+">", "name")
		if !ok {
			continue
		}
		idx := re.FindStringSubmatch(name)
		if idx == nil {
			continue
		}
		if opt, ok := SelectedOption(m[2]); ok {
			options[idx[1]] = opt
		}
	}
	return options
}
