// Package form holds ordered form field lists as submitted by a browser.
//
// The switches treat a submitted form as the complete state of the page: a
// control missing from the body is reset to its default. A Snapshot therefore
// keeps every control in document order and is re-encoded as a whole.
package form

import (
	"net/url"
	"strings"
)

type Field struct {
	Name  string
	Value string
}

type Snapshot struct {
	fields []Field
}

func New(fields ...Field) *Snapshot {
	s := &Snapshot{}
	for _, f := range fields {
		s.Add(f.Name, f.Value)
	}
	return s
}

// Add appends a field, keeping existing fields with the same name.
func (s *Snapshot) Add(name, value string) {
	s.fields = append(s.fields, Field{Name: name, Value: value})
}

// Set replaces the value of the first field called name and drops any
// further duplicates, appending the field when it is missing.
func (s *Snapshot) Set(name, value string) {
	found := false
	kept := s.fields[:0]
	for _, f := range s.fields {
		if f.Name == name {
			if found {
				continue
			}
			found = true
			f.Value = value
		}
		kept = append(kept, f)
	}
	s.fields = kept
	if !found {
		s.Add(name, value)
	}
}

func (s *Snapshot) Get(name string) (string, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether the exact name/value pair is present.
func (s *Snapshot) Has(name, value string) bool {
	for _, f := range s.fields {
		if f.Name == name && f.Value == value {
			return true
		}
	}
	return false
}

// SetChecked adds or removes a checkbox pair. Checkbox groups share one
// name and are distinguished by their value.
func (s *Snapshot) SetChecked(name, value string, checked bool) {
	if checked {
		if !s.Has(name, value) {
			s.Add(name, value)
		}
		return
	}
	kept := s.fields[:0]
	for _, f := range s.fields {
		if f.Name == name && f.Value == value {
			continue
		}
		kept = append(kept, f)
	}
	s.fields = kept
}

// Remove drops every field called name.
func (s *Snapshot) Remove(name string) {
	kept := s.fields[:0]
	for _, f := range s.fields {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	s.fields = kept
}

func (s *Snapshot) Len() int {
	return len(s.fields)
}

func (s *Snapshot) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{fields: s.Fields()}
}

// Encode url-encodes the fields in order.
func (s *Snapshot) Encode() string {
	return Encode(s.fields)
}

func Encode(fields []Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}

// Parse decodes an url-encoded body keeping field order.
func Parse(body string) (*Snapshot, error) {
	s := &Snapshot{}
	if body == "" {
		return s, nil
	}
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, err
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		s.Add(n, v)
	}
	return s, nil
}
