package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sitesmith/sitesmith/internal/errors"
	"github.com/sitesmith/sitesmith/internal/section"
)

// MarshalJSON encodes pages as an object in slice order.
func (p Pages) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, page := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(page.Key)
		if err != nil {
			return nil, err
		}
		sections := page.Sections
		if sections == nil {
			sections = []section.Section{}
		}
		val, err := json.Marshal(sections)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a page object or a JSON string holding one.
func (p *Pages) UnmarshalJSON(data []byte) error {
	pages, err := ParsePages(data)
	if err != nil {
		return err
	}
	*p = pages
	return nil
}

// ParsePages decodes a stored pages payload. The payload may be the object
// itself or a JSON string containing it. Empty and null payloads yield no
// pages; anything that is not an object is InvalidData.
func ParsePages(raw []byte) (Pages, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Pages{}, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, errors.NewInvalidData("invalid pages format", err)
		}
		return ParsePages([]byte(inner))
	}
	if raw[0] != '{' {
		return nil, errors.NewInvalidData("invalid pages format", fmt.Errorf("expected an object of pages"))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, errors.NewInvalidData("invalid pages format", err)
	}

	pages := Pages{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.NewInvalidData("invalid pages format", err)
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, errors.NewInvalidData("invalid pages format", err)
		}
		pages.Set(key, DecodeSections(value))
	}
	if _, err := dec.Token(); err != nil {
		return nil, errors.NewInvalidData("invalid pages format", err)
	}
	return pages, nil
}

// DecodeSections decodes a list of sections leniently. A non-list value
// yields an empty list; entries without a type are skipped and entries
// without an id get a fresh one.
func DecodeSections(raw []byte) []section.Section {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []section.Section{}
	}

	out := make([]section.Section, 0, len(items))
	for _, item := range items {
		var m map[string]any
		if err := json.Unmarshal(item, &m); err != nil || m == nil {
			continue
		}
		typ, _ := m["type"].(string)
		if typ == "" {
			continue
		}
		s := section.Section{Type: section.Type(typ)}
		s.ID, _ = m["id"].(string)
		if s.ID == "" {
			s.ID = section.NewID()
		}
		s.Data, _ = m["data"].(map[string]any)
		if s.Data == nil {
			s.Data = map[string]any{}
		}
		s.Locked, _ = m["locked"].(bool)
		s.IsTemplate, _ = m["isTemplate"].(bool)
		out = append(out, s)
	}
	return out
}
