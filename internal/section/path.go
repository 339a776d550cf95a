package section

import (
	"strconv"
	"strings"

	"github.com/sitesmith/sitesmith/internal/errors"
)

// maxIndex bounds list indices in a field path so a bad path cannot
// auto-vivify an enormous list.
const maxIndex = 999

// Segment is one step of a field path: a key, optionally followed by a list index.
type Segment struct {
	Key     string
	Index   int
	Indexed bool
}

// Path addresses one editable leaf inside a section's data.
// "title", "features[2].title" and "plans[0].features[1]" all parse to a Path.
type Path []Segment

// Key builds a single-key path.
func Key(key string) Path {
	return Path{{Key: key}}
}

// ParsePath parses the dotted field path notation used by the editable canvas.
func ParsePath(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.NewValidation("field path is required")
	}

	parts := strings.Split(raw, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, errors.NewValidation("invalid field path " + strconv.Quote(raw) + ": " + err.Error())
		}
		path = append(path, seg)
	}
	return path, nil
}

func parseSegment(part string) (Segment, error) {
	key := part
	seg := Segment{}
	if open := strings.IndexByte(part, '['); open >= 0 {
		if !strings.HasSuffix(part, "]") {
			return seg, errString("unterminated index")
		}
		idx, err := strconv.Atoi(part[open+1 : len(part)-1])
		if err != nil || idx < 0 {
			return seg, errString("index must be a non-negative integer")
		}
		if idx > maxIndex {
			return seg, errString("index out of range")
		}
		key = part[:open]
		seg.Index = idx
		seg.Indexed = true
	}
	if !isIdent(key) {
		return seg, errString("bad key " + strconv.Quote(key))
	}
	seg.Key = key
	return seg, nil
}

type errString string

func (e errString) Error() string { return string(e) }

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// String renders the path back to its dotted notation.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
		if seg.Indexed {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// Index builds a path starting at element idx of the list under key.
func Index(key string, idx int) Path {
	return Path{{Key: key, Index: idx, Indexed: true}}
}

// Then extends p with a further key or indexed key.
func (p Path) Then(key string) Path {
	return append(append(Path{}, p...), Segment{Key: key})
}

// ThenIndex extends p with an indexed list element.
func (p Path) ThenIndex(key string, idx int) Path {
	return append(append(Path{}, p...), Segment{Key: key, Index: idx, Indexed: true})
}

// Apply writes value at p inside data, creating missing records and lists
// along the way. Holes in a list are filled with empty records, or empty
// strings when the list holds the written leaf.
func (p Path) Apply(data map[string]any, value any) {
	if len(p) == 0 || data == nil {
		return
	}
	cur := data
	for i, seg := range p {
		last := i == len(p)-1
		if !seg.Indexed {
			if last {
				cur[seg.Key] = value
				return
			}
			next, ok := cur[seg.Key].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[seg.Key] = next
			}
			cur = next
			continue
		}

		list := asList(cur[seg.Key])
		for len(list) <= seg.Index {
			if last {
				list = append(list, "")
			} else {
				list = append(list, map[string]any{})
			}
		}
		if last {
			list[seg.Index] = value
			cur[seg.Key] = list
			return
		}
		next, ok := list[seg.Index].(map[string]any)
		if !ok {
			next = map[string]any{}
			list[seg.Index] = next
		}
		cur[seg.Key] = list
		cur = next
	}
}

// Get reads the value at p. The second result is false when any step is missing.
func (p Path) Get(data map[string]any) (any, bool) {
	if len(p) == 0 {
		return nil, false
	}
	var cur any = data
	for _, seg := range p {
		rec, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = rec[seg.Key]
		if !ok {
			return nil, false
		}
		if seg.Indexed {
			list := asList(cur)
			if seg.Index >= len(list) {
				return nil, false
			}
			cur = list[seg.Index]
		}
	}
	return cur, true
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}
