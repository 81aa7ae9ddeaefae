package recorder

import "strings"

// LineTerminator ends every transcript entry
const LineTerminator = "\r\n"

// Transcript is the append-only text shown to the user. Entries are never
// edited or reordered; the buffer is only appended to or cleared.
type Transcript struct {
	entries []string
	size    int
}

// Append adds one entry
func (t *Transcript) Append(entry string) {
	t.entries = append(t.entries, entry)
	t.size += len(entry)
}

// Clear empties the buffer
func (t *Transcript) Clear() {
	t.entries = nil
	t.size = 0
}

// Len returns the length of the text in bytes
func (t *Transcript) Len() int {
	return t.size
}

// Entries returns a copy of the entries in insertion order
func (t *Transcript) Entries() []string {
	return append([]string(nil), t.entries...)
}

// String returns the full text
func (t *Transcript) String() string {
	var b strings.Builder
	b.Grow(t.size)
	for _, entry := range t.entries {
		b.WriteString(entry)
	}
	return b.String()
}
