// Package kb maps key names to the Input.dispatchKeyEvent fields Chrome
// expects, grounded on the teacher's kb package (gen.go's Key shape) though
// hand-written here rather than code-generated, since the teacher's actual
// generated table (kbdata.go) isn't part of the retrieved pack.
package kb

// Key describes one keyboard key's encoding for CDP's Input domain.
type Key struct {
	Code      string
	Key       string
	Text      string
	Unmodified string
	Native    int64
	Windows   int64
	Shift     bool
}

// Keys maps a named key ("Enter", "Backspace", ...) to its Key encoding.
// Only the handful of keys chromectl's PressKey helper needs are populated;
// Tab.PressKey falls back to ForRune for a single-character name not in the
// table, and Tab.TypeStr encodes every rune with ForRune without consulting
// the table.
var Keys = map[string]Key{
	"Backspace": {Code: "Backspace", Key: "Backspace", Native: 8, Windows: 8},
	"Tab":       {Code: "Tab", Key: "Tab", Native: 9, Windows: 9},
	"Enter":     {Code: "Enter", Key: "Enter", Text: "\r", Native: 13, Windows: 13},
	"Escape":    {Code: "Escape", Key: "Escape", Native: 27, Windows: 27},
	"Space":     {Code: "Space", Key: " ", Text: " ", Native: 32, Windows: 32},
	"ArrowLeft":  {Code: "ArrowLeft", Key: "ArrowLeft", Native: 37, Windows: 37},
	"ArrowUp":    {Code: "ArrowUp", Key: "ArrowUp", Native: 38, Windows: 38},
	"ArrowRight": {Code: "ArrowRight", Key: "ArrowRight", Native: 39, Windows: 39},
	"ArrowDown":  {Code: "ArrowDown", Key: "ArrowDown", Native: 40, Windows: 40},
	"Delete":    {Code: "Delete", Key: "Delete", Native: 46, Windows: 46},
}

// Lookup returns the Key encoding for name, and whether it was found.
func Lookup(name string) (Key, bool) {
	k, ok := Keys[name]
	return k, ok
}

// ForRune builds a Key encoding for a single printable character, used by
// TypeStr for ordinary text entry (not present in the named Keys table).
func ForRune(r rune) Key {
	s := string(r)
	return Key{Code: "", Key: s, Text: s, Unmodified: s}
}
