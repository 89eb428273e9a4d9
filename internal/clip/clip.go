// Package clip provides access to the system clipboard. The transport layer
// never imports this package; only the CLI sync loop reads and writes the
// clipboard through it.
//
// New returns the native backend built on golang.design/x/clipboard, or a
// headless no-op backend when no display environment is available (containers,
// servers without X11/Wayland), so a relay-only node still runs.
package clip

// Kind classifies what the clipboard currently holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "empty"
	}
}

// Content is one observation of the clipboard. For KindImage, Data holds the
// PNG-encoded image and Width/Height its pixel dimensions.
type Content struct {
	Kind   Kind
	Text   string
	Width  uint32
	Height uint32
	Data   []byte
}

// Backend is the interface every clipboard implementation satisfies.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard content. An empty clipboard (or one
	// holding only unsupported formats) yields Content{Kind: KindEmpty}, nil.
	Read() (Content, error)

	// WriteText replaces the clipboard with plain text.
	WriteText(text string) error

	// WriteImage replaces the clipboard with a PNG-encoded image.
	WriteImage(width, height uint32, png []byte) error

	// Close releases any resources held by the backend.
	Close()
}
