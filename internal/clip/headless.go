package clip

// headlessBackend is the no-op fallback for environments without a display.
// Reads report an empty clipboard and writes are discarded, so a node can
// still relay between other peers.
type headlessBackend struct{}

func (headlessBackend) Name() string { return "headless (no clipboard)" }

func (headlessBackend) Read() (Content, error) { return Content{Kind: KindEmpty}, nil }

func (headlessBackend) WriteText(string) error { return nil }

func (headlessBackend) WriteImage(_, _ uint32, _ []byte) error { return nil }

func (headlessBackend) Close() {}
