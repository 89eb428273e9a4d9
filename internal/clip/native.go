package clip

import (
	"bytes"
	"image/png"
	"log/slog"

	"golang.design/x/clipboard"
)

type nativeBackend struct{}

// New returns the native clipboard backend. clipboard.Init is called here
// rather than in init() so short-lived sub-commands don't trigger the
// headless warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	return nativeBackend{}
}

func (nativeBackend) Name() string { return "system clipboard" }

// Read prefers the image format when both are present, matching how the
// original change detector classifies mixed clipboard states.
func (nativeBackend) Read() (Content, error) {
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		w, h := pngDimensions(img)
		return Content{Kind: KindImage, Width: w, Height: h, Data: img}, nil
	}
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		return Content{Kind: KindText, Text: string(text)}, nil
	}
	return Content{Kind: KindEmpty}, nil
}

func (nativeBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (nativeBackend) WriteImage(_, _ uint32, data []byte) error {
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

func (nativeBackend) Close() {}

// pngDimensions reads the image header only; a payload that is not valid PNG
// reports 0x0 rather than failing the read.
func pngDimensions(data []byte) (uint32, uint32) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return uint32(cfg.Width), uint32(cfg.Height)
}
