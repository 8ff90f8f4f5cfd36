package app

import (
	"io"
	"log/slog"

	"github.com/vk/framegraph/internal/registry"
	"github.com/vk/framegraph/internal/source"
	"github.com/vk/framegraph/modules/frames"
	"github.com/vk/framegraph/modules/imgops"
	"github.com/vk/framegraph/modules/morphology"
	"github.com/vk/framegraph/modules/print"
)

// coreModules is the definitive list of all modules that are compiled into
// the framegraph binary.
func coreModules(frameService source.FrameService, out io.Writer, logger *slog.Logger) []registry.Module {
	return []registry.Module{
		&frames.Module{Frames: frameService, Logger: logger},
		&imgops.Module{},
		&morphology.Module{},
		&print.Module{Out: out},
	}
}
