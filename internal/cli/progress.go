package cli

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/templatestudio/pkg/export"
	"github.com/matzehuels/templatestudio/pkg/observability"
)

// stageMessages describe what the exporter does after each stage.
var stageMessages = map[string]string{
	export.StageFonts:   "Loading images...",
	export.StageImages:  "Rendering...",
	export.StageWarmUp:  "Waiting for layout to settle...",
	export.StageSettle:  "Capturing...",
	export.StageCapture: "Writing file...",
}

// stageReporter shows export stages on the attached spinner. It is
// registered once as the process-wide export hooks.
type stageReporter struct {
	observability.NoopExportHooks

	mu      sync.Mutex
	spinner *Spinner
}

func (r *stageReporter) attach(s *Spinner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spinner = s
}

func (r *stageReporter) OnStageComplete(_ context.Context, _, stage string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner == nil || err != nil {
		return
	}
	if msg, ok := stageMessages[stage]; ok {
		r.spinner.SetMessage(msg)
	}
}
