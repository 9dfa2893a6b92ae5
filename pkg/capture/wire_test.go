package capture_test

import (
	"github.com/argusops/argus-go/pkg/agent"
	"github.com/argusops/argus-go/pkg/capture"
)

// The concrete agent must satisfy the watcher-facing surface.
var _ capture.Recorder = (*agent.Agent)(nil)
