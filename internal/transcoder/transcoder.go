package transcoder

import (
	"context"

	"github.com/hszk-dev/clipforge/internal/domain/model"
)

// Transcoder runs one edit job: read inputPath, apply the edit options,
// write the result to outputPath. Probe reports the media duration of a
// finished file in seconds.
type Transcoder interface {
	Process(ctx context.Context, inputPath, outputPath string, opts model.EditOptions) error
	Probe(ctx context.Context, path string) (float64, error)
}
