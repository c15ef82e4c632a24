package transcode

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// DefaultResolutions is the rendition ladder produced when the submitter
// doesn't pin one.
var DefaultResolutions = []string{"1080", "720", "480"}

// Workflow renders every requested resolution for one video content row and
// then records the completed set on the row. Renditions render sequentially;
// a partially transcoded ladder is never recorded.
func Workflow(ctx workflow.Context, in Input) error {
	if strings.TrimSpace(in.SourceKey) == "" {
		return fmt.Errorf("transcode: missing source_key")
	}
	resolutions := in.Resolutions
	if len(resolutions) == 0 {
		resolutions = DefaultResolutions
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    5,
		},
	})

	done := make([]string, 0, len(resolutions))
	for _, res := range resolutions {
		req := RenditionRequest{
			ContentID:  in.ContentID,
			SourceKey:  in.SourceKey,
			Resolution: res,
		}
		var out RenditionResult
		if err := workflow.ExecuteActivity(ctx, ActivityRenderRendition, req).Get(ctx, &out); err != nil {
			return err
		}
		done = append(done, out.Resolution)
	}

	record := RecordRequest{ContentID: in.ContentID, Resolutions: done}
	return workflow.ExecuteActivity(ctx, ActivityRecordRenditions, record).Get(ctx, nil)
}
