package transcode

import (
	"context"
	"fmt"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/skillforge/skillforge-backend/internal/platform/envutil"
)

// ResolutionsFromEnv reads the rendition ladder from TRANSCODE_RESOLUTIONS
// (comma-separated), falling back to DefaultResolutions.
func ResolutionsFromEnv() []string {
	raw := envutil.String("TRANSCODE_RESOLUTIONS", "")
	if raw == "" {
		return DefaultResolutions
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return DefaultResolutions
	}
	return out
}

// Start submits one transcode workflow. The workflow ID is derived from the
// content ID so a re-release of the same content does not double-submit while
// a run is in flight.
func Start(ctx context.Context, tc temporalsdkclient.Client, taskQueue string, in Input) error {
	if tc == nil {
		return fmt.Errorf("transcode: temporal client not configured")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        "transcode-" + in.ContentID.String(),
		TaskQueue: taskQueue,
	}
	_, err := tc.ExecuteWorkflow(ctx, opts, WorkflowName, in)
	if err != nil {
		return fmt.Errorf("transcode: start workflow for content %s: %w", in.ContentID, err)
	}
	return nil
}
