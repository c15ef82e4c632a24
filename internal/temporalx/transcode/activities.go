package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/platform/ctxutil"
	"github.com/skillforge/skillforge-backend/internal/platform/envutil"
	"github.com/skillforge/skillforge-backend/internal/platform/gcp"
	"github.com/skillforge/skillforge-backend/internal/platform/httpx"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Contents repos.LectureContentRepo
	Bucket   gcp.BucketService

	// TranscoderURL is the ffmpeg worker endpoint. The activity submits a
	// render job and waits for it; the worker reads and writes the video
	// bucket directly.
	TranscoderURL string
	HTTPClient    *http.Client
}

// TranscoderURLFromEnv reads the render endpoint, empty when not configured.
func TranscoderURLFromEnv() string {
	return strings.TrimRight(envutil.String("TRANSCODER_URL", ""), "/")
}

// RenditionKey derives the object key of one rendition from the source key:
// "courses/c1/lecture.mp4" at 720 becomes "courses/c1/lecture_720.mp4".
func RenditionKey(sourceKey, resolution string) string {
	ext := path.Ext(sourceKey)
	base := strings.TrimSuffix(sourceKey, ext)
	return fmt.Sprintf("%s_%s%s", base, resolution, ext)
}

type renderJobRequest struct {
	SourceKey  string `json:"source_key"`
	OutputKey  string `json:"output_key"`
	Resolution string `json:"resolution"`
}

func (a *Activities) RenderRendition(ctx context.Context, req RenditionRequest) (RenditionResult, error) {
	res := RenditionResult{Resolution: strings.TrimSpace(req.Resolution)}
	if a == nil || a.Bucket == nil {
		return res, fmt.Errorf("transcode: activity not configured")
	}
	if res.Resolution == "" {
		return res, fmt.Errorf("transcode: missing resolution")
	}

	exists, err := a.Bucket.FileExists(ctx, gcp.BucketCategoryVideo, req.SourceKey)
	if err != nil {
		return res, fmt.Errorf("transcode: check source %q: %w", req.SourceKey, err)
	}
	if !exists {
		return res, fmt.Errorf("transcode: source object %q not found", req.SourceKey)
	}

	res.OutputKey = RenditionKey(req.SourceKey, res.Resolution)

	// Idempotent re-run: a previously rendered output is accepted as-is.
	if done, err := a.Bucket.FileExists(ctx, gcp.BucketCategoryVideo, res.OutputKey); err == nil && done {
		return res, nil
	}

	if strings.TrimSpace(a.TranscoderURL) == "" {
		return res, fmt.Errorf("transcode: TRANSCODER_URL not configured")
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	if err := a.submitRenderJob(ctx, renderJobRequest{
		SourceKey:  req.SourceKey,
		OutputKey:  res.OutputKey,
		Resolution: res.Resolution,
	}); err != nil {
		return res, err
	}

	done, err := a.Bucket.FileExists(ctx, gcp.BucketCategoryVideo, res.OutputKey)
	if err != nil {
		return res, fmt.Errorf("transcode: verify output %q: %w", res.OutputKey, err)
	}
	if !done {
		return res, fmt.Errorf("transcode: render finished but output %q missing", res.OutputKey)
	}
	return res, nil
}

func (a *Activities) submitRenderJob(ctx context.Context, job renderJobRequest) error {
	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Hour}
	}

	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, a.TranscoderURL+"/v1/render", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("transcode: render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		verb := "rejected"
		if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			verb = "failed"
		}
		return fmt.Errorf("transcode: render %s: status=%d body=%s", verb, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

func (a *Activities) RecordRenditions(ctx context.Context, req RecordRequest) error {
	if a == nil || a.Contents == nil {
		return fmt.Errorf("transcode: activity not configured")
	}
	if len(req.Resolutions) == 0 {
		return fmt.Errorf("transcode: no resolutions to record")
	}
	err := a.Contents.UpdateFields(ctx, a.DB, req.ContentID, map[string]any{
		"renditions": datatypes.NewJSONSlice(req.Resolutions),
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("transcode: record renditions for %s: %w", req.ContentID, err)
	}
	if a.Log != nil {
		a.Log.Info("Recorded renditions", "content_id", req.ContentID, "resolutions", strings.Join(req.Resolutions, ","))
	}
	return nil
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
