package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
)

const mlflowAPI = "/api/2.0/mlflow/"

// invalidKeyChars matches characters MLflow rejects in metric, param and tag keys.
var invalidKeyChars = regexp.MustCompile(`[^A-Za-z0-9_\-. /]`)

// MLflowClient talks to the MLflow tracking REST API.
type MLflowClient struct {
	BaseURL  *url.URL
	HTTP     *http.Client
	Token    string
	Username string
	Password string
}

// NewMLflowClient builds a client for trackingURI. Credentials are read from
// MLFLOW_TRACKING_TOKEN or MLFLOW_TRACKING_USERNAME / MLFLOW_TRACKING_PASSWORD.
func NewMLflowClient(trackingURI string) (*MLflowClient, error) {
	if trackingURI == "" {
		return nil, fmt.Errorf("%w: MLflow tracking URI is empty", common.ErrInvalidConfig)
	}
	u, err := url.Parse(strings.TrimRight(trackingURI, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: MLflow tracking URI must be http(s), got %q", common.ErrInvalidConfig, trackingURI)
	}
	return &MLflowClient{
		BaseURL:  u,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Token:    os.Getenv("MLFLOW_TRACKING_TOKEN"),
		Username: os.Getenv("MLFLOW_TRACKING_USERNAME"),
		Password: os.Getenv("MLFLOW_TRACKING_PASSWORD"),
	}, nil
}

type mlflowTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type mlflowRunInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	ArtifactURI  string `json:"artifact_uri"`
}

type mlflowRunResponse struct {
	Run struct {
		Info mlflowRunInfo `json:"info"`
	} `json:"run"`
}

// StartRun creates a run, or attaches to MLFLOW_RUN_ID when it is set.
func (c *MLflowClient) StartRun(ctx context.Context, experimentID, name string) (*MLflowRun, error) {
	var resp mlflowRunResponse

	if runID := os.Getenv("MLFLOW_RUN_ID"); runID != "" {
		q := url.Values{"run_id": {runID}}
		if err := c.call(ctx, http.MethodGet, "runs/get?"+q.Encode(), nil, &resp); err != nil {
			return nil, err
		}
	} else {
		if experimentID == "" {
			experimentID = os.Getenv("MLFLOW_EXPERIMENT_ID")
		}
		if experimentID == "" {
			experimentID = "0"
		}
		req := map[string]any{
			"experiment_id": experimentID,
			"start_time":    time.Now().UnixMilli(),
		}
		if name != "" {
			req["run_name"] = name
			req["tags"] = []mlflowTag{{Key: "mlflow.runName", Value: name}}
		}
		if err := c.call(ctx, http.MethodPost, "runs/create", req, &resp); err != nil {
			return nil, err
		}
	}

	if resp.Run.Info.RunID == "" {
		return nil, fmt.Errorf("%w: MLflow returned no run id", common.ErrTracking)
	}
	return &MLflowRun{client: c, info: resp.Run.Info}, nil
}

func (c *MLflowClient) endpoint(p string) string {
	u := *c.BaseURL
	rel, query, _ := strings.Cut(p, "?")
	u.Path = strings.TrimRight(u.Path, "/") + rel
	u.RawQuery = query
	return u.String()
}

func (c *MLflowClient) authorize(req *http.Request) {
	switch {
	case c.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.Token)
	case c.Username != "":
		req.SetBasicAuth(c.Username, c.Password)
	}
}

func (c *MLflowClient) call(ctx context.Context, method, p string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode MLflow request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(mlflowAPI+p), reader)
	if err != nil {
		return fmt.Errorf("failed to build MLflow request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.do(req, p, out)
}

func (c *MLflowClient) do(req *http.Request, what string, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrTracking, what, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: reading response: %w", common.ErrTracking, what, err)
	}
	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: %s: %s: %s", common.ErrTracking, what, apiErr.ErrorCode, apiErr.Message)
		}
		return fmt.Errorf("%w: %s: unexpected status %s", common.ErrTracking, what, resp.Status)
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("%w: %s: decoding response: %w", common.ErrTracking, what, err)
		}
	}
	return nil
}

// MLflowRun is a run on an MLflow tracking server.
type MLflowRun struct {
	client *MLflowClient
	info   mlflowRunInfo
	steps  map[string]int64
}

func (r *MLflowRun) ID() string { return r.info.RunID }

// SanitizeKey replaces characters MLflow does not accept in keys and trims the result.
func SanitizeKey(key string) string {
	k := strings.TrimSpace(invalidKeyChars.ReplaceAllString(key, ""))
	if k == "" {
		return "_"
	}
	return k
}

func (r *MLflowRun) LogMetric(ctx context.Context, key string, value float64) error {
	key = SanitizeKey(key)
	if r.steps == nil {
		r.steps = map[string]int64{}
	}
	step := r.steps[key]
	r.steps[key]++
	return r.client.call(ctx, http.MethodPost, "runs/log-metric", map[string]any{
		"run_id":    r.info.RunID,
		"key":       key,
		"value":     value,
		"timestamp": time.Now().UnixMilli(),
		"step":      step,
	}, nil)
}

func (r *MLflowRun) LogParam(ctx context.Context, key, value string) error {
	return r.client.call(ctx, http.MethodPost, "runs/log-parameter", map[string]any{
		"run_id": r.info.RunID,
		"key":    SanitizeKey(key),
		"value":  value,
	}, nil)
}

func (r *MLflowRun) SetTag(ctx context.Context, key, value string) error {
	return r.client.call(ctx, http.MethodPost, "runs/set-tag", map[string]any{
		"run_id": r.info.RunID,
		"key":    SanitizeKey(key),
		"value":  value,
	}, nil)
}

// LogArtifact uploads a file through the server's artifact proxy
// (mlflow-artifacts:/ URIs) or copies it into a local artifact root (file URIs).
func (r *MLflowRun) LogArtifact(ctx context.Context, localPath string) error {
	uri := r.info.ArtifactURI
	name := filepath.Base(localPath)

	switch {
	case strings.HasPrefix(uri, "mlflow-artifacts:"):
		rest := strings.TrimPrefix(strings.TrimPrefix(uri, "mlflow-artifacts:"), "//")
		// An authority part, if any, is dropped; the proxy is the tracking server itself.
		if i := strings.Index(rest, "/"); i > 0 && !strings.HasPrefix(rest, "/") {
			rest = rest[i:]
		}
		f, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open artifact: %w", err)
		}
		defer f.Close()

		target := r.client.endpoint("/api/2.0/mlflow-artifacts/artifacts/" + strings.TrimPrefix(path.Join(rest, name), "/"))
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, f)
		if err != nil {
			return fmt.Errorf("failed to build artifact upload: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		r.client.authorize(req)
		return r.client.do(req, "artifact upload", nil)

	case strings.HasPrefix(uri, "file://") || filepath.IsAbs(uri):
		dir := strings.TrimPrefix(uri, "file://")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
		return copyFile(localPath, filepath.Join(dir, name))

	default:
		return fmt.Errorf("%w: unsupported artifact URI %q", common.ErrTracking, uri)
	}
}

func (r *MLflowRun) End(ctx context.Context, status Status) error {
	return r.client.call(ctx, http.MethodPost, "runs/update", map[string]any{
		"run_id":   r.info.RunID,
		"status":   string(status),
		"end_time": time.Now().UnixMilli(),
	}, nil)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create artifact copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	return out.Close()
}
