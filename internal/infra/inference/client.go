package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
	domain "github.com/ahmad9059/sehatscan/internal/domain/inference"
	"github.com/ahmad9059/sehatscan/internal/domain/outcome"
)

// Per-kind endpoint paths on the inference service.
const (
	pathFace   = "/v1/face-scan"
	pathReport = "/v1/report-analysis"
	pathRisk   = "/v1/risk-assessment"
)

type Timeouts struct {
	Face   time.Duration
	Report time.Duration
	Risk   time.Duration
}

// Client talks to the external inference service. One outbound call per
// invocation, bound to a per-kind deadline, no retries; every failure
// mode is folded into the outcome contract.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	timeouts Timeouts
	log      *zap.Logger
}

func NewClient(baseURL, apiKey string, timeouts Timeouts, log *zap.Logger) *Client {
	if timeouts.Face == 0 {
		timeouts.Face = 30 * time.Second
	}
	if timeouts.Report == 0 {
		timeouts.Report = 60 * time.Second
	}
	if timeouts.Risk == 0 {
		timeouts.Risk = 45 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		// the per-request context carries the deadline, the transport
		// itself stays unbounded
		http:     &http.Client{},
		timeouts: timeouts,
		log:      log,
	}
}

var _ domain.Client = (*Client)(nil)

// AnalyzeArtifact submits artifact bytes for a face or report analysis.
func (c *Client) AnalyzeArtifact(ctx context.Context, kind analysis.Kind, art *analysis.Artifact) outcome.Outcome {
	var path string
	var timeout time.Duration
	switch kind {
	case analysis.KindFace:
		path, timeout = pathFace, c.timeouts.Face
	case analysis.KindReport:
		path, timeout = pathReport, c.timeouts.Report
	default:
		return outcome.Fail(outcome.KindUnexpected, "something went wrong, please try again")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", art.Name)
	if err == nil {
		_, err = part.Write(art.Data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		c.log.Error("multipart encode failed", zap.Error(err))
		return outcome.Fail(outcome.KindUnexpected, "something went wrong, please try again")
	}

	return c.do(ctx, kind, path, mw.FormDataContentType(), &buf, timeout)
}

// AssessRisk submits the combined lab/visual/user payload.
func (c *Client) AssessRisk(ctx context.Context, payload domain.RiskPayload) outcome.Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("risk payload encode failed", zap.Error(err))
		return outcome.Fail(outcome.KindUnexpected, "something went wrong, please try again")
	}
	return c.do(ctx, analysis.KindRisk, pathRisk, "application/json", bytes.NewReader(body), c.timeouts.Risk)
}

func (c *Client) do(ctx context.Context, kind analysis.Kind, path, contentType string, body io.Reader, timeout time.Duration) outcome.Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		c.log.Error("inference request build failed", zap.Error(err))
		return outcome.Fail(outcome.KindUnexpected, "something went wrong, please try again")
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			c.log.Warn("inference call timed out", zap.String("kind", string(kind)), zap.Duration("timeout", timeout))
			return outcome.Fail(outcome.KindTimeout, timeoutMessage(kind))
		}
		c.log.Warn("inference call failed", zap.String("kind", string(kind)), zap.Error(err))
		return outcome.Fail(outcome.KindNetwork, "could not reach the analysis service, please check your connection and try again")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		c.log.Warn("inference response read failed", zap.String("kind", string(kind)), zap.Error(err))
		return outcome.Fail(outcome.KindNetwork, "could not reach the analysis service, please check your connection and try again")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapFailure(kind, resp.StatusCode, raw)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		c.log.Warn("inference response decode failed", zap.String("kind", string(kind)), zap.Int("status", resp.StatusCode))
		return outcome.Fail(outcome.KindService, "the analysis service returned invalid results, please try again")
	}

	return outcome.Outcome{Success: true, Data: data}
}

// mapFailure translates a non-2xx status into the error taxonomy. The
// service's "detail" field is surfaced only for validation statuses;
// everything else gets a generic message.
func (c *Client) mapFailure(kind analysis.Kind, status int, raw []byte) outcome.Outcome {
	detail := decodeDetail(raw)
	c.log.Warn("inference service rejected request",
		zap.String("kind", string(kind)), zap.Int("status", status), zap.String("detail", detail))

	switch {
	case status == http.StatusBadRequest:
		if detail == "" {
			detail = "the analysis service rejected the request"
		}
		return outcome.Fail(outcome.KindValidation, detail)
	case status == http.StatusUnprocessableEntity && kind == analysis.KindReport:
		return outcome.Fail(outcome.KindValidation, "the document could not be read clearly, please upload a sharper photo or a text PDF")
	case status == http.StatusTooManyRequests:
		return outcome.Fail(outcome.KindRateLimit, "the analysis service is busy, please try again in a moment")
	case status >= 500:
		return outcome.Fail(outcome.KindService, "the analysis service had a problem, please try again later")
	default:
		return outcome.Fail(outcome.KindService, fmt.Sprintf("service error (%d)", status))
	}
}

func decodeDetail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Detail
}

func timeoutMessage(kind analysis.Kind) string {
	switch kind {
	case analysis.KindFace:
		return "the analysis took too long, please try again with a smaller image"
	case analysis.KindReport:
		return "the document analysis took too long, please try a smaller or clearer file"
	default:
		return "the risk assessment took too long, please try again"
	}
}
