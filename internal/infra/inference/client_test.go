package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
	domain "github.com/ahmad9059/sehatscan/internal/domain/inference"
	"github.com/ahmad9059/sehatscan/internal/domain/outcome"
)

func testArtifact() *analysis.Artifact {
	return &analysis.Artifact{Name: "selfie.jpg", ContentType: "image/jpeg", Size: 3, Data: []byte("img")}
}

func newTestClient(url string, timeouts Timeouts) *Client {
	return NewClient(url, "test-key", timeouts, nil)
}

func TestAnalyzeArtifact_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, pathFace, r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		require.Equal(t, "selfie.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"visual_metrics":{"redness_percent":12.5}}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())

	require.True(t, res.Success)
	require.Contains(t, res.Data, "visual_metrics")
}

func TestAnalyzeArtifact_TimeoutIsNotNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cli := newTestClient(srv.URL, Timeouts{Face: 20 * time.Millisecond})
	res := cli.AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())

	require.False(t, res.Success)
	require.Equal(t, outcome.KindTimeout, res.ErrorKind)
	require.Contains(t, res.Error, "smaller image")
}

func TestAnalyzeArtifact_ConnectionRefusedIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())

	require.False(t, res.Success)
	require.Equal(t, outcome.KindNetwork, res.ErrorKind)
}

func TestAnalyzeArtifact_BadRequestSurfacesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"no face detected in the image"}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())

	require.False(t, res.Success)
	require.Equal(t, outcome.KindValidation, res.ErrorKind)
	require.Equal(t, "no face detected in the image", res.Error)
}

func TestAnalyzeArtifact_UnprocessableReportIsIllegibleDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"ocr failed"}`))
	}))
	defer srv.Close()

	art := &analysis.Artifact{Name: "labs.pdf", ContentType: "application/pdf", Size: 3, Data: []byte("pdf")}
	res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindReport, art)

	require.False(t, res.Success)
	require.Equal(t, outcome.KindValidation, res.ErrorKind)
	require.Contains(t, res.Error, "could not be read clearly")
}

func TestAnalyzeArtifact_UnprocessableFaceIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())

	require.False(t, res.Success)
	require.Equal(t, outcome.KindService, res.ErrorKind)
	require.Equal(t, "service error (422)", res.Error)
}

func TestAnalyzeArtifact_TooManyRequestsOverridesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"internal quota pool q-7 drained"}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())

	require.False(t, res.Success)
	require.Equal(t, outcome.KindRateLimit, res.ErrorKind)
	require.NotContains(t, res.Error, "q-7")
	require.Contains(t, res.Error, "busy")
}

func TestAnalyzeArtifact_ServerErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"stack trace: model_worker.py line 42"}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())

	require.False(t, res.Success)
	require.Equal(t, outcome.KindService, res.ErrorKind)
	require.NotContains(t, res.Error, "model_worker")
}

func TestAnalyzeArtifact_MalformedSuccessBodyIsServiceError(t *testing.T) {
	for _, body := range []string{"not json at all", `[1,2,3]`, `"just a string"`, `null`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}))

		res := newTestClient(srv.URL, Timeouts{}).AnalyzeArtifact(context.Background(), analysis.KindFace, testArtifact())
		srv.Close()

		require.False(t, res.Success, "body %q", body)
		require.Equal(t, outcome.KindService, res.ErrorKind, "body %q", body)
		require.Contains(t, res.Error, "invalid results", "body %q", body)
	}
}

func TestAssessRisk_SendsCombinedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, pathRisk, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"narrative":"Overall risk level: low"}`))
	}))
	defer srv.Close()

	payload := domain.RiskPayload{
		LabData:  []analysis.Metric{{Name: "Glucose", Value: "95", Status: analysis.StatusNormal}},
		UserData: map[string]any{"age": 34},
	}
	res := newTestClient(srv.URL, Timeouts{}).AssessRisk(context.Background(), payload)

	require.True(t, res.Success)
	require.Equal(t, "Overall risk level: low", res.Data["narrative"])
}

func TestAssessRisk_TimeoutMessageIsRiskSpecific(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cli := newTestClient(srv.URL, Timeouts{Risk: 20 * time.Millisecond})
	res := cli.AssessRisk(context.Background(), domain.RiskPayload{UserData: map[string]any{}})

	require.False(t, res.Success)
	require.Equal(t, outcome.KindTimeout, res.ErrorKind)
	require.Contains(t, res.Error, "risk assessment")
}
