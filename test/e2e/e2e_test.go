package e2e

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func upload(t *testing.T, baseURL, filename string, content []byte) models.UploadResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(baseURL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var out models.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func awaitJob(t *testing.T, baseURL, jobID string) models.JobStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/job/" + jobID)
		if err != nil {
			t.Fatal(err)
		}
		var status models.JobStatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			resp.Body.Close()
			t.Fatal(err)
		}
		resp.Body.Close()
		if status.Status == string(models.JobCompleted) || status.Status == string(models.JobFailed) {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", jobID)
	return models.JobStatusResponse{}
}

func ask(t *testing.T, baseURL, question string) models.QueryResponse {
	t.Helper()
	body, _ := json.Marshal(models.QueryRequest{Question: question})
	resp, err := http.Post(baseURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query status = %d", resp.StatusCode)
	}
	var out models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

// A 600-word document chunks into two windows (0..499 and 450..599). The
// marker sentence sits in the overlap region, so either chunk can serve as
// evidence and the question must still be answerable.
func TestE2E_AnswerFromOverlapRegion(t *testing.T) {
	ts := newStack(t)

	marker := "the warranty period lasts exactly twenty four months"
	doc := corpusDocument(600, map[int]string{470: marker})

	up := upload(t, ts.URL, "warranty.txt", []byte(doc))
	job := awaitJob(t, ts.URL, up.JobID)
	if job.Status != string(models.JobCompleted) {
		t.Fatalf("ingestion ended %s (%s)", job.Status, job.Detail)
	}
	if !strings.Contains(job.Detail, "2 chunks") {
		t.Errorf("detail = %q, want 2 chunks for a 600-word document", job.Detail)
	}

	answer := ask(t, ts.URL, "how many months does the warranty period last")
	if answer.Answer != "generated from the excerpts" {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Evidence) == 0 {
		t.Fatal("no evidence returned")
	}
	found := false
	for _, ev := range answer.Evidence {
		if strings.Contains(ev.Chunk.Text, "warranty") {
			found = true
		}
		if len(ev.Chunk.Text) > 303 {
			t.Errorf("evidence text %d chars, want <= 300 plus ellipsis", len(ev.Chunk.Text))
		}
	}
	if !found {
		t.Error("no evidence chunk contains the marker words")
	}
	if answer.Metrics == nil || answer.Metrics.TotalLatencyMs < 0 {
		t.Errorf("metrics = %+v", answer.Metrics)
	}
}

func TestE2E_MetricsAccumulateAcrossQueries(t *testing.T) {
	ts := newStack(t)

	up := upload(t, ts.URL, "notes.txt", []byte("kubernetes deployment rollout requires a readiness probe"))
	if job := awaitJob(t, ts.URL, up.JobID); job.Status != string(models.JobCompleted) {
		t.Fatalf("ingestion ended %s (%s)", job.Status, job.Detail)
	}

	questions := []string{
		"what does a deployment rollout require",
		"how are readiness probes used",
		"what is configured for kubernetes",
	}
	for _, q := range questions {
		ask(t, ts.URL, q)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var summary models.MetricsSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalQueries != len(questions) {
		t.Errorf("total queries = %d, want %d", summary.TotalQueries, len(questions))
	}
	if len(summary.RecentQueries) != len(questions) {
		t.Errorf("recent queries = %d, want %d", len(summary.RecentQueries), len(questions))
	}
	if summary.MinLatencyMs > summary.MaxLatencyMs {
		t.Errorf("min %f > max %f", summary.MinLatencyMs, summary.MaxLatencyMs)
	}
	// Most recent question comes last in the window.
	last := summary.RecentQueries[len(summary.RecentQueries)-1]
	if last.Question != questions[len(questions)-1] {
		t.Errorf("last recent question = %q", last.Question)
	}
}

func TestE2E_FailedIngestionLeavesNothingBehind(t *testing.T) {
	ts := newStack(t)

	// Corrupt PDF fails during extraction.
	up := upload(t, ts.URL, "broken.pdf", []byte("not a real pdf"))
	job := awaitJob(t, ts.URL, up.JobID)
	if job.Status != string(models.JobFailed) {
		t.Fatalf("ingestion ended %s, want failed", job.Status)
	}

	answer := ask(t, ts.URL, "what does the broken document say")
	if len(answer.Evidence) != 0 {
		t.Errorf("failed ingestion left %d retrievable chunks", len(answer.Evidence))
	}

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health["vector_index_size"] != float64(0) {
		t.Errorf("vector_index_size = %v, want 0", health["vector_index_size"])
	}
}
