package datacloud_test

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/natserract/datacloud/pkg/datacloud"
)

func TestListJobsPassesFilters(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)

	var gotQuery url.Values
	f.mux.HandleFunc("GET /api/v1/ingest/jobs", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(t, w, r) {
			return
		}
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"data":[
			{"id":"job-1","state":"Open","operation":"upsert","object":"runner_profiles","sourceName":"Event_API","systemModstamp":"2026-08-29T10:00:00.000Z"},
			{"id":"job-2","state":"InProgress","operation":"delete","object":"runner_profiles","sourceName":"Event_API","systemModstamp":"2026-08-29T11:00:00.000Z"}
		]}`))
	})

	client := newTestClient(t, f)
	list, err := client.ListJobs(context.Background(), datacloud.ListJobsParams{
		Limit:  50,
		States: datacloud.ActiveJobStates,
	})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}

	if gotQuery.Get("limit") != "50" {
		t.Fatalf("expected limit 50, got %q", gotQuery.Get("limit"))
	}
	if gotQuery.Get("states") != "Open,UploadComplete,InProgress" {
		t.Fatalf("expected active states filter, got %q", gotQuery.Get("states"))
	}

	if len(list.Data) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list.Data))
	}
	if list.Data[0].ID != "job-1" || list.Data[0].State != datacloud.JobStateOpen {
		t.Fatalf("unexpected first job: %+v", list.Data[0])
	}
	if list.Data[1].SystemModstamp.IsZero() {
		t.Fatal("expected systemModstamp to parse")
	}
}

func TestJobInfo(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)
	f.mux.HandleFunc("GET /api/v1/ingest/jobs/job-9", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"job-9","state":"JobComplete","operation":"upsert","object":"runner_profiles","sourceName":"Event_API","createdDate":"2026-08-28T09:30:00.000Z","retries":1}`))
	})

	client := newTestClient(t, f)
	job, err := client.JobInfo(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("JobInfo: %v", err)
	}
	if job.State != datacloud.JobStateJobComplete {
		t.Fatalf("expected JobComplete, got %q", job.State)
	}
	if job.Retries != 1 {
		t.Fatalf("expected 1 retry, got %d", job.Retries)
	}
}

func TestAbortAllJobsAbortsOpenAndUploadComplete(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)

	var gotStates string
	f.mux.HandleFunc("GET /api/v1/ingest/jobs", func(w http.ResponseWriter, r *http.Request) {
		gotStates = r.URL.Query().Get("states")
		w.Write([]byte(`{"data":[
			{"id":"job-1","state":"Open"},
			{"id":"job-2","state":"UploadComplete"}
		]}`))
	})

	var mu sync.Mutex
	aborted := map[string]bool{}
	abortHandler := func(jobID string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			aborted[jobID] = true
			mu.Unlock()
			w.Write([]byte(`{"id":"` + jobID + `","state":"Aborted"}`))
		}
	}
	f.mux.HandleFunc("PATCH /api/v1/ingest/jobs/job-1", abortHandler("job-1"))
	f.mux.HandleFunc("PATCH /api/v1/ingest/jobs/job-2", abortHandler("job-2"))

	client := newTestClient(t, f)
	count, err := client.AbortAllJobs(context.Background())
	if err != nil {
		t.Fatalf("AbortAllJobs: %v", err)
	}

	if gotStates != "Open,UploadComplete" {
		t.Fatalf("expected Open,UploadComplete filter, got %q", gotStates)
	}
	if count != 2 {
		t.Fatalf("expected 2 jobs aborted, got %d", count)
	}
	if !aborted["job-1"] || !aborted["job-2"] {
		t.Fatalf("expected both jobs aborted, got %v", aborted)
	}
}

func TestAbortAllJobsReportsFailures(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)
	f.mux.HandleFunc("GET /api/v1/ingest/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"job-1","state":"Open"}]}`))
	})
	f.mux.HandleFunc("PATCH /api/v1/ingest/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"gone"}`, http.StatusNotFound)
	})

	client := newTestClient(t, f)
	if _, err := client.AbortAllJobs(context.Background()); err == nil {
		t.Fatal("expected error when abort fails")
	}
}
