package pipeline

import (
	"context"
	"sync"

	"audio-insights-go/internal/types"
)

// BatchResult pairs one job with its pipeline outcome.
type BatchResult struct {
	Job    types.MediaJob       `json:"job"`
	Result types.PipelineResult `json:"result"`
}

// RunBatch processes jobs with a fixed number of workers. Results keep the
// order of jobs. Each job is independent; fatal errors are reported in the
// job's result and never stop the batch. Jobs not yet started when ctx is
// cancelled are skipped and left with a zero result.
func (o *Orchestrator) RunBatch(ctx context.Context, jobs []types.MediaJob, workers int) []BatchResult {
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	results := make([]BatchResult, len(jobs))
	indexes := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range indexes {
				job := jobs[i]
				o.log.WithFields(map[string]any{"worker": worker, "media_ref": job.Ref, "label": job.Label}).Info("batch job started")
				res, _ := o.Process(ctx, types.MediaAsset{Ref: job.Ref, Retain: job.Retain})
				results[i] = BatchResult{Job: job, Result: res}
			}
		}(w)
	}

feed:
	for i := range jobs {
		results[i].Job = jobs[i]
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	return results
}
