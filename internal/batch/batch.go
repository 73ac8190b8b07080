// Package batch implements the batch coordinator (C2): groups pending
// provider requests by (platform, model), submits them as provider batch
// jobs, polls until terminal, and demultiplexes results back onto
// directive ids. Grounded on
// original_source/lib/batch_processor.py (BatchRequest, BatchJob,
// group_requests_for_batching, submit_anthropic_batch/submit_openai_batch
// as the two submission families, wait_for_batch_completion's poll loop).
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/logging"
	"github.com/computer-project/computer/internal/provider"
)

// Status is a batch job's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTimeout    Status = "timeout"
)

// Per-platform maximum request count for a single batch, per
// batch_processor.py's max_anthropic_batch_size/max_openai_batch_size.
// Platforms not listed fall back to defaultMaxBatchSize.
const (
	maxAnthropicBatchSize = 10000
	maxOpenAIBatchSize    = 50000
	defaultMaxBatchSize   = 1000
)

// Request is one context-enriched prompt accumulated by the execution
// loop for batch dispatch.
type Request struct {
	DirectiveID string
	Platform    string
	Model       string
	Prompt      string
}

// Result is one demultiplexed outcome, shaped identically to what a
// sequential provider.Gateway.Call would have produced so the execution
// loop can treat both uniformly.
type Result struct {
	DirectiveID string
	Success     bool
	Content     string
	TokensIn    int
	TokensOut   int
	Cost        float64
	Error       string
}

// Job is one submitted (or pending) batch.
type Job struct {
	ID          string
	Platform    string
	Model       string
	Requests    []Request
	RemoteID    string
	Status      Status
	SubmittedAt time.Time
	CompletedAt time.Time
	Error       string
}

// Submitter performs the provider-specific submit/poll/fetch cycle for
// one platform. Anthropic's family submits an inline request array in
// the Submit call; OpenAI's family uploads a JSONL file and references
// it — both satisfy this same interface, each internally following its
// own submission shape.
type Submitter interface {
	// Submit sends job.Requests to the provider and records job.RemoteID
	// and job.SubmittedAt on success.
	Submit(ctx context.Context, job *Job) error
	// Poll checks remote status and returns the current Status. A
	// terminal status (completed/failed) is never polled again.
	Poll(ctx context.Context, job *Job) (Status, error)
	// Fetch downloads and demultiplexes results for a completed job,
	// keyed by the directive id each request carried as its custom id.
	Fetch(ctx context.Context, job *Job) (map[string]Result, error)
}

// Coordinator owns the group/submit/poll/demux cycle.
type Coordinator struct {
	submitters   map[string]Submitter
	descriptors  map[string]provider.Descriptor
	pollInterval time.Duration
	maxWait      time.Duration
	log          *logging.Logger

	sleep func(context.Context, time.Duration)
	now   func() time.Time
}

// New constructs a Coordinator. submitters maps platform name to its
// Submitter; a platform with no entry fails every job routed to it.
func New(submitters map[string]Submitter, descriptors []provider.Descriptor, cfg *config.Config, log *logging.Logger) *Coordinator {
	table := make(map[string]provider.Descriptor, len(descriptors))
	for _, d := range descriptors {
		table[d.Platform+"/"+d.Model] = d
	}

	return &Coordinator{
		submitters:   submitters,
		descriptors:  table,
		pollInterval: cfg.BatchPollInterval(),
		maxWait:      cfg.BatchMaxWait(),
		log:          log,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
		now: time.Now,
	}
}

// Group partitions requests by (platform, model) and chunks each
// partition into jobs bounded by the platform's maximum batch size.
// Every request within a job shares platform and model.
func Group(requests []Request) []*Job {
	type partitionKey struct{ platform, model string }
	partitions := make(map[partitionKey][]Request)
	var order []partitionKey

	for _, r := range requests {
		key := partitionKey{r.Platform, r.Model}
		if _, ok := partitions[key]; !ok {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], r)
	}

	var jobs []*Job
	for _, key := range order {
		group := partitions[key]
		size := maxBatchSize(key.platform)
		for i := 0; i < len(group); i += size {
			end := i + size
			if end > len(group) {
				end = len(group)
			}
			jobs = append(jobs, &Job{
				ID:       "batch_" + uuid.NewString()[:8],
				Platform: key.platform,
				Model:    key.model,
				Requests: group[i:end],
				Status:   StatusPending,
			})
		}
	}
	return jobs
}

func maxBatchSize(platform string) int {
	switch platform {
	case "claude":
		return maxAnthropicBatchSize
	case "openai":
		return maxOpenAIBatchSize
	default:
		return defaultMaxBatchSize
	}
}

// Run groups requests, submits every job concurrently, polls until all
// jobs reach a terminal state or the maximum total wait elapses, and
// returns the full demultiplexed result set — one Result per input
// Request, in no particular order.
func (c *Coordinator) Run(ctx context.Context, requests []Request) (map[string]Result, error) {
	if len(requests) == 0 {
		return map[string]Result{}, nil
	}

	jobs := Group(requests)
	c.log.Info(fmt.Sprintf("batch: created %d job(s) for %d request(s)", len(jobs), len(requests)))

	if err := c.submitAll(ctx, jobs); err != nil {
		return nil, err
	}

	completed := c.waitForCompletion(ctx, jobs)

	results := make(map[string]Result, len(requests))
	for _, job := range completed {
		c.collect(ctx, job, results)
	}
	return results, nil
}

// submitAll submits every pending job concurrently via errgroup; a
// submission failure marks that job failed in place rather than
// aborting the others.
func (c *Coordinator) submitAll(ctx context.Context, jobs []*Job) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			submitter, ok := c.submitters[job.Platform]
			if !ok {
				job.Status = StatusFailed
				job.Error = fmt.Sprintf("batch: no submitter registered for platform %q", job.Platform)
				return nil
			}
			if err := submitter.Submit(gctx, job); err != nil {
				job.Status = StatusFailed
				job.Error = err.Error()
				return nil
			}
			job.Status = StatusSubmitted
			job.SubmittedAt = c.now()
			return nil
		})
	}
	return g.Wait()
}

// waitForCompletion polls every non-terminal job until it reaches
// completed/failed, or marks it timeout once maxWait has elapsed,
// mirroring wait_for_batch_completion's loop.
func (c *Coordinator) waitForCompletion(ctx context.Context, jobs []*Job) []*Job {
	start := c.now()
	pending := make([]*Job, 0, len(jobs))
	done := make([]*Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status == StatusFailed {
			done = append(done, j)
		} else {
			pending = append(pending, j)
		}
	}

	for len(pending) > 0 && c.now().Sub(start) < c.maxWait {
		var remaining []*Job
		for _, job := range pending {
			status, err := c.submitters[job.Platform].Poll(ctx, job)
			if err != nil {
				c.log.Warn("batch: poll failed, will retry next cycle")
				remaining = append(remaining, job)
				continue
			}
			job.Status = status
			if status == StatusCompleted || status == StatusFailed {
				job.CompletedAt = c.now()
				done = append(done, job)
			} else {
				remaining = append(remaining, job)
			}
		}
		pending = remaining

		if len(pending) > 0 {
			c.sleep(ctx, c.pollInterval)
			if ctx.Err() != nil {
				break
			}
		}
	}

	for _, job := range pending {
		job.Status = StatusTimeout
		job.Error = fmt.Sprintf("batch: did not complete within %s", c.maxWait)
		done = append(done, job)
	}

	return done
}

// collect applies a completed job's demultiplexed results (with cost
// accounting via the descriptor table) into out, or synthesizes a
// per-directive failure result for a failed/timeout job.
func (c *Coordinator) collect(ctx context.Context, job *Job, out map[string]Result) {
	if job.Status != StatusCompleted {
		for _, r := range job.Requests {
			out[r.DirectiveID] = Result{DirectiveID: r.DirectiveID, Success: false, Error: job.Error}
		}
		return
	}

	fetched, err := c.submitters[job.Platform].Fetch(ctx, job)
	if err != nil {
		for _, r := range job.Requests {
			out[r.DirectiveID] = Result{DirectiveID: r.DirectiveID, Success: false, Error: err.Error()}
		}
		return
	}

	descriptor, known := c.descriptors[job.Platform+"/"+job.Model]
	for _, r := range job.Requests {
		result, ok := fetched[r.DirectiveID]
		if !ok {
			out[r.DirectiveID] = Result{DirectiveID: r.DirectiveID, Success: false, Error: "batch: no result returned for directive"}
			continue
		}
		if result.Success {
			if known {
				result.Cost = float64(result.TokensIn)/1000*descriptor.InputPricePer1K + float64(result.TokensOut)/1000*descriptor.OutputPricePer1K
			} else {
				c.log.Warn("batch: model absent from descriptor table, cost is zero")
				result.Cost = 0
			}
		}
		out[r.DirectiveID] = result
	}
}
