package pdfco

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 60
)

// PollOption configures job polling.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	maxPolls int
}

// WithPollInterval overrides the delay between job checks.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxPolls overrides how many job checks are made before giving up.
func WithMaxPolls(n int) PollOption {
	return func(c *pollConfig) {
		if n > 0 {
			c.maxPolls = n
		}
	}
}

// Result is the extracted text of a converted PDF.
type Result struct {
	Text      string
	PageCount *int64
	Credits   *int64
}

// ConvertToText converts the PDF at signedURL to text. Async jobs are
// polled until they succeed, fail, or run out of checks. Page count and
// credits always come from the initial response.
func ConvertToText(ctx context.Context, client Client, signedURL string, opts ...PollOption) (*Result, error) {
	if signedURL == "" {
		return nil, eris.New("signedUrl is required for PDF.co conversion.")
	}

	cfg := pollConfig{interval: defaultPollInterval, maxPolls: defaultMaxPolls}
	for _, opt := range opts {
		opt(&cfg)
	}

	start, err := client.StartTextConversion(ctx, signedURL)
	if err != nil {
		return nil, err
	}

	payload := start
	if id := start.ID(); id != "" {
		job, err := pollJob(ctx, client, id, cfg)
		if err != nil {
			return nil, err
		}
		payload = &JobResponse{Body: job.Body, URL: job.URL}
	} else if start.Error.Set {
		return nil, eris.New(errorMessage(start, "PDF.co reported an error while starting the job."))
	}

	text, err := resultText(ctx, client, payload)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, eris.New("PDF.co response did not include extracted text.")
	}

	return &Result{Text: text, PageCount: start.PageCount, Credits: start.Credits}, nil
}

func pollJob(ctx context.Context, client Client, id string, cfg pollConfig) (*JobResponse, error) {
	for attempt := 0; attempt < cfg.maxPolls; attempt++ {
		job, err := client.CheckJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Error.Set {
			return nil, eris.New(errorMessage(job, "PDF.co job check failed with status 200"))
		}

		switch job.Status {
		case "success":
			return job, nil
		case "failed", "error", "aborted":
			msg := job.Message
			if msg == "" {
				msg = "PDF.co job reported an error."
			}
			return nil, eris.New(msg)
		}

		zap.L().Debug("pdfco: job pending",
			zap.String("job_id", id),
			zap.String("status", string(job.Status)),
			zap.Int("attempt", attempt+1),
		)

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "pdfco: poll job %s", id)
		case <-time.After(cfg.interval):
		}
	}
	return nil, eris.New("PDF.co job polling timed out.")
}

func resultText(ctx context.Context, client Client, r *JobResponse) (string, error) {
	if strings.TrimSpace(r.Body) != "" {
		return r.Body, nil
	}
	if r.URL != "" {
		return client.Download(ctx, r.URL)
	}
	return "", nil
}
