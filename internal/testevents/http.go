package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/truthschool/prepscore/pkg/logger"
)

// errRetryable marks responses worth resubmitting.
var errRetryable = errors.New("retryable response")

// HTTPClient wraps http.Client with a base URL and timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// getJSON performs a GET request and decodes a 200 body into out. It
// returns the status code either way.
func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// postJSON performs a POST request with a JSON body.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out interface{}) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if out == nil || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultFailed
)

// submitEvents submits events concurrently using worker pools
func submitEvents(ctx context.Context, config *Config, client *HTTPClient, events []Event, stats *Stats) error {
	logger.Get().Info(ctx, "submitting events",
		logger.Int("events", len(events)),
		logger.Int("workers", config.Workers))

	var accepted, duplicate, failed, retried, submitted atomic.Int64

	reportEvery := len(events) / 10
	if reportEvery == 0 {
		reportEvery = 1
	}

	eventChan := make(chan Event, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				result, retries := submitSingleEvent(ctx, client, event)
				retried.Add(int64(retries))
				switch result {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				case resultFailed:
					failed.Add(1)
					if config.Verbose {
						logger.Get().Warn(ctx, "event submission failed",
							logger.String("event_id", event.EventID),
							logger.String("kind", event.Kind))
					}
				}
				if n := submitted.Add(1); n%int64(reportEvery) == 0 {
					logger.Get().Info(ctx, "submission progress",
						logger.Int64("submitted", n),
						logger.Int("total", len(events)),
						logger.Int64("failed", failed.Load()))
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted += int(submitted.Load())
	stats.EventsAccepted += int(accepted.Load())
	stats.EventsDuplicate += int(duplicate.Load())
	stats.EventsFailed += int(failed.Load())
	stats.EventsRetried += int(retried.Load())

	logger.Get().Info(ctx, "event submission completed",
		logger.Int64("accepted", accepted.Load()),
		logger.Int64("duplicate", duplicate.Load()),
		logger.Int64("failed", failed.Load()),
		logger.Int64("retried", retried.Load()))

	return ctx.Err()
}

// submitSingleEvent posts one event, retrying backpressure and rate limit
// answers, and reports the result with the number of retries it took.
func submitSingleEvent(ctx context.Context, client *HTTPClient, event Event) (submitResult, int) {
	for attempt := 0; ; attempt++ {
		result, err := postEvent(ctx, client, event)
		if !errors.Is(err, errRetryable) || attempt == MaxSubmitRetries {
			return result, attempt
		}
		select {
		case <-ctx.Done():
			return resultFailed, attempt
		case <-time.After(SubmitRetryDelay * time.Duration(attempt+1)):
		}
	}
}

func postEvent(ctx context.Context, client *HTTPClient, event Event) (submitResult, error) {
	var ack AckResponse
	status, err := client.postJSON(ctx, "/v1/events", event, &ack)
	if err != nil {
		return resultFailed, err
	}
	switch status {
	case http.StatusAccepted:
		return resultAccepted, nil
	case http.StatusOK:
		if ack.Duplicate {
			return resultDuplicate, nil
		}
		return resultAccepted, nil
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return resultFailed, errRetryable
	default:
		return resultFailed, fmt.Errorf("unexpected status %d", status)
	}
}
