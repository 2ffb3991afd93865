package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/polyreq/internal/model"
)

// Scanner scans one degree page into a report
type Scanner interface {
	ScanDegree(ctx context.Context, rawURL string) (*model.Report, error)
}

// ScanJob scans a single degree
type ScanJob struct {
	Index   int
	URL     string
	Scanner Scanner
	Timeout time.Duration
}

// Execute runs the scan; a failure is reported in the result, never raised
func (j *ScanJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := j.Scanner.ScanDegree(ctx, j.URL)
	return &ScanResult{
		Index:    j.Index,
		URL:      j.URL,
		Report:   report,
		Error:    err,
		Duration: time.Since(start),
	}
}

// ScanResult is the outcome of one degree scan
type ScanResult struct {
	Index    int
	URL      string
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the error from the scan result
func (r *ScanResult) GetError() error {
	return r.Error
}

// BatchProcessor scans many degrees concurrently
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
	timeout     time.Duration // per degree, 0 for none
	delay       time.Duration // pause between submissions, 0 for none
	progress    func(done, total int, result *ScanResult)
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scanner Scanner, concurrency int, timeout, delay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
		timeout:     timeout,
		delay:       delay,
	}
}

// WithProgress registers a callback run as each degree finishes, never concurrently
func (b *BatchProcessor) WithProgress(fn func(done, total int, result *ScanResult)) *BatchProcessor {
	b.progress = fn
	return b
}

// ProcessURLs scans every URL and returns results in input order.
// One failed degree never stops the rest of the batch.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*ScanResult {
	if len(urls) == 0 {
		return []*ScanResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	if b.progress != nil {
		done := 0
		pool.OnResult(func(r Result) {
			done++
			b.progress(done, len(urls), r.(*ScanResult))
		})
	}
	pool.Start()

	for i, url := range urls {
		if i > 0 && b.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.delay):
			}
		}
		pool.Submit(&ScanJob{
			Index:   i,
			URL:     url,
			Scanner: b.scanner,
			Timeout: b.timeout,
		})
	}

	results := pool.Wait()

	scanResults := make([]*ScanResult, 0, len(results))
	for _, result := range results {
		scanResults = append(scanResults, result.(*ScanResult))
	}
	sort.Slice(scanResults, func(i, j int) bool {
		return scanResults[i].Index < scanResults[j].Index
	})

	return scanResults
}

// ProcessFile reads URLs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ScanResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
