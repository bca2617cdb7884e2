package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"github.com/go-playground/validator/v10"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Logger receives the pusher's own failures.
type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {
	// TenantKey and TenantValue add a tenant header for multi-tenant Loki setups. Optional.
	TenantKey   string
	TenantValue string

	// Url of the push endpoint, e.g. https://example-prod.grafana.net/loki/api/v1/push
	Url string `validate:"required,url"`

	// BatchMaxSize is the maximum number of lines sent in one request.
	BatchMaxSize int `validate:"gte=1"`

	// BatchMaxWait is the maximum time a line waits before being sent.
	BatchMaxWait time.Duration `validate:"gte=1"`

	// Labels are attached to every stream.
	Labels map[string]string

	// Username and Password enable basic auth when both are set.
	Username string
	Password string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 500
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type LogEntry struct {
	Level     string `json:"level"`
	Message   string `json:"msg"`
	Caller    string `json:"caller,omitempty"`
	Source    string `json:"source,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

type Pusher struct {
	config   *Config
	ctx      context.Context
	cancel   context.CancelFunc
	client   *http.Client
	entries  chan LogEntry
	done     sync.WaitGroup
	stopOnce sync.Once
	batch    []LogEntry
	stamps   []time.Time
	logger   Logger
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config:  &cfg,
		ctx:     ctx,
		cancel:  cancel,
		client:  &http.Client{Timeout: 10 * time.Second},
		entries: make(chan LogEntry, cfg.BatchMaxSize),
		batch:   make([]LogEntry, 0, cfg.BatchMaxSize),
		logger:  logger,
	}

	p.done.Add(1)
	go p.run()
	return p, nil
}

// Push queues an entry. It drops the entry once the pusher is stopped.
func (p *Pusher) Push(e LogEntry) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.entries <- e:
		return nil
	}
}

// Stop flushes queued entries and stops the background loop.
func (p *Pusher) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.done.Wait()
	})
}

func (p *Pusher) run() {
	defer p.done.Done()

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	flush := func() {
		if len(p.batch) == 0 {
			return
		}
		if err := p.send(); err != nil {
			p.logger.Error("failed to send logs", "error", err, "lines", len(p.batch))
		}
		p.batch = p.batch[:0]
		p.stamps = p.stamps[:0]
	}

	for {
		select {
		case <-p.ctx.Done():
			p.drain()
			flush()
			return
		case entry := <-p.entries:
			p.add(entry)
			if len(p.batch) >= p.config.BatchMaxSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *Pusher) drain() {
	for {
		select {
		case entry := <-p.entries:
			p.add(entry)
		default:
			return
		}
	}
}

func (p *Pusher) add(entry LogEntry) {
	p.batch = append(p.batch, entry)
	p.stamps = append(p.stamps, time.Now())
}

// streams groups the batch by level and source so they become Loki labels.
func (p *Pusher) streams() []stream {
	byKey := map[string]*stream{}
	var keys []string

	for i, entry := range p.batch {
		key := entry.Level + "|" + entry.Source
		s, ok := byKey[key]
		if !ok {
			labels := make(map[string]string, len(p.config.Labels)+2)
			for k, v := range p.config.Labels {
				labels[k] = v
			}
			labels["level"] = entry.Level
			if entry.Source != "" {
				labels["source"] = entry.Source
			}
			s = &stream{Stream: labels}
			byKey[key] = s
			keys = append(keys, key)
		}

		line, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		s.Values = append(s.Values, [2]string{strconv.FormatInt(p.stamps[i].UnixNano(), 10), string(line)})
	}

	sort.Strings(keys)
	result := make([]stream, 0, len(keys))
	for _, key := range keys {
		result = append(result, *byKey[key])
	}
	return result
}

func (p *Pusher) send() error {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)

	if err := json.NewEncoder(gz).Encode(pushRequest{Streams: p.streams()}); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	// the loop context is already cancelled during the final flush
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Url, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.config.TenantKey != "" {
		req.Header.Set(p.config.TenantKey, p.config.TenantValue)
	}
	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected response from Loki: %s, body: %s", resp.Status, string(body))
	}

	return nil
}
