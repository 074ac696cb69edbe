package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil || i <= 0 {
		return def
	}
	return i
}

// loadTokens reads a JSON array written by gen-token, falling back to a
// single TEST_BEARER token.
func loadTokens() ([]string, error) {
	path := os.Getenv("TOKENS_FILE")
	if path == "" {
		return []string{os.Getenv("TEST_BEARER")}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	return tokens, nil
}

type counters struct {
	events   atomic.Uint64
	attempts atomic.Uint64
	failures atomic.Uint64
}

func main() {
	streamURL := getenv("STREAM_URL", "http://localhost:8080/api/stream")
	conns := getenvInt("SSE_CONNECTIONS", 200)
	duration := time.Duration(getenvInt("DURATION_SEC", 120)) * time.Second
	tokens, err := loadTokens()
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var c counters
	g, ctx := errgroup.WithContext(ctx)
	for i := range conns {
		bearer := tokens[i%len(tokens)]
		g.Go(func() error {
			listen(ctx, streamURL, bearer, &c)
			return nil
		})
	}

	go func() {
		select {
		case <-time.After(60 * time.Second):
			if c.events.Load() == 0 {
				log.Error("no events received in 60s")
				os.Exit(1)
			}
		case <-ctx.Done():
		}
	}()

	_ = g.Wait()
	attempts, failures, events := c.attempts.Load(), c.failures.Load(), c.events.Load()
	failureRate := 0.0
	if attempts > 0 {
		failureRate = float64(failures) / float64(attempts)
	}
	log.WithFields(log.Fields{
		"connections":         conns,
		"duration_sec":        int(duration.Seconds()),
		"events_received":     events,
		"connection_failures": failures,
	}).Info("sse load finished")
	if events == 0 || failureRate > 0.01 {
		os.Exit(1)
	}
}

// listen keeps one stream open until ctx ends, reconnecting with backoff.
func listen(ctx context.Context, streamURL, bearer string, c *counters) {
	backoff := time.Second
	retry := func() {
		c.failures.Add(1)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 5*time.Second)
	}
	for ctx.Err() == nil {
		c.attempts.Add(1)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
		if err != nil {
			retry()
			continue
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil || resp.StatusCode != http.StatusOK {
			if resp != nil {
				resp.Body.Close()
			}
			retry()
			continue
		}
		backoff = time.Second
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			if strings.HasPrefix(scanner.Text(), "data:") {
				c.events.Add(1)
			}
		}
		resp.Body.Close()
		if ctx.Err() != nil {
			return
		}
		retry()
	}
}
