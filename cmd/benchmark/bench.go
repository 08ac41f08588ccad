package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/app"
	"github.com/nulzo/chat-router/internal/config"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const benchUser = "bench-user"

var unaryResp = []byte(`{"id":"bench-123","choices":[{"message":{"role":"assistant","content":"Hello"}}]}`)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	cascade := flag.Bool("cascade", false, "Route through a custom integration whose primary endpoint always fails")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	upstreamLatency := flag.Duration("upstream-latency", 10*time.Millisecond, "Latency of the mock upstream")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)

	healthy := httptest.NewServer(mockUpstream(*upstreamLatency, false))
	defer healthy.Close()
	broken := httptest.NewServer(mockUpstream(0, true))
	defer broken.Close()

	application, err := app.New(benchConfig(healthy.URL), nil)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	srv := httptest.NewServer(application.Server.Handler())
	defer func() {
		srv.Close()
		_ = application.Close()
	}()

	body := seed(srv.URL, *cascade, broken.URL, healthy.URL)

	done := make(chan struct{})
	go monitorResources(done)

	mode := "Hosted"
	if *cascade {
		mode = "Cascade"
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", mode, *duration, *rate)

	chatURL := srv.URL + "/v1/chat"
	targeter := func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = chatURL
		t.Body = body
		t.Header = http.Header{
			"Content-Type": []string{"application/json"},
			"X-User-ID":    []string{benchUser},
		}
		return nil
	}

	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: Starting Chaos Monkey sidecar...")
		chaosConcurrency := *rate / 10
		if chaosConcurrency < 5 {
			chaosConcurrency = 5
		}
		if chaosConcurrency > 50 {
			chaosConcurrency = 50
		}
		go startChaosMonkey(chatURL, body, chaosConcurrency, done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")

		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(msg)

				uniqueErrors[msg] = true
				count++
			}
		}
	}
}

func benchConfig(upstreamURL string) *config.Config {
	provider := func(id, typ, base string) config.ProviderConfig {
		return config.ProviderConfig{ID: id, Type: typ, BaseURL: base, Timeout: 10 * time.Second, MaxTokens: 100, Temperature: 0.7}
	}
	return &config.Config{
		Server:      config.ServerConfig{Port: "0", Env: "development"},
		Database:    config.DatabaseConfig{Driver: "sqlite3", DSN: "file:bench?mode=memory&cache=shared"},
		RateLimit:   config.RateLimitConfig{RequestsPerSecond: 0},
		Credentials: config.CredentialsConfig{EncryptionKey: "benchmark-passphrase", CacheTTL: 10 * time.Minute},
		Cascade:     config.CascadeConfig{AttemptTimeout: 5 * time.Second, PlaceholderKey: "ollama"},
		Security:    config.SecurityConfig{Classifier: "host", CloudMode: "local"},
		Providers: config.ProvidersConfig{
			OpenAI: provider("openai", "openai", upstreamURL),
			Custom: provider("custom", "openai", ""),
		},
	}
}

// seed stores what the chosen mode needs through the public API and returns
// the chat request body.
func seed(baseURL string, cascade bool, brokenURL, healthyURL string) []byte {
	if !cascade {
		mustDo(http.MethodPut, baseURL+"/v1/credentials/openai", map[string]string{"api_key": "sk-bench-0123456789abcdef"})
		return mustJSON(map[string]string{"provider_id": "openai", "model": "gpt-4o-mini", "prompt": "Hello"})
	}

	mustDo(http.MethodPost, baseURL+"/v1/integrations", map[string]any{
		"name":      "bench",
		"base_url":  brokenURL,
		"fallbacks": []map[string]string{{"url": healthyURL}},
	})
	return mustJSON(map[string]string{"provider_id": "custom_bench", "prompt": "Hello"})
}

func mustDo(method, url string, payload any) {
	req, err := http.NewRequest(method, url, bytes.NewReader(mustJSON(payload)))
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", benchUser)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Seeding %s failed: %v", url, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Fatalf("Seeding %s failed: status %d", url, resp.StatusCode)
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Fatal(err)
	}
	return b
}

func startChaosMonkey(url string, payload []byte, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 100,
				},
			}

			for {
				select {
				case <-done:
					return
				default:
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("X-User-ID", benchUser)

					resp, err := client.Do(req)
					if err == nil {
						_ = resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
}

func mockUpstream(latency time.Duration, fail bool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable"}}`))
			return
		}
		time.Sleep(latency)
		_, _ = w.Write(unaryResp)
	})

	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`))
	})

	return mux
}

func monitorResources(done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Println("\n--- Resource Usage ---")
	fmt.Printf("% -10s % -10s % -10s % -10s\n", "Time", "Heap(MB)", "Alloc(MB)", "Goroutines")

	var stats runtime.MemStats
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			runtime.ReadMemStats(&stats)
			fmt.Printf("% -10s % -10.2f % -10.2f % -10d\n",
				time.Now().Format("15:04:05"),
				float64(stats.HeapInuse)/1024/1024,
				float64(stats.Alloc)/1024/1024,
				runtime.NumGoroutine(),
			)
		}
	}
}
