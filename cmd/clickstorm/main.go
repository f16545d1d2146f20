// Package main - clickstorm
// Load generator: many concurrent browser-like clients spamming intents at
// one game server over WebSocket.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/kylechrisking/it-empire-idle/internal/config"
	"github.com/kylechrisking/it-empire-idle/internal/engine"
)

// Config for the storm.
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Output         string
}

// Stats tracks performance metrics.
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Rejected         int64 // error replies from the server
	Errors           int64 // transport failures
	Latencies        []time.Duration
	mu               sync.Mutex
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 20, "Number of concurrent clients")
	interval := flag.Duration("interval", 50*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	output := flag.String("out", "clickstorm_results.json", "Where to write the JSON results")
	flag.Parse()

	cfg := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Output:         *output,
	}

	fmt.Println("=========================================")
	fmt.Println("CLICKSTORM - IT Empire load generator")
	fmt.Println("=========================================")
	fmt.Printf("Server:   %s\n", cfg.ServerURL)
	fmt.Printf("Clients:  %d\n", cfg.NumClients)
	fmt.Printf("Interval: %v\n", cfg.ActionInterval)
	fmt.Printf("Duration: %v\n", cfg.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runStorm(ctx, cfg)
	printResults(stats, cfg)
}

func runStorm(ctx context.Context, cfg Config) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 10000)}
	gen := newIntentGenerator(config.DefaultCatalog())

	var wg sync.WaitGroup
	fmt.Println("\nStarting clients...")
	for i := 0; i < cfg.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, cfg, gen, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", cfg.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%s recv=%s rejected=%s errors=%d\n",
					humanize.Comma(atomic.LoadInt64(&stats.MessagesSent)),
					humanize.Comma(atomic.LoadInt64(&stats.MessagesReceived)),
					humanize.Comma(atomic.LoadInt64(&stats.Rejected)),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, cfg Config, gen *intentGenerator, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			if countErrors(data) > 0 {
				atomic.AddInt64(&stats.Rejected, 1)
			}
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(clientID)))
	ticker := time.NewTicker(cfg.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteJSON(engine.Intent{Type: engine.IntentHoldEnd})
			return
		case <-ticker.C:
			start := time.Now()
			if err := conn.WriteJSON(gen.next(rng)); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

// countErrors counts error envelopes in one possibly batched frame.
func countErrors(frame []byte) int {
	n := 0
	dec := json.NewDecoder(bytes.NewReader(frame))
	for dec.More() {
		var msg struct {
			Type string `json:"type"`
		}
		if err := dec.Decode(&msg); err != nil {
			return n
		}
		if msg.Type == "error" {
			n++
		}
	}
	return n
}

// intentGenerator picks weighted random intents against the catalog ids.
type intentGenerator struct {
	workers  []engine.Intent
	managers []engine.Intent
	upgrades []engine.Intent
}

func newIntentGenerator(cat config.Catalog) *intentGenerator {
	g := &intentGenerator{}
	for _, role := range cat.Roles {
		for _, ent := range role.Entities {
			if ent.Manages != "" {
				g.managers = append(g.managers, engine.Intent{Type: engine.IntentHireManager, ID: ent.ID})
				continue
			}
			g.workers = append(g.workers,
				engine.Intent{Type: engine.IntentHireEmployee, Role: role.Name, ID: ent.ID},
				engine.Intent{Type: engine.IntentStartTask, Role: role.Name, ID: ent.ID},
			)
		}
	}
	for _, u := range cat.Upgrades {
		g.upgrades = append(g.upgrades, engine.Intent{Type: engine.IntentPurchaseUpgrade, ID: u.ID})
	}
	return g
}

func (g *intentGenerator) next(rng *rand.Rand) engine.Intent {
	switch roll := rng.Intn(100); {
	case roll < 70 || len(g.workers) == 0:
		return engine.Intent{Type: engine.IntentClick}
	case roll < 85:
		return g.workers[rng.Intn(len(g.workers))]
	case roll < 92 && len(g.managers) > 0:
		return g.managers[rng.Intn(len(g.managers))]
	case roll < 98 && len(g.upgrades) > 0:
		return g.upgrades[rng.Intn(len(g.upgrades))]
	default:
		return engine.Intent{Type: "GET_STATE"}
	}
}

func printResults(stats *Stats, cfg Config) {
	fmt.Println("\n=========================================")
	fmt.Println("CLICKSTORM RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	rejected := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %s\n", humanize.Comma(sent))
	fmt.Printf("Messages Received: %s\n", humanize.Comma(recv))
	fmt.Printf("Rejected:          %s\n", humanize.Comma(rejected))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / cfg.TestDuration.Seconds()
	fmt.Printf("Throughput:        %s msg/sec\n", humanize.Commaf(float64(int64(throughput*100))/100))

	var p50, p99, max time.Duration
	if len(stats.Latencies) > 0 {
		sort.Slice(stats.Latencies, func(i, j int) bool { return stats.Latencies[i] < stats.Latencies[j] })
		p50 = stats.Latencies[len(stats.Latencies)/2]
		p99 = stats.Latencies[len(stats.Latencies)*99/100]
		max = stats.Latencies[len(stats.Latencies)-1]
		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  p50: %v\n", p50)
		fmt.Printf("  p99: %v\n", p99)
		fmt.Printf("  Max: %v\n", max)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("PASSED: server handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("WARNING: some transport errors")
	default:
		fmt.Println("FAILED: high error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"latency_p50":        p50.String(),
		"latency_p99":        p99.String(),
		"config": map[string]interface{}{
			"clients":  cfg.NumClients,
			"interval": cfg.ActionInterval.String(),
			"duration": cfg.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(cfg.Output, jsonData, 0644); err != nil {
		log.Printf("failed to write results: %v", err)
		return
	}
	fmt.Printf("\nResults saved to %s\n", cfg.Output)
}
