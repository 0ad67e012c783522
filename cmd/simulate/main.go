package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"

	"github.com/hackgods/appointment-assistant/internal/api"
	"github.com/hackgods/appointment-assistant/internal/directory"
	"github.com/hackgods/appointment-assistant/pkg/logging"
)

// The simulator races many sessions for the same slot against a running
// api-server. Each round picks one valid slot, opens one session per worker
// and releases every booking request at once. More than one "booked" reply
// in a round is a double booking.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Rounds     int
	DaysAhead  int
	Timeout    time.Duration
}

type slot struct {
	Doctor string
	Date   string
	Time   string
}

type OperationMetrics struct {
	Total     int64
	Latencies []time.Duration
	mu        sync.Mutex
	byKind    map[string]int64
}

func (om *OperationMetrics) Record(latency time.Duration, kind string) {
	atomic.AddInt64(&om.Total, 1)

	om.mu.Lock()
	defer om.mu.Unlock()
	if om.byKind == nil {
		om.byKind = make(map[string]int64)
	}
	om.byKind[kind]++
	om.Latencies = append(om.Latencies, latency)
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[min2(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min2(len(latencies)*95/100, len(latencies)-1)]
	return avg, min, max, p50, p95
}

type Simulator struct {
	config       SimConfig
	client       *http.Client
	logger       *logging.Logger
	metrics      OperationMetrics
	doubleBooked []slot
}

func main() {
	logger := logging.NewWithWriter(os.Stderr, os.Getenv("LOG_LEVEL"))

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slots := candidateSlots(directory.Default(), time.Now(), cfg.DaysAhead)
	if len(slots) == 0 {
		logger.Error("no bookable slots in range", "days_ahead", cfg.DaysAhead)
		os.Exit(1)
	}
	if cfg.Rounds > len(slots) {
		cfg.Rounds = len(slots)
	}

	logger.Info("simulator starting", "api", cfg.APIBaseURL, "workers", cfg.Workers, "rounds", cfg.Rounds)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}

	ctx := context.Background()
	for i := 0; i < cfg.Rounds; i++ {
		sim.round(ctx, slots[i])
	}

	sim.PrintReport()
	if len(sim.doubleBooked) > 0 {
		os.Exit(2)
	}
}

func loadConfig() SimConfig {
	_ = godotenv.Load()

	return SimConfig{
		APIBaseURL: strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Workers:    getInt("SIM_WORKERS", 10),
		Rounds:     getInt("SIM_ROUNDS", 5),
		DaysAhead:  getInt("SIM_DAYS_AHEAD", 14),
		Timeout:    getDuration("SIM_TIMEOUT", 60*time.Second),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Rounds <= 0 {
		return fmt.Errorf("SIM_ROUNDS must be > 0")
	}
	if cfg.DaysAhead <= 0 {
		return fmt.Errorf("SIM_DAYS_AHEAD must be > 0")
	}
	return nil
}

// candidateSlots lists the start of every period a doctor works over the
// coming days, keeping only slots the validator accepts.
func candidateSlots(dir *directory.Directory, now time.Time, days int) []slot {
	v := directory.NewValidator(dir, func() time.Time { return now })
	var out []slot
	for d := 1; d <= days; d++ {
		day := now.AddDate(0, 0, d)
		date := day.Format(directory.DateLayout)
		for _, name := range dir.Names() {
			doc, _ := dir.Lookup(name)
			group, ok := doc.GroupFor(day.Weekday())
			if !ok {
				continue
			}
			for _, p := range group.Periods {
				s, err := v.Validate(name, date, p.Window.Start.String())
				if err != nil {
					continue
				}
				out = append(out, slot{Doctor: s.Doctor, Date: s.Date, Time: s.Time})
			}
		}
	}
	return out
}

func (s *Simulator) round(ctx context.Context, target slot) {
	sessions := make([]string, 0, s.config.Workers)
	for i := 0; i < s.config.Workers; i++ {
		id, err := s.createSession(ctx)
		if err != nil {
			s.logger.Error("create session", "error", err)
			continue
		}
		sessions = append(sessions, id)
	}

	start := make(chan struct{})
	var (
		wg     sync.WaitGroup
		booked int64
	)
	for _, id := range sessions {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			<-start

			text := fmt.Sprintf("My name is %s. Please book %s on %s at %s.", gofakeit.Name(), target.Doctor, target.Date, target.Time)
			begin := time.Now()
			reply, err := s.sendMessage(ctx, id, text)
			latency := time.Since(begin)

			kind := "error"
			if err != nil {
				s.logger.Warn("send message", "session_id", id, "error", err)
			} else {
				kind = reply.Kind
			}
			if kind == "booked" {
				atomic.AddInt64(&booked, 1)
			}
			s.metrics.Record(latency, kind)
		}(id)
	}
	close(start)
	wg.Wait()

	s.logger.Info("round complete", "doctor", target.Doctor, "date", target.Date, "time", target.Time, "booked", booked)
	if booked > 1 {
		s.doubleBooked = append(s.doubleBooked, target)
	}

	for _, id := range sessions {
		s.deleteSession(ctx, id)
	}
}

func (s *Simulator) createSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/sessions", nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create session: status %d", resp.StatusCode)
	}

	var out api.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (s *Simulator) sendMessage(ctx context.Context, sessionID, text string) (*api.ReplyResponse, error) {
	body, _ := json.Marshal(api.SendMessageRequest{Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/sessions/%s/messages", s.config.APIBaseURL, sessionID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
	}

	var out api.ReplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Simulator) deleteSession(ctx context.Context, sessionID string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.config.APIBaseURL+"/sessions/"+sessionID, nil)
	if err != nil {
		return
	}
	if resp, err := s.client.Do(req); err == nil {
		resp.Body.Close()
	}
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Workers per round: %d\n", s.config.Workers)
	fmt.Printf("Rounds: %d\n", s.config.Rounds)
	fmt.Println()

	om := &s.metrics
	total := atomic.LoadInt64(&om.Total)
	fmt.Printf("Booking attempts: %d\n", total)

	om.mu.Lock()
	kinds := make([]string, 0, len(om.byKind))
	for k := range om.byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-12s %d\n", k, om.byKind[k])
	}
	om.mu.Unlock()

	avg, min, max, p50, p95 := om.Stats()
	fmt.Printf("Latency: avg=%s min=%s max=%s p50=%s p95=%s\n", avg, min, max, p50, p95)
	fmt.Println()

	if len(s.doubleBooked) == 0 {
		fmt.Println("No double bookings detected.")
		return
	}
	fmt.Printf("DOUBLE BOOKINGS: %d\n", len(s.doubleBooked))
	for _, sl := range s.doubleBooked {
		fmt.Printf("  %s %s %s\n", sl.Doctor, sl.Date, sl.Time)
	}
}

func min2(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
