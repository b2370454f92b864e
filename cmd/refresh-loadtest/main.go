// Command refresh-loadtest drives the goSession engine against Redis (or an
// in-process miniredis) and reports validate/refresh latency. The race phase
// fires concurrent refreshes with the same token and checks that exactly one
// wins each round.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
)

type subjectState struct {
	id   string
	pair goSession.TokenPair
	mu   sync.Mutex
}

func main() {
	var (
		subjects    = flag.Int("subjects", 10000, "number of subjects to log in")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (validate + refresh)")
		rounds      = flag.Int("race-rounds", 200, "rounds of concurrent same-token refresh")
		racers      = flag.Int("racers", 16, "concurrent refreshes per race round")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gs-load", "session key prefix")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 1 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency and ops must be > 0, racers > 1")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goSession.DefaultConfig()
	cfg.JWT.SigningKey = bytes.Repeat([]byte("L"), 32)
	cfg.Session.RedisPrefix = *prefix
	cfg.Audit.Enabled = false

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityRepository(goSession.NewMemoryIdentityRepository()).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]subjectState, *subjects)
	fmt.Printf("logging in %d subjects...\n", *subjects)
	startSeed := time.Now()
	for i := range states {
		states[i].id = fmt.Sprintf("subject-%d", i)
		pair, err := engine.CompleteLogin(ctx, goSession.LoginInput{
			Identity: goSession.Identity{SubjectID: states[i].id},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].pair = pair
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runValidatePhase(engine, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)
	race := runRacePhase(ctx, engine, states, *rounds, *racers)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)
	fmt.Printf("race: rounds=%d racers=%d single-winner=%d violations=%d\n",
		race.rounds, *racers, race.singleWinner, race.violations)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: refresh_success=%d refresh_failure=%d reuse_detected=%d\n",
		snap.Counters[goSession.MetricRefreshSuccess],
		snap.Counters[goSession.MetricRefreshFailure],
		snap.Counters[goSession.MetricRefreshReuseDetected],
	)

	if race.violations > 0 {
		os.Exit(1)
	}
}

func runValidatePhase(engine *goSession.Engine, states []subjectState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				state.mu.Lock()
				token := state.pair.AccessToken
				state.mu.Unlock()

				t0 := time.Now()
				_, err := engine.ValidateAccess(token)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *goSession.Engine, states []subjectState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]

				state.mu.Lock()
				t0 := time.Now()
				next, err := engine.Refresh(ctx, state.pair.RefreshToken)
				d := time.Since(t0)
				if err == nil {
					state.pair = next
				} else {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type raceStats struct {
	rounds       int
	singleWinner int
	violations   int
}

// runRacePhase presents one refresh token from several goroutines at once.
// Exactly one must rotate; the rest must be rejected as reuse or invalid.
func runRacePhase(ctx context.Context, engine *goSession.Engine, states []subjectState, rounds, racers int) raceStats {
	var out raceStats
	for round := 0; round < rounds; round++ {
		state := &states[round%len(states)]
		state.mu.Lock()

		token := state.pair.RefreshToken
		var (
			wg      sync.WaitGroup
			wins    int64
			unknown int64
			winner  goSession.TokenPair
			once    sync.Once
		)
		wg.Add(racers)
		for i := 0; i < racers; i++ {
			go func() {
				defer wg.Done()
				pair, err := engine.Refresh(ctx, token)
				switch {
				case err == nil:
					atomic.AddInt64(&wins, 1)
					once.Do(func() { winner = pair })
				case errors.Is(err, goSession.ErrRefreshReuseDetected), errors.Is(err, goSession.ErrRefreshInvalid):
				default:
					atomic.AddInt64(&unknown, 1)
				}
			}()
		}
		wg.Wait()

		out.rounds++
		if wins == 1 && unknown == 0 {
			out.singleWinner++
		} else {
			out.violations++
		}

		// Reuse cleared the session; log in again for the next round.
		pair, err := engine.CompleteLogin(ctx, goSession.LoginInput{Identity: goSession.Identity{SubjectID: state.id}})
		if err == nil {
			state.pair = pair
		} else {
			state.pair = winner
		}
		state.mu.Unlock()
	}
	return out
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
