// Command loadtest drives a book with a deterministic synthetic order
// stream and reports throughput and per-intent latency percentiles.
// The stream is seeded, so two runs with the same settings apply the
// same intents and can be compared run to run.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/quantbed/tickbook/pkg/core"
	"github.com/quantbed/tickbook/pkg/logging"
	"github.com/quantbed/tickbook/pkg/messaging"
)

type settings struct {
	Symbol      string
	LogLevel    string
	Orders      int
	Rate        int
	Seed        int64
	MinPrice    int64
	MaxPrice    int64
	PriceBand   int64
	MarketRatio float64
	CancelRatio float64
	Publish     bool
	Buffer      int
}

func loadSettings() settings {
	v := viper.New()
	v.SetEnvPrefix("LOADTEST")
	v.AutomaticEnv()

	v.SetDefault("symbol", "TICK-USD")
	v.SetDefault("log_level", "info")
	v.SetDefault("orders", 1_000_000)
	v.SetDefault("rate", 0) // 0 = unpaced
	v.SetDefault("seed", 42)
	v.SetDefault("min_price", 1)
	v.SetDefault("max_price", 999999)
	v.SetDefault("price_band", 50)
	v.SetDefault("market_ratio", 0.1)
	v.SetDefault("cancel_ratio", 0.2)
	v.SetDefault("publish", false)
	v.SetDefault("buffer", 4096)

	return settings{
		Symbol:      v.GetString("symbol"),
		LogLevel:    v.GetString("log_level"),
		Orders:      v.GetInt("orders"),
		Rate:        v.GetInt("rate"),
		Seed:        v.GetInt64("seed"),
		MinPrice:    v.GetInt64("min_price"),
		MaxPrice:    v.GetInt64("max_price"),
		PriceBand:   v.GetInt64("price_band"),
		MarketRatio: v.GetFloat64("market_ratio"),
		CancelRatio: v.GetFloat64("cancel_ratio"),
		Publish:     v.GetBool("publish"),
		Buffer:      v.GetInt("buffer"),
	}
}

func main() {
	cfg := loadSettings()

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: os.Stderr,
	})
	logger := logging.BookLogger(cfg.Symbol)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		logger.Info().Msg("Received interrupt signal, stopping")
		cancel()
	}()

	book := core.NewBook(core.BookOptions{
		MinPrice:      cfg.MinPrice,
		MaxPrice:      cfg.MaxPrice,
		TickSize:      1,
		ArenaCapacity: 1 << 16,
	})

	// Optional delivery path, to measure matching with the report
	// fan-out attached. The mock sender keeps the run network-free.
	var dispatcher *messaging.Dispatcher
	codec, err := messaging.NewCodec("0.01", "0.001")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build codec")
	}
	if cfg.Publish {
		dispatcher = messaging.NewDispatcher(messaging.NewMockReportSender(), cfg.Buffer, logger)
		dispatcher.Start(ctx)
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Rate)
	}

	hist := hdrhistogram.New(1, int64(10*time.Second), 3)
	rng := rand.New(rand.NewSource(cfg.Seed))
	mid := cfg.MinPrice + (cfg.MaxPrice-cfg.MinPrice)/2

	var live []core.OrderID
	var fills, rejects, cancels int

	logger.Info().
		Int("orders", cfg.Orders).
		Int("rate", cfg.Rate).
		Int64("seed", cfg.Seed).
		Bool("publish", cfg.Publish).
		Msg("Starting load test")

	start := time.Now()
	for i := 0; i < cfg.Orders && ctx.Err() == nil; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		var (
			rep *core.Report
			err error
		)
		began := time.Now()
		switch {
		case len(live) > 0 && rng.Float64() < cfg.CancelRatio:
			victim := live[rng.Intn(len(live))]
			rep, err = book.Cancel(victim)
			cancels++
		case rng.Float64() < cfg.MarketRatio:
			rep, err = book.Accept(core.MarketTicket(randomSide(rng), int64(1+rng.Intn(100))))
		default:
			price := mid + rng.Int63n(2*cfg.PriceBand+1) - cfg.PriceBand
			rep, err = book.Accept(core.LimitTicket(randomSide(rng), price, int64(1+rng.Intn(100))))
		}
		hist.RecordValue(time.Since(began).Nanoseconds())

		if err != nil {
			rejects++
		}
		if rep != nil {
			fills += len(rep.Fills)
			if rep.Stored {
				live = append(live, rep.OrderID)
			}
			if dispatcher != nil {
				dispatcher.Enqueue(codec.FromReport(rep))
			}
		}
		// Keep the live set bounded; stale handles just count as
		// rejected cancels, which is part of the workload.
		if len(live) > 8192 {
			live = live[len(live)/2:]
		}
	}
	elapsed := time.Since(start)

	if dispatcher != nil {
		if err := dispatcher.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close dispatcher")
		}
	}

	logger.Info().
		Dur("elapsed", elapsed).
		Float64("intents_per_sec", float64(cfg.Orders)/elapsed.Seconds()).
		Int("fills", fills).
		Int("cancels", cancels).
		Int("rejects", rejects).
		Int("resting", book.OpenOrders()).
		Msg("Load test completed")
	logger.Info().
		Int64("p50_ns", hist.ValueAtQuantile(50)).
		Int64("p99_ns", hist.ValueAtQuantile(99)).
		Int64("p999_ns", hist.ValueAtQuantile(99.9)).
		Int64("max_ns", hist.Max()).
		Msg("Intent latency")
	if dispatcher != nil && dispatcher.Dropped() > 0 {
		logger.Warn().Uint64("dropped", dispatcher.Dropped()).Msg("Report queue overflowed")
	}
}

func randomSide(rng *rand.Rand) core.Side {
	if rng.Float64() < 0.5 {
		return core.Sell
	}
	return core.Buy
}
