// Command replay rebuilds a book from a recorded intent stream and
// prints the outcome: per-disposition counts, the final ladder, and
// the run fingerprint. With -expect it doubles as a determinism check,
// failing when the fingerprint diverges from a previous run. Reports
// can optionally be re-published on the way through: kafka (kafka-go
// writer), redis (pub/sub), or queue (pooled sarama producer).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantbed/tickbook/config"
	"github.com/quantbed/tickbook/pkg/core"
	"github.com/quantbed/tickbook/pkg/db/queue"
	"github.com/quantbed/tickbook/pkg/logging"
	"github.com/quantbed/tickbook/pkg/messaging"
	"github.com/quantbed/tickbook/pkg/messaging/kafka"
	"github.com/quantbed/tickbook/pkg/messaging/redis"
	"github.com/quantbed/tickbook/pkg/replay"
)

var (
	input   = flag.String("input", "-", "Command stream (JSONL); - for stdin")
	expect  = flag.String("expect", "", "Fail unless the run fingerprint matches")
	publish = flag.String("publish", "none", "Re-publish reports: none, kafka, redis, queue")
	quiet   = flag.Bool("quiet", false, "Skip the ladder rendering")
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logging.Setup(logging.Config{
		Level:  cfg.Engine.LogLevel,
		Pretty: cfg.Engine.LogFormat == "pretty",
		Output: os.Stderr,
	})
	logger := logging.BookLogger(cfg.Engine.Symbol)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in, err := openInput(*input)
	if err != nil {
		logger.Fatal().Err(err).Str("input", *input).Msg("Failed to open command stream")
	}

	start := time.Now()
	res, err := replay.ReplayStream(ctx, cfg.BookOptions(), in)
	closeInput(in)
	if err != nil {
		logger.Fatal().Err(err).Msg("Replay failed")
	}
	elapsed := time.Since(start)

	logger.Info().
		Int("commands", len(res.Reports)).
		Dur("elapsed", elapsed).
		Str("fingerprint", res.Fingerprint).
		Msg("Replay completed")

	printSummary(res)
	if !*quiet {
		printLadder(res.Snapshot)
	}

	if *publish != "none" {
		if err := publishReports(ctx, cfg, logger, res.Reports); err != nil {
			logger.Fatal().Err(err).Str("transport", *publish).Msg("Failed to publish reports")
		}
	}

	if *expect != "" && res.Fingerprint != *expect {
		logger.Error().
			Str("expected", *expect).
			Str("actual", res.Fingerprint).
			Msg("Fingerprint mismatch")
		os.Exit(1)
	}
}

func openInput(path string) (io.Reader, error) {
	if path == "-" {
		return os.Stdin, nil
	}
	return os.Open(path)
}

func closeInput(in io.Reader) {
	if f, ok := in.(*os.File); ok && f != os.Stdin {
		_ = f.Close()
	}
}

func printSummary(res *replay.Result) {
	counts := map[core.Disposition]int{}
	fills := 0
	for _, rep := range res.Reports {
		counts[rep.Disposition]++
		fills += len(rep.Fills)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "disposition\tcount\n")
	for _, d := range []core.Disposition{
		core.DispositionFilled,
		core.DispositionPartiallyFilled,
		core.DispositionRested,
		core.DispositionCanceled,
		core.DispositionModified,
		core.DispositionRejected,
	} {
		if counts[d] > 0 {
			fmt.Fprintf(w, "%s\t%d\n", d, counts[d])
		}
	}
	fmt.Fprintf(w, "fills\t%d\n", fills)
	w.Flush()
}

func printLadder(snap *core.Snapshot) {
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		cyan("Price"),
		cyan("Size"),
		cyan("Orders"),
		cyan("Side"))
	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		"---------------",
		"---------------",
		"---------------",
		"----")

	// Asks print high to low so the spread sits in the middle.
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		level := snap.Asks[i]
		fmt.Fprintf(w, "%15d|%15d|%15d|%s\n",
			level.Price,
			level.Size,
			len(level.Orders),
			red("ASK"))
	}
	fmt.Fprintf(w, "%15s|%15s|%15s|%s\n",
		"---------------",
		"---------------",
		"---------------",
		"----")
	for _, level := range snap.Bids {
		fmt.Fprintf(w, "%15d|%15d|%15d|%s\n",
			level.Price,
			level.Size,
			len(level.Orders),
			green("BID"))
	}
	w.Flush()
}

func publishReports(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reports []*core.Report) error {
	codec, err := messaging.NewCodec(cfg.Book.DecimalTick, cfg.Book.DecimalLot)
	if err != nil {
		return err
	}

	var sender messaging.ReportSender
	switch *publish {
	case "kafka":
		sender, err = kafka.NewReportSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
	case "redis":
		redis.SetDefaultOptions(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		sender = redis.NewReportSender(redis.NewClient())
	case "queue":
		// The pooled sarama path sends synchronously; no dispatcher.
		for _, rep := range reports {
			if err := queue.SendReport(ctx, codec.FromReport(rep)); err != nil {
				return err
			}
		}
		logger.Info().Int("reports", len(reports)).Str("transport", *publish).Msg("Reports published")
		return nil
	default:
		return fmt.Errorf("unknown transport %q", *publish)
	}

	d := messaging.NewDispatcher(sender, len(reports), logger)
	d.Start(ctx)
	for _, rep := range reports {
		d.Enqueue(codec.FromReport(rep))
	}
	if err := d.Close(); err != nil {
		return err
	}
	logger.Info().Int("reports", len(reports)).Str("transport", *publish).Msg("Reports published")
	return nil
}
