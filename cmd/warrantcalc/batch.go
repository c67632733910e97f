package main

import (
	"context"
	"fmt"
	"io"
	"os"

	internalrepo "WarrantCalc/internal/repository"
	"WarrantCalc/internal/usecase"
	pkgkafka "WarrantCalc/pkg/kafka"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type batchOptions struct {
	in      string
	out     string
	publish bool
	batchID string
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	bo := &batchOptions{}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Price a CSV of contracts",
		Long: "Reads rows with columns type,spot,strike,days,expiry,rate,dividend,ratio,vol,skew,market_price\n" +
			"and writes them back with iv, warrant_price, warrant_delta, breakeven and the Greeks filled in.\n" +
			"A row with market_price gets an implied vol; a row with vol (or a solved iv) gets a quote.",
		Example: "  warrantcalc batch --in warrants.csv --out priced.csv\n" +
			"  warrantcalc batch --in warrants.csv --publish --config config/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts, bo, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&bo.in, "in", "-", "input CSV, - for stdin")
	f.StringVar(&bo.out, "out", "-", "output CSV, - for stdout")
	f.BoolVar(&bo.publish, "publish", false, "also publish every row as a pricing reply on kafka.reply_topic")
	f.StringVar(&bo.batchID, "batch-id", "", "id prefix for published replies (default: random)")
	return cmd
}

func runBatch(ctx context.Context, opts *rootOptions, bo *batchOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	svc, err := opts.service()
	if err != nil {
		return err
	}

	in := stdin
	if bo.in != "-" {
		fh, err := os.Open(bo.in)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer fh.Close()
		in = fh
	}

	var rows []*usecase.BatchRow
	if err := gocsv.Unmarshal(in, &rows); err != nil {
		return fmt.Errorf("read batch csv: %w", err)
	}

	bp := usecase.NewBatchPricer(svc)
	sum, err := bp.Price(ctx, rows)
	if err != nil {
		return err
	}

	out := stdout
	if bo.out != "-" {
		fh, err := os.Create(bo.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer fh.Close()
		out = fh
	}
	if err := gocsv.Marshal(rows, out); err != nil {
		return fmt.Errorf("write batch csv: %w", err)
	}

	renderTable(stderr, []string{"Rows", "Failed", "Quoted", "Solved", "Price mean", "Price median", "Price sd", "IV mean", "IV median", "IV sd"},
		[][]string{{
			fmt.Sprintf("%d", sum.Rows), fmt.Sprintf("%d", sum.Failed), fmt.Sprintf("%d", sum.Quoted), fmt.Sprintf("%d", sum.Solved),
			f4(sum.PriceMean), f4(sum.PriceMedian), f4(sum.PriceStdDev),
			f4(sum.IVMean), f4(sum.IVMedian), f4(sum.IVStdDev),
		}})

	if !bo.publish {
		return nil
	}
	return publishBatch(ctx, opts, bo, bp, rows, stderr)
}

func publishBatch(ctx context.Context, opts *rootOptions, bo *batchOptions, bp *usecase.BatchPricer, rows []*usecase.BatchRow, stderr io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("--publish needs kafka.enabled in the config")
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaReplyPublisher(producer, cfg.Kafka.ReplyTopic)
	defer pub.Close()

	id := bo.batchID
	if id == "" {
		id = uuid.NewString()
	}
	replies := bp.Replies(id, rows)
	if err := pub.PublishBatch(ctx, replies); err != nil {
		return fmt.Errorf("publish batch %s: %w", id, err)
	}
	fmt.Fprintf(stderr, "published %d replies to %s (batch %s)\n", len(replies), cfg.Kafka.ReplyTopic, id)
	return nil
}
