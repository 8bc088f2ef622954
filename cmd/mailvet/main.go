// Command mailvet validates a CSV of email addresses and splits the
// rows into a pass file and a fail file annotated with the rejection
// reason.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/mailvet/mailvet"
	"github.com/mailvet/mailvet/bulk"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "input CSV (prompted for when omitted)")
		passPath   = flag.String("pass", "pass.csv", "output CSV for accepted addresses")
		failPath   = flag.String("fail", "fail.csv", "output CSV for rejected addresses")
		workers    = flag.Int("workers", 0, "concurrent validations (overrides config)")
		configPath = flag.String("config", "", "YAML config file")
		verbose    = flag.Bool("verbose", false, "per-record debug logging")
	)
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(log, *inputPath, *passPath, *failPath, *workers, *configPath); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(log *logrus.Logger, inputPath, passPath, failPath string, workers int, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	if inputPath == "" {
		inputPath, err = promptFilename()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	total, err := countRows(inputPath)
	if err != nil {
		return err
	}

	src, err := bulk.OpenCSV(inputPath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	pass, err := bulk.CreatePassCSV(passPath, src.Header())
	if err != nil {
		return err
	}
	defer func() { _ = pass.Close() }()

	fail, err := bulk.CreateFailCSV(failPath, src.Header())
	if err != nil {
		return err
	}
	defer func() { _ = fail.Close() }()

	v := buildValidator(cfg)
	defer func() { _ = v.Close() }()

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("validating"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	runner := bulk.NewRunner(v, bulk.Config{
		Workers: cfg.Workers,
		Pass:    pass,
		Fail:    fail,
		Logger:  log,
		OnResult: func(rec bulk.Record, out mailvet.Outcome) {
			_ = bar.Add(1)
			log.WithFields(logrus.Fields{
				"email":    rec.Email,
				"accepted": out.Accepted,
				"reason":   out.Reason,
			}).Debug("record done")
		},
	})

	sum, err := runner.Run(ctx, src)
	_ = bar.Finish()
	printSummary(sum, passPath, failPath)
	if err == context.Canceled {
		log.Warn("interrupted, partial results written")
		return nil
	}
	return err
}

func buildValidator(cfg Config) *mailvet.Validator {
	v := mailvet.New().WithDNS(mailvet.DNSOptions{
		Timeout:     cfg.DNS.Timeout,
		Nameservers: cfg.DNS.Nameservers,
		CacheTTL:    cfg.DNS.CacheTTL,
	})
	if cfg.Screening.Enabled {
		v.WithScreening(mailvet.ScreeningOptions{
			RejectDisposable: cfg.Screening.RejectDisposable,
			SuggestTypos:     true,
		})
	}
	if cfg.Website.Enabled {
		v.WithWebsite(mailvet.WebsiteOptions{Timeout: cfg.Website.Timeout})
	}
	v.WithSMTP(mailvet.SMTPOptions{
		HeloDomain:         cfg.HeloDomain,
		MailFrom:           cfg.MailFrom,
		ConnectTimeout:     cfg.SMTP.ConnectTimeout,
		CommandTimeout:     cfg.SMTP.CommandTimeout,
		MaxMXHosts:         cfg.SMTP.MaxMXHosts,
		RejectInconclusive: cfg.SMTP.RejectInconclusive,
	})
	return v
}

func promptFilename() (string, error) {
	fmt.Print("Enter CSV filename: ")
	name, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading filename: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("no filename given")
	}
	return name, nil
}

// countRows counts data rows so the progress bar has a total.
func countRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	n := -1 // don't count the header
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("counting rows in %s: %w", path, err)
		}
		n++
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

func printSummary(sum bulk.Summary, passPath, failPath string) {
	fmt.Println()
	color.Cyan("run %s finished in %s", sum.RunID, sum.Elapsed.Round(time.Millisecond))
	color.Green("  passed: %d -> %s", sum.Passed, passPath)
	color.Red("  failed: %d -> %s", sum.Failed, failPath)
	if sum.Errors > 0 {
		color.Yellow("  errors: %d (written to fail file)", sum.Errors)
	}
	fmt.Printf("  total:  %d\n", sum.Total)
}
