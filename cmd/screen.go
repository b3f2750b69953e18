package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/archive"
	"github.com/kellatirupathi/darwinbox/internal/candidates"
	"github.com/kellatirupathi/darwinbox/internal/darwinbox"
	"github.com/kellatirupathi/darwinbox/internal/filtering"
	"github.com/kellatirupathi/darwinbox/internal/jobdesc"
	"github.com/kellatirupathi/darwinbox/internal/logger"
	"github.com/kellatirupathi/darwinbox/internal/screening"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Download, read and score every applicant of a job",
	Run: func(cmd *cobra.Command, _ []string) {
		screen(cmd)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	f := screenCmd.Flags()
	f.String("job-id", "", "darwinbox job id (or code) to screen")
	f.String("candidates-file", "", "read candidates from a json or yaml file instead of darwinbox")
	f.String("jd", "", "job description text")
	f.String("jd-file", "", "job description file (pdf, docx, txt, html)")
	f.String("jd-url", "", "job description page or document url")
	f.Int("batch-size", 0, "candidates per batch (overrides config)")
	f.String("name", "", "show only candidates whose name contains this text")
	f.String("id", "", "show only candidates whose id contains this text")
	f.String("remarks", "", "show only candidates whose remarks contain this text")
	f.Int("min-score", 0, "show only candidates scoring at least this")
	f.Int("max-score", 100, "show only candidates scoring at most this")
	f.Bool("hide-failed", false, "hide candidates whose screening failed")
	f.BoolP("auto-approve", "y", false, "submit threshold decisions without asking")
	f.Int("shortlist-above", 0, "shortlist candidates scoring at least this")
	f.Int("reject-below", 0, "reject candidates scoring below this")
	f.Bool("no-archive", false, "do not write results to the archive sinks")

	viper.BindPFlag("batch-size", f.Lookup("batch-size"))
}

// screen is the main command for the cli.
func screen(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the darwinbox-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	credentials, err := loadCredentials(config.AI)
	if err != nil {
		logger.Fatal("loading scoring credentials", zap.Error(err),
			zap.String("hint", "set ai.api-keys, ai.api-key-files or "+config.AI.APIKeyEnvPrefix+"1..N"),
		)
	}
	logger.Info("scoring credentials loaded", zap.Int("count", len(credentials)))

	scorer, err := newScorer(config.AI, logger)
	if err != nil {
		logger.Fatal("building scorer", zap.Error(err))
	}

	fetch := newFetcher(config.Fetch, logger)
	extractor := newExtractor(config.Extract, logger)
	saver := archive.NewSaver(config.Archive.Dir, logger)
	archiving := !flagBool(cmd, "no-archive")

	jobID, _ := cmd.Flags().GetString("job-id")
	candidatesFile, _ := cmd.Flags().GetString("candidates-file")

	var (
		db        *darwinbox.Client
		job       *darwinbox.Job
		list      candidates.Candidates
		canDecide bool
	)

	switch {
	case candidatesFile != "":
		list, err = candidates.FromFile(candidatesFile)
		if err != nil {
			logger.Fatal("reading candidates file", zap.Error(err))
		}
	case jobID != "":
		canDecide = wantsDecisions(cmd)
		db, err = newDarwinbox(config.Darwinbox, true, canDecide, logger)
		if err != nil && canDecide {
			logger.Warn("decision credentials unavailable, decisions are disabled", zap.Error(err))
			canDecide = false
			db, err = newDarwinbox(config.Darwinbox, true, false, logger)
		}
		if err != nil {
			logger.Fatal("configuring darwinbox", zap.Error(err))
		}
		job = lookupJob(ctx, db, jobID, logger)
		jobID = job.ID

		list, err = db.GetCandidates(ctx, jobID)
		if err != nil {
			logger.Fatal("getting candidates", zap.Error(err))
		}
		if archiving {
			if _, err := saver.SaveJSON(archive.FolderCandidates, job.Code, list); err != nil {
				logger.Warn("archiving candidates", zap.Error(err))
			}
		}
	default:
		logger.Fatal("nothing to screen", zap.String("hint", "pass --job-id or --candidates-file"))
	}

	if list.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates found"))
		return
	}

	jdText, _ := cmd.Flags().GetString("jd")
	jdFile, _ := cmd.Flags().GetString("jd-file")
	jdURL, _ := cmd.Flags().GetString("jd-url")
	jd, err := jobdesc.NewLoader(fetch, extractor, logger).Load(ctx, jobdesc.Source{Text: jdText, File: jdFile, URL: jdURL})
	if err != nil {
		logger.Fatal("loading job description", zap.Error(err), zap.String("hint", "pass --jd, --jd-file or --jd-url"))
	}

	jobCode := ""
	if job != nil {
		jobCode = job.Code
	}
	run := archive.NewRun(jobID, jobCode)
	runLogger := logger.With(zap.String("run_id", run.ID.String()))

	resumeDir := config.ResumeDir
	if resumeDir == "" && config.KeepResumes {
		resumeDir = saver.ResumeDir(run.Prefix())
	}

	pipeline := screening.New(fetch, extractor, scorer, screening.Options{
		BatchSize:   config.BatchSize,
		ResumeDir:   resumeDir,
		KeepResumes: config.KeepResumes,
	}, runLogger)
	pipeline.Progress = func(processed, total int) {
		runLogger.Info("progress",
			zap.Int("processed", processed),
			zap.Int("total", total),
			zap.String("percent", fmt.Sprintf("%.0f%%", float64(processed)*100/float64(total))),
		)
	}

	result, err := pipeline.Run(ctx, list, jd, credentials)
	switch {
	case errors.Is(err, screening.ErrNoCredentials):
		runLogger.Fatal("screening", zap.Error(err))
	case err != nil:
		runLogger.Warn("screening interrupted, keeping partial results", zap.Error(err))
	}
	for _, batchErr := range result.BatchErrors {
		runLogger.Warn("batch did not complete", zap.Int("batch", batchErr.Batch), zap.Error(batchErr.Err))
	}

	records := screening.Finalize(result.Records)
	summary := screening.Summarize(records)
	runLogger.Info("screening summary",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)

	if archiving {
		sinks, closeSinks, err := newSinks(context.WithoutCancel(ctx), config.Archive, saver, runLogger)
		if err != nil {
			runLogger.Warn("configuring archive sinks", zap.Error(err))
		} else {
			_ = archive.Publish(context.WithoutCancel(ctx), runLogger, run, records, sinks...)
			closeSinks()
		}
	}

	filters := reviewFilters(cmd)
	for _, status := range filtering.Describe(filters) {
		runLogger.Debug("review filter", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled), zap.String("reason", status.Reason))
	}

	filtered, err := filtering.Run(ctx, filterConfig(cmd), filtering.Deps{Logger: runLogger}, filters, records)
	if err != nil {
		runLogger.Fatal("filtering failed", zap.Error(err))
	}
	renderResults(os.Stdout, filtered)

	if !canDecide || ctx.Err() != nil {
		return
	}
	if err := decide(ctx, cmd, db, jobID, filtered, runLogger); err != nil {
		runLogger.Fatal("exiting", zap.Error(err))
	}
}

// lookupJob resolves a job by id or code. Unknown jobs are screened under the given id.
func lookupJob(ctx context.Context, db *darwinbox.Client, key string, logger *zap.Logger) *darwinbox.Job {
	jobs, err := db.GetJobs(ctx)
	if err != nil {
		logger.Warn("could not list jobs, using the job id as given", zap.Error(err))
		return &darwinbox.Job{ID: key, Code: key}
	}
	if job := jobs.Find(key); job != nil {
		logger.Info("screening job", zap.String("job", job.Label()))
		return job
	}
	logger.Warn("job not found in job list, using the job id as given", zap.String("job_id", key))
	return &darwinbox.Job{ID: key, Code: key}
}

func decide(ctx context.Context, cmd *cobra.Command, db *darwinbox.Client, jobID string, records []screening.Record, logger *zap.Logger) error {
	decisions := thresholdDecisions(records, flagInt(cmd, "shortlist-above"), flagInt(cmd, "reject-below"))
	autoApprove := flagBool(cmd, "auto-approve")

	if !autoApprove {
		if !isInteractive() {
			logger.Info("skipping decisions", zap.String("reason", "not a terminal and --auto-approve is not set"))
			return nil
		}

		reviewed, err := reviewLoop(records, decisions)
		if err != nil {
			return err
		}
		decisions = reviewed
		if len(decisions) == 0 {
			logger.Info("exiting", zap.String("reason", "no decisions to submit"))
			return nil
		}

		ok, err := confirm(fmt.Sprintf("Submit %d decisions to Darwinbox?", len(decisions)))
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return nil
		}
	}

	if len(decisions) == 0 {
		logger.Info("no decisions to submit")
		return nil
	}

	report := db.Submit(ctx, jobID, decisions)
	logger.Info("decisions submitted", zap.Int("succeeded", report.Succeeded), zap.Int("failed", len(report.Errors)))
	for _, e := range report.Errors {
		logger.Warn("decision error", zap.String("error", e))
	}
	return nil
}

func wantsDecisions(cmd *cobra.Command) bool {
	if flagBool(cmd, "auto-approve") {
		return flagInt(cmd, "shortlist-above") != nil || flagInt(cmd, "reject-below") != nil
	}
	return isInteractive()
}

// reviewFilters disables the filters whose flags were not given.
func reviewFilters(cmd *cobra.Command) []filtering.Filter {
	filters := filtering.Default()
	for name, flags := range map[string][]string{
		"name_contains":    {"name"},
		"id_contains":      {"id"},
		"remarks_contains": {"remarks"},
		"score_range":      {"min-score", "max-score"},
		"hide_failed":      {"hide-failed"},
	} {
		requested := false
		for _, f := range flags {
			requested = requested || cmd.Flags().Changed(f)
		}
		if !requested {
			filtering.DisableByName(filters, name, "not requested")
		}
	}
	return filters
}

func filterConfig(cmd *cobra.Command) *filtering.Config {
	name, _ := cmd.Flags().GetString("name")
	id, _ := cmd.Flags().GetString("id")
	remarks, _ := cmd.Flags().GetString("remarks")

	return &filtering.Config{
		NameContains:    name,
		IDContains:      id,
		RemarksContains: remarks,
		MinScore:        flagInt(cmd, "min-score"),
		MaxScore:        flagInt(cmd, "max-score"),
		HideFailed:      flagBool(cmd, "hide-failed"),
	}
}

// flagInt returns nil unless the operator set the flag explicitly.
func flagInt(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil
	}
	return &v
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
