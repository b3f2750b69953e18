package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/archive"
	"github.com/kellatirupathi/darwinbox/internal/darwinbox"
	"github.com/kellatirupathi/darwinbox/internal/logger"
)

const jobListPrefix = "all_jobs"

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List open Darwinbox jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		listJobs(cmd)
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.Flags().Bool("no-archive", false, "do not save the job list")
}

func listJobs(cmd *cobra.Command) {
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

	db, err := newDarwinbox(config.Darwinbox, false, false, logger)
	if err != nil {
		logger.Fatal("configuring darwinbox", zap.Error(err))
	}

	jobs, err := db.GetJobs(ctx)
	if err != nil {
		logger.Fatal("getting jobs", zap.Error(err))
	}
	logger.Info("jobs found", zap.Int("count", jobs.Len()))

	if !flagBool(cmd, "no-archive") {
		path, err := archive.NewSaver(config.Archive.Dir, logger).SaveJSON(archive.FolderJobs, jobListPrefix, jobs.Items)
		if err != nil {
			logger.Warn("archiving job list", zap.Error(err))
		} else {
			logger.Info("job list saved", zap.String("path", path))
		}
	}

	renderJobs(os.Stdout, jobs.Items)
}

func renderJobs(w io.Writer, jobs []*darwinbox.Job) {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{j.ID, j.Code, j.Title, j.Department, j.Location})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Job ID", "Job Code", "Title", "Department", "Location").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	fmt.Fprintln(w, t.Render())
}
