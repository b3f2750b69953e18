package archive

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

const (
	DefaultBaseDir = "run_archive"
	fileTimeLayout = "2006-01-02_15-04-05"
)

// Saver writes timestamped files under <base>/<folder>/<prefix>_<timestamp>.<ext>.
type Saver struct {
	BaseDir string
	now     func() time.Time
	logger  *zap.Logger
}

func NewSaver(baseDir string, logger *zap.Logger) *Saver {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{BaseDir: baseDir, now: time.Now, logger: logger}
}

// ResumeDir is where resumes of one job are kept.
func (s *Saver) ResumeDir(jobCode string) string {
	if jobCode == "" {
		jobCode = "manual"
	}
	return filepath.Join(s.BaseDir, FolderResumes, sanitize(jobCode))
}

func (s *Saver) path(folder, prefix, ext string) (string, error) {
	dir := filepath.Join(s.BaseDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, s.now().Format(fileTimeLayout), ext)), nil
}

// SaveJSON writes data as indented JSON and returns the file path.
func (s *Saver) SaveJSON(folder, prefix string, data any) (string, error) {
	p, err := s.path(folder, prefix, "json")
	if err != nil {
		return "", err
	}

	content, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", folder, err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}

	s.logger.Info("saved archive file", zap.String("path", p))
	return p, nil
}

// SaveCSV writes t with a header row and returns the file path.
func (s *Saver) SaveCSV(folder, prefix string, t Table) (path string, err error) {
	path, err = s.path(folder, prefix, "csv")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return "", err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Info("saved archive file", zap.String("path", path), zap.Int("rows", len(t.Rows)))
	return path, nil
}

// Uploader copies an archived file to a remote location.
type Uploader interface {
	Upload(ctx context.Context, localPath string) error
}

// FileSink saves scored results as CSV and JSON, then hands both files to the
// uploader when one is set.
type FileSink struct {
	saver    *Saver
	uploader Uploader
}

func NewFileSink(saver *Saver, uploader Uploader) *FileSink {
	return &FileSink{saver: saver, uploader: uploader}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, run Run, records []screening.Record) error {
	csvPath, err := s.saver.SaveCSV(FolderScores, run.Prefix(), RecordsTable(run, records, sheetsTimeLayout))
	if err != nil {
		return err
	}
	jsonPath, err := s.saver.SaveJSON(FolderScores, run.Prefix(), records)
	if err != nil {
		return err
	}

	if s.uploader == nil {
		return nil
	}
	for _, p := range []string{csvPath, jsonPath} {
		if err := s.uploader.Upload(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
