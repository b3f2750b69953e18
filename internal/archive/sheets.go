package archive

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kellatirupathi/darwinbox/internal/screening"
)

const (
	DefaultWorksheet = "AI Analysis Results"
	sheetsTimeLayout = "2006-01-02 15:04:05"
	valueInputOption = "USER_ENTERED"

	newSheetRows    = 1000
	newSheetColumns = 50
)

// sheetAPI is the subset of the Sheets API the sink needs.
type sheetAPI interface {
	Titles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string) error
	Header(ctx context.Context, title string) ([]string, error)
	Update(ctx context.Context, rangeA1 string, values [][]string) error
	Append(ctx context.Context, rangeA1 string, values [][]string) error
}

type SheetsConfig struct {
	SpreadsheetID   string
	Worksheet       string
	CredentialsFile string
	CredentialsJSON []byte
}

// SheetsSink appends results to a worksheet, growing its header when new
// columns appear.
type SheetsSink struct {
	api       sheetAPI
	worksheet string
	logger    *zap.Logger
}

func NewSheetsSink(ctx context.Context, cfg SheetsConfig, logger *zap.Logger) (*SheetsSink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	var opts []option.ClientOption
	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return newSheetsSink(&sheetsService{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.Worksheet, logger), nil
}

func newSheetsSink(api sheetAPI, worksheet string, logger *zap.Logger) *SheetsSink {
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SheetsSink{api: api, worksheet: worksheet, logger: logger}
}

func (s *SheetsSink) Name() string { return "sheets" }

func (s *SheetsSink) Write(ctx context.Context, run Run, records []screening.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureWorksheet(ctx); err != nil {
		return err
	}

	table := RecordsTable(run, records, sheetsTimeLayout)
	existing, err := s.api.Header(ctx, s.worksheet)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	if len(existing) == 0 {
		values := append([][]string{table.Columns}, table.Rows...)
		if err := s.api.Update(ctx, a1(s.worksheet, 1, 1), values); err != nil {
			return fmt.Errorf("write initial rows: %w", err)
		}
		s.logger.Info("wrote initial rows with header", zap.String("worksheet", s.worksheet), zap.Int("rows", len(table.Rows)))
		return nil
	}

	header, added := reconcileHeader(existing, table.Columns)
	if len(added) > 0 {
		if err := s.api.Update(ctx, a1(s.worksheet, 1, len(existing)+1), [][]string{added}); err != nil {
			return fmt.Errorf("extend header: %w", err)
		}
		s.logger.Info("added columns to worksheet", zap.String("worksheet", s.worksheet), zap.Strings("columns", added))
	}

	if err := s.api.Append(ctx, a1(s.worksheet, 1, 1), reindex(table, header)); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	return nil
}

func (s *SheetsSink) ensureWorksheet(ctx context.Context) error {
	titles, err := s.api.Titles(ctx)
	if err != nil {
		return fmt.Errorf("list worksheets: %w", err)
	}
	for _, t := range titles {
		if t == s.worksheet {
			return nil
		}
	}

	if err := s.api.AddSheet(ctx, s.worksheet); err != nil {
		return fmt.Errorf("create worksheet %q: %w", s.worksheet, err)
	}
	s.logger.Info("created worksheet", zap.String("worksheet", s.worksheet))
	return nil
}

// reconcileHeader appends incoming columns missing from existing.
func reconcileHeader(existing, incoming []string) (header, added []string) {
	known := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		known[c] = struct{}{}
	}

	header = append([]string{}, existing...)
	for _, c := range incoming {
		if _, ok := known[c]; ok {
			continue
		}
		known[c] = struct{}{}
		added = append(added, c)
		header = append(header, c)
	}
	return header, added
}

// reindex lays rows out in header order; unknown cells are left blank.
func reindex(t Table, header []string) [][]string {
	pos := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		pos[c] = i
	}

	out := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, len(header))
		for i, c := range header {
			if j, ok := pos[c]; ok && j < len(row) {
				cells[i] = row[j]
			}
		}
		out = append(out, cells)
	}
	return out
}

// a1 renders a single-cell A1 reference on the given sheet.
func a1(sheet string, row, col int) string {
	return fmt.Sprintf("'%s'!%s%d", strings.ReplaceAll(sheet, "'", "''"), columnName(col), row)
}

func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

type sheetsService struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (s *sheetsService) Titles(ctx context.Context) ([]string, error) {
	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (s *sheetsService) AddSheet(ctx context.Context, title string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						RowCount:    newSheetRows,
						ColumnCount: newSheetColumns,
					},
				},
			},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

func (s *sheetsService) Header(ctx context.Context, title string) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, fmt.Sprintf("'%s'!1:1", strings.ReplaceAll(title, "'", "''"))).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	header := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		header = append(header, fmt.Sprint(v))
	}
	return header, nil
}

func (s *sheetsService) Update(ctx context.Context, rangeA1 string, values [][]string) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rangeA1, valueRange(values)).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	return err
}

func (s *sheetsService) Append(ctx context.Context, rangeA1 string, values [][]string) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rangeA1, valueRange(values)).
		ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func valueRange(values [][]string) *sheets.ValueRange {
	rows := make([][]interface{}, 0, len(values))
	for _, row := range values {
		cells := make([]interface{}, 0, len(row))
		for _, v := range row {
			cells = append(cells, v)
		}
		rows = append(rows, cells)
	}
	return &sheets.ValueRange{Values: rows}
}
