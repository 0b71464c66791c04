package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/iurnickita/affiliatemart/internal/ledger/config"
)

var (
	ErrUnknownSource   = errors.New("unknown ledger source")
	ErrSourceMalformed = errors.New("ledger source malformed")
)

// Source reads the whole ledger as a table of cells.
type Source interface {
	ReadRange(ctx context.Context) ([][]string, error)
}

func NewSource(cfg config.Config) (Source, error) {
	switch cfg.Source {
	case config.SourceSheets:
		return NewSheetsSource(cfg), nil
	case config.SourceCSV:
		return NewCSVSource(cfg.CSVPath), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}

// Google Sheets values API

type sheetsValues struct {
	Range  string          `json:"range"`
	Values [][]interface{} `json:"values"`
}

type sheetsSource struct {
	client        *resty.Client
	spreadsheetID string
	rangeA1       string
	apiKey        string
}

func NewSheetsSource(cfg config.Config) Source {
	client := resty.New().SetBaseURL(cfg.SheetsURL)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &sheetsSource{
		client:        client,
		spreadsheetID: cfg.SpreadsheetID,
		rangeA1:       cfg.Range,
		apiKey:        cfg.APIKey,
	}
}

func (s *sheetsSource) ReadRange(ctx context.Context) ([][]string, error) {
	path := "/v4/spreadsheets/" + url.PathEscape(s.spreadsheetID) + "/values/" + url.PathEscape(s.rangeA1)

	var values sheetsValues
	// суммы приходят так, как их видит пользователь таблицы
	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("valueRenderOption", "FORMATTED_VALUE").
		SetResult(&values)
	if s.apiKey != "" {
		req.SetQueryParam("key", s.apiKey)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("sheets request status: %d", resp.StatusCode())
	}

	rows := make([][]string, 0, len(values.Values))
	for _, v := range values.Values {
		row := make([]string, len(v))
		for i, cell := range v {
			switch c := cell.(type) {
			case nil:
			case string:
				row[i] = c
			case float64:
				row[i] = strconv.FormatFloat(c, 'f', -1, 64)
			default:
				row[i] = fmt.Sprint(c)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Выгрузка журнала в CSV

type csvSource struct {
	path string
}

func NewCSVSource(path string) Source {
	return &csvSource{path: path}
}

func (s *csvSource) ReadRange(ctx context.Context) ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceMalformed, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
