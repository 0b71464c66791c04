package config

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceSheets = "sheets"
	SourceCSV    = "csv"
)

type Config struct {
	Source string
	// Google Sheets API
	SheetsURL     string
	SpreadsheetID string
	Range         string
	APIKey        string
	Timeout       time.Duration
	// Выгрузка в CSV
	CSVPath string
	// Сумма заказа, если в журнале она пустая или нечитаемая
	FallbackAmount decimal.Decimal
}
