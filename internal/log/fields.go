package log

import "budgetanalyser/internal/core"

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldCommand   = "command"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldAccount   = "account"
	FieldMonth     = "month"
	FieldYear      = "year"
	FieldRows      = "rows"
	FieldInserted  = "inserted"
	FieldSkipped   = "skipped"
	FieldSheet     = "sheet"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentIngest     = "ingest"
	ComponentStorage    = "storage"
	ComponentReporting  = "reporting"
	ComponentBudget     = "budget_service"
	ComponentRecurring  = "recurring_service"
	ComponentNetWorth   = "net_worth"
	ComponentSheets     = "sheets"
	ComponentAMQP       = "amqp"
	ComponentCategorize = "categorizer"
)

// Operations defines standard operation names
const (
	OpIngest    = "ingest"
	OpReport    = "report"
	OpYearly    = "yearly"
	OpBudget    = "budget"
	OpDetect    = "detect"
	OpAnomalies = "anomalies"
	OpNetWorth  = "net_worth"
	OpExport    = "export"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithMonth adds the month in YYYY-MM form.
func (f LogFields) WithMonth(ym core.YearMonth) LogFields {
	f[FieldMonth] = ym.String()
	return f
}

// WithIngest adds per-run ingestion counts.
func (f LogFields) WithIngest(account string, rows, inserted, skipped int) LogFields {
	if account != "" {
		f[FieldAccount] = account
	}
	f[FieldRows] = rows
	f[FieldInserted] = inserted
	f[FieldSkipped] = skipped
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
