package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldStart         = "start"
	FieldEnd           = "end"
	FieldDataset       = "dataset"
	FieldGroupBy       = "group_by"
	FieldMeasure       = "measure"
	FieldDailyRows     = "daily_rows"
	FieldHourlyRows    = "hourly_rows"
	FieldVersion       = "dataset_version"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentDashboard = "dashboard"
	ComponentDataset   = "dataset"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentImport    = "import"
	ComponentExport    = "export"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpLoad      = "load"
	OpReload    = "reload"
	OpAggregate = "aggregate"
	OpRender    = "render"
	OpExport    = "export"
	OpImport    = "import"
	OpPublish   = "publish"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRange adds the selected date range as YYYY-MM-DD strings.
func (f LogFields) WithRange(start, end string) LogFields {
	f[FieldStart] = start
	f[FieldEnd] = end
	return f
}

// WithRows adds dataset row counts.
func (f LogFields) WithRows(daily, hourly int) LogFields {
	f[FieldDailyRows] = daily
	f[FieldHourlyRows] = hourly
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
