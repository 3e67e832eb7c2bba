package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status_code"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldOperation = "operation"

	FieldWeekKey     = "week_key"
	FieldDateKey     = "date_key"
	FieldExpenseID   = "expense_id"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldPolicy      = "policy"
	FieldRevision    = "revision"
	FieldSyncTarget  = "sync_target"
	FieldBackendType = "backend"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentStore       = "store"
	ComponentStorage     = "storage"
	ComponentSync        = "sync"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentMaintenance = "maintenance"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpImport   = "import"
	OpExport   = "export"
	OpMigrate  = "migrate"
	OpPersist  = "persist"
	OpSync     = "sync"
	OpPrune    = "prune"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
