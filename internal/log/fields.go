package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldUserID    = "user_id"
	FieldKind      = "kind"
	FieldAmount    = "amount"
	FieldCategory  = "category"
	FieldWindow    = "window"
	FieldTxID      = "id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentBot     = "bot"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentStats   = "stats"
	ComponentSync    = "sync"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
)
