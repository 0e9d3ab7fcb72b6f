package log

// Common field names for structured logging.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldRiderID     = "rider_id"
	FieldPartnerID   = "partner_id"
	FieldDate        = "date"
	FieldAmountCents = "amount_cents"
	FieldPairingCode = "pairing_code"
	FieldWindow      = "window"
)

// Components defines standard component names.
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentPairing    = "pairing"
	ComponentAttendance = "attendance"
	ComponentNotify     = "notify"
	ComponentLedger     = "ledger"
	ComponentAuth       = "auth"
)
