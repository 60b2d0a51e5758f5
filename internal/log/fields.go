package log

// Field names shared by every component.
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
	FieldWalletID      = "wallet_id"
	FieldWalletName    = "wallet_name"
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldBalance       = "balance"
	FieldBucketing     = "bucketing"
	FieldVersion       = "ledger_version"
)

const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentCLI     = "cli"
)

const (
	OpCreateWallet      = "create_wallet"
	OpDeleteWallet      = "delete_wallet"
	OpCreateTransaction = "create_transaction"
	OpDeleteTransaction = "delete_transaction"
	OpImport            = "import"
	OpExport            = "export"
	OpClear             = "clear"
	OpSettings          = "settings"
	OpProject           = "project"
	OpStartup           = "startup"
	OpShutdown          = "shutdown"
)

// Fields collects key/value pairs for a slog call.
type Fields []any

func NewFields() Fields { return Fields{} }

func (f Fields) Operation(op string) Fields { return append(f, FieldOperation, op) }

func (f Fields) Wallet(id string) Fields { return append(f, FieldWalletID, id) }

func (f Fields) Transaction(id string) Fields { return append(f, FieldTransactionID, id) }

func (f Fields) Amount(v any) Fields { return append(f, FieldAmount, v) }

func (f Fields) Balance(v any) Fields { return append(f, FieldBalance, v) }

func (f Fields) Err(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, FieldError, err.Error())
}

func (f Fields) Slice() []any { return f }
