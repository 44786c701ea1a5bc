package payment

// Statuses reported by gateways. Adapters map provider specific values onto
// these where a mapping exists and pass unknown values through unchanged.
const (
	StatusSucceeded         = "SUCCEEDED"
	StatusInsufficientFunds = "INSUFFICIENT_FUNDS"
	StatusFailed            = "FAILED"
	StatusRefunded          = "REFUNDED"
)

// Payment methods accepted by one-click-buy.
const (
	MethodCard      = "CARD"
	MethodBCAVA     = "BCA_VIRTUAL_ACCOUNT"
	MethodBNIVA     = "BNI_VIRTUAL_ACCOUNT"
	MethodMandiriVA = "MANDIRI_VIRTUAL_ACCOUNT"
	MethodQRIS      = "QRIS"
	MethodOVO       = "OVO"
	MethodDANA      = "DANA"
	MethodShopeePay = "SHOPEEPAY"
)

type AuthorizeRequest struct {
	Amount   int64
	Method   string
	UserID   uint
	OrderRef string
}

// AuthorizeResult is a business outcome. A declined payment is a result with
// Success false, not an error.
type AuthorizeResult struct {
	Success       bool
	TransactionID string
	Status        string
	Message       string
}

type RefundResult struct {
	Success       bool
	TransactionID string
	Status        string
	Message       string
}
