package dto

// LoginRequest is the request body for admin console login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// OnboardMerchantRequest is the request body for merchant onboarding.
type OnboardMerchantRequest struct {
	LegalName            string `json:"legal_name" binding:"required,min=1,max=200"`
	Country              string `json:"country" binding:"required,len=2"`
	SellsInternationally bool   `json:"sells_internationally"`
	VerificationDoc      string `json:"verification_doc,omitempty" binding:"max=64"`
}

// SetSpreadRequest is the request body for a merchant spread override.
// A null spread clears the override.
type SetSpreadRequest struct {
	SpreadPercent *string `json:"spread_percent"`
}

// MerchantResponse is the merchant profile view. The verification
// document never appears here, encrypted or otherwise.
type MerchantResponse struct {
	ID                   string  `json:"id"`
	LegalName            string  `json:"legal_name"`
	Country              string  `json:"country"`
	Status               string  `json:"status"`
	DashboardCurrency    string  `json:"dashboard_currency"`
	PayoutCurrency       string  `json:"payout_currency"`
	FxSpreadPercent      *string `json:"fx_spread_percent,omitempty"`
	SellsInternationally bool    `json:"sells_internationally"`
	CreatedAt            string  `json:"created_at"`
}

// BalanceResponse is the three-bucket balance view. Amounts are
// decimal strings to avoid float artifacts in clients.
type BalanceResponse struct {
	MerchantID string `json:"merchant_id"`
	Currency   string `json:"currency"`
	Reserve    string `json:"reserve"`
	Available  string `json:"available"`
	Pending    string `json:"pending"`
	Total      string `json:"total"`
}

// CreditReserveRequest is the request body for crediting captured
// funds into reserve.
type CreditReserveRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required,currency"`
	Reference string `json:"reference" binding:"required,max=100"`
}

// ReleaseReserveRequest is the request body for a manual reserve
// release.
type ReleaseReserveRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"required,max=100"`
}

// DebitAvailableRequest is the request body for debiting available
// funds (payouts, fees).
type DebitAvailableRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Reference string `json:"reference" binding:"required,max=100"`
}

// RefundRequest is the request body for an externally triggered
// refund or chargeback.
type RefundRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Currency  string `json:"currency" binding:"required,currency"`
	Reference string `json:"reference" binding:"required,max=100"`
}

// AdjustBalanceRequest is the request body for an admin balance
// adjustment. Deltas are decimal strings; omitted buckets are
// untouched.
type AdjustBalanceRequest struct {
	ReserveDelta   *string `json:"reserve_delta,omitempty"`
	AvailableDelta *string `json:"available_delta,omitempty"`
	PendingDelta   *string `json:"pending_delta,omitempty"`
	Reason         string  `json:"reason" binding:"required,max=200"`
}

// AdjustmentResponse is one audit-trail entry.
type AdjustmentResponse struct {
	ID              string  `json:"id"`
	MerchantID      string  `json:"merchant_id"`
	ReserveDelta    *string `json:"reserve_delta,omitempty"`
	AvailableDelta  *string `json:"available_delta,omitempty"`
	PendingDelta    *string `json:"pending_delta,omitempty"`
	Reason          string  `json:"reason"`
	AdjustedBy      string  `json:"adjusted_by"`
	Reference       string  `json:"reference,omitempty"`
	NegativeBalance bool    `json:"negative_balance"`
	CreatedAt       string  `json:"created_at"`
}

// SnapshotRateRequest is the request body for recording a new rate.
type SnapshotRateRequest struct {
	Base  string `json:"base" binding:"required,currency"`
	Quote string `json:"quote" binding:"required,currency"`
	Rate  string `json:"rate" binding:"required"`
}

// RateResponse is the rate view for current and historical lookups.
type RateResponse struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
	Rate  string `json:"rate"`
	AsOf  string `json:"as_of,omitempty"`
}

// ConvertRequest is the request body for an FX conversion quote. A
// null spread falls back to the global default spread setting.
type ConvertRequest struct {
	Amount        string  `json:"amount" binding:"required"`
	From          string  `json:"from" binding:"required,currency"`
	To            string  `json:"to" binding:"required,currency"`
	SpreadPercent *string `json:"spread_percent,omitempty"`
}

// ConversionResponse is the result of an FX conversion quote.
type ConversionResponse struct {
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          string `json:"amount"`
	ConvertedAmount string `json:"converted_amount"`
	EffectiveRate   string `json:"effective_rate"`
}

// SettingResponse is one configuration entry.
type SettingResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	UpdatedBy   string `json:"updated_by,omitempty"`
	UpdatedAt   string `json:"updated_at"`
}

// UpdateSettingRequest is the request body for changing a setting.
type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required,max=500"`
}

// SweepReportResponse summarises one reserve-release run.
type SweepReportResponse struct {
	MerchantsProcessed int    `json:"merchants_processed"`
	MerchantsFailed    int    `json:"merchants_failed"`
	TotalReleased      string `json:"total_released"`
	StartedAt          string `json:"started_at"`
	FinishedAt         string `json:"finished_at"`
}
