package models

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TaxRate        float64 `json:"tax_rate"`
	DiscountRate   float64 `json:"discount_rate"`
	Subtotal       float64 `json:"subtotal,omitempty"`
	DiscountAmount float64 `json:"discount_amount,omitempty"`
	TaxAmount      float64 `json:"tax_amount,omitempty"`
	Total          float64 `json:"total,omitempty"`
}

// Invoice mirrors the server's invoice record. Totals are computed by the
// server and only displayed here.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number"`
	ClientID      string        `json:"client_id"`
	Client        *Client       `json:"client,omitempty"`
	IssueDate     string        `json:"issue_date,omitempty"`
	DueDate       string        `json:"due_date,omitempty"`
	SentDate      string        `json:"sent_date,omitempty"`
	PaidDate      string        `json:"paid_date,omitempty"`
	Status        string        `json:"status"`
	Currency      string        `json:"currency"`
	Subtotal      float64       `json:"subtotal"`
	TaxTotal      float64       `json:"tax_total"`
	DiscountTotal float64       `json:"discount_total"`
	TotalAmount   float64       `json:"total_amount"`
	PaidAmount    float64       `json:"paid_amount"`
	BalanceDue    float64       `json:"balance_due"`
	Items         []InvoiceItem `json:"items,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// InvoicePage is the body of GET /invoices.
type InvoicePage struct {
	Invoices   []Invoice  `json:"invoices"`
	Pagination Pagination `json:"pagination"`
}

// Client is a customer being invoiced.
type Client struct {
	ID             string   `json:"id"`
	CompanyName    string   `json:"company_name"`
	ContactPerson  string   `json:"contact_person,omitempty"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	BillingAddress string   `json:"billing_address,omitempty"`
	BillingCity    string   `json:"billing_city,omitempty"`
	BillingCountry string   `json:"billing_country,omitempty"`
	TaxID          string   `json:"tax_id,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	IsActive       bool     `json:"is_active"`
}

// ClientPage is the body of GET /clients.
type ClientPage struct {
	Clients    []Client   `json:"clients"`
	Pagination Pagination `json:"pagination"`
}

// Payment is a recorded payment against an invoice.
type Payment struct {
	ID            string  `json:"id"`
	InvoiceID     string  `json:"invoice_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transaction_id,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// StripeIntent is returned by POST /payments/stripe/create-intent.
type StripeIntent struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

// PayPalOrder is returned by POST /payments/paypal/create-order.
type PayPalOrder struct {
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
}

// DashboardSummary holds the totals block of GET /reports/dashboard.
type DashboardSummary struct {
	TotalInvoices int     `json:"total_invoices"`
	TotalAmount   float64 `json:"total_amount"`
	TotalPaid     float64 `json:"total_paid"`
	TotalPending  float64 `json:"total_pending"`
	Days          int     `json:"days"`
}

// Dashboard is the body of GET /reports/dashboard. The chart series are
// kept as loose JSON values.
type Dashboard struct {
	Summary        DashboardSummary `json:"summary"`
	StatusCounts   map[string]int   `json:"status_counts"`
	MonthlyRevenue []map[string]any `json:"monthly_revenue"`
	TopClients     []map[string]any `json:"top_clients"`
}
