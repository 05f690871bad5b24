package models

import "strings"

// RoleAdmin is the role string of administrators.
const RoleAdmin = "admin"

// User is the identity record returned by the auth endpoints.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`

	CompanyName    string `json:"company_name,omitempty"`
	CompanyAddress string `json:"company_address,omitempty"`
	CompanyPhone   string `json:"company_phone,omitempty"`
	CompanyWebsite string `json:"company_website,omitempty"`
	CompanyLogo    string `json:"company_logo,omitempty"`

	DefaultCurrency   string  `json:"default_currency,omitempty"`
	DefaultTaxRate    float64 `json:"default_tax_rate,omitempty"`
	InvoicePrefix     string  `json:"invoice_prefix,omitempty"`
	NextInvoiceNumber int     `json:"next_invoice_number,omitempty"`
	StripeEnabled     bool    `json:"stripe_enabled"`
	PaypalEnabled     bool    `json:"paypal_enabled"`

	PreferredLanguage string `json:"preferred_language,omitempty"`
	Timezone          string `json:"timezone,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether u has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	CompanyName     string  `json:"company_name,omitempty"`
	CompanyAddress  string  `json:"company_address,omitempty"`
	CompanyPhone    string  `json:"company_phone,omitempty"`
	CompanyWebsite  string  `json:"company_website,omitempty"`
	DefaultCurrency string  `json:"default_currency,omitempty"`
	DefaultTaxRate  float64 `json:"default_tax_rate,omitempty"`
	InvoicePrefix   string  `json:"invoice_prefix,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Message      string `json:"message"`
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
