package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/invoiceclient/internal/client/models"
)

// Invoices wraps the /invoices endpoints.
type Invoices struct{ c *HTTPClient }

func (c *HTTPClient) Invoices() Invoices { return Invoices{c: c} }

func (s Invoices) List(ctx context.Context, params Params) (*models.InvoicePage, error) {
	var out models.InvoicePage
	if err := s.c.Get(ctx, "/invoices", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s Invoices) Get(ctx context.Context, id string) (*models.Invoice, error) {
	var out struct {
		Invoice models.Invoice `json:"invoice"`
	}
	if err := s.c.Get(ctx, "/invoices/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

// Create posts a new invoice. data is passed through as the request body.
func (s Invoices) Create(ctx context.Context, data any) (*models.Invoice, error) {
	var out struct {
		Invoice models.Invoice `json:"invoice"`
	}
	if err := s.c.Post(ctx, "/invoices", data, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (s Invoices) Update(ctx context.Context, id string, data any) (*models.Invoice, error) {
	var out struct {
		Invoice models.Invoice `json:"invoice"`
	}
	if err := s.c.Put(ctx, "/invoices/"+url.PathEscape(id), data, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

func (s Invoices) Delete(ctx context.Context, id string) error {
	return s.c.Delete(ctx, "/invoices/"+url.PathEscape(id), nil)
}

// Send asks the server to email the invoice; it returns the server message.
func (s Invoices) Send(ctx context.Context, id string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := s.c.Post(ctx, "/invoices/"+url.PathEscape(id)+"/send", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// DownloadPDF saves the rendered invoice as invoice-<id>.pdf.
func (s Invoices) DownloadPDF(ctx context.Context, id string) (string, error) {
	return s.c.DownloadFile(ctx, "/invoices/"+url.PathEscape(id)+"/pdf", fmt.Sprintf("invoice-%s.pdf", id))
}

// Clients wraps the /clients endpoints.
type Clients struct{ c *HTTPClient }

func (c *HTTPClient) Clients() Clients { return Clients{c: c} }

func (s Clients) List(ctx context.Context, params Params) (*models.ClientPage, error) {
	var out models.ClientPage
	if err := s.c.Get(ctx, "/clients", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s Clients) Get(ctx context.Context, id string) (*models.Client, error) {
	var out struct {
		Client models.Client `json:"client"`
	}
	if err := s.c.Get(ctx, "/clients/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Client, nil
}

func (s Clients) Create(ctx context.Context, data any) (*models.Client, error) {
	var out struct {
		Client models.Client `json:"client"`
	}
	if err := s.c.Post(ctx, "/clients", data, &out); err != nil {
		return nil, err
	}
	return &out.Client, nil
}

func (s Clients) Update(ctx context.Context, id string, data any) (*models.Client, error) {
	var out struct {
		Client models.Client `json:"client"`
	}
	if err := s.c.Put(ctx, "/clients/"+url.PathEscape(id), data, &out); err != nil {
		return nil, err
	}
	return &out.Client, nil
}

func (s Clients) Delete(ctx context.Context, id string) error {
	return s.c.Delete(ctx, "/clients/"+url.PathEscape(id), nil)
}

func (s Clients) Tags(ctx context.Context) ([]string, error) {
	var out struct {
		Tags []string `json:"tags"`
	}
	if err := s.c.Get(ctx, "/clients/tags", nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// Payments wraps the /payments endpoints.
type Payments struct{ c *HTTPClient }

func (c *HTTPClient) Payments() Payments { return Payments{c: c} }

func (s Payments) CreateStripeIntent(ctx context.Context, invoiceID string, amount float64) (*models.StripeIntent, error) {
	var out models.StripeIntent
	body := map[string]any{"invoice_id": invoiceID, "amount": amount}
	if err := s.c.Post(ctx, "/payments/stripe/create-intent", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s Payments) CreatePayPalOrder(ctx context.Context, invoiceID string, amount float64) (*models.PayPalOrder, error) {
	var out models.PayPalOrder
	body := map[string]any{"invoice_id": invoiceID, "amount": amount}
	if err := s.c.Post(ctx, "/payments/paypal/create-order", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s Payments) Get(ctx context.Context, id string) (*models.Payment, error) {
	var out struct {
		Payment models.Payment `json:"payment"`
	}
	if err := s.c.Get(ctx, "/payments/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Payment, nil
}

func (s Payments) ForInvoice(ctx context.Context, invoiceID string) ([]models.Payment, error) {
	var out struct {
		Payments []models.Payment `json:"payments"`
	}
	if err := s.c.Get(ctx, "/payments/invoice/"+url.PathEscape(invoiceID), nil, &out); err != nil {
		return nil, err
	}
	return out.Payments, nil
}

// Reports wraps the /reports endpoints.
type Reports struct{ c *HTTPClient }

func (c *HTTPClient) Reports() Reports { return Reports{c: c} }

func (s Reports) Dashboard(ctx context.Context, params Params) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := s.c.Get(ctx, "/reports/dashboard", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revenue and ClientsReport return the server payload undecoded beyond a map.
func (s Reports) Revenue(ctx context.Context, params Params) (map[string]any, error) {
	var out map[string]any
	if err := s.c.Get(ctx, "/reports/revenue", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s Reports) ClientsReport(ctx context.Context, params Params) (map[string]any, error) {
	var out map[string]any
	if err := s.c.Get(ctx, "/reports/clients", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Export requests a report export; req carries report_type and the range.
func (s Reports) Export(ctx context.Context, req map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := s.c.Post(ctx, "/reports/export", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
