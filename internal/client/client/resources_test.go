package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoices_CRUDAndSend(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{"invoice": map[string]any{"id": "i9", "client_id": body["client_id"]}})
	}).Methods(http.MethodPost)
	r.HandleFunc("/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"invoice": map[string]any{"id": mux.Vars(r)["id"], "status": "paid"}})
	}).Methods(http.MethodPut)
	r.HandleFunc("/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}).Methods(http.MethodDelete)
	r.HandleFunc("/invoices/{id}/send", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Invoice sent successfully"})
	}).Methods(http.MethodPost)
	srv := newTestServer(t, r)

	inv := New(srv.URL).Invoices()
	ctx := context.Background()

	created, err := inv.Create(ctx, map[string]any{"client_id": "c1"})
	require.NoError(t, err)
	assert.Equal(t, "i9", created.ID)

	updated, err := inv.Update(ctx, "i9", map[string]any{"status": "paid"})
	require.NoError(t, err)
	assert.Equal(t, "paid", updated.Status)

	msg, err := inv.Send(ctx, "i9")
	require.NoError(t, err)
	assert.Equal(t, "Invoice sent successfully", msg)

	require.NoError(t, inv.Delete(ctx, "i9"))
}

func TestClients_GetAndTags(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/clients/tags", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tags": []string{"vip", "eu"}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/clients/{id}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] != "c1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Client not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"client": map[string]any{"id": "c1", "company_name": "Acme"}})
	}).Methods(http.MethodGet)
	srv := newTestServer(t, r)

	cl := New(srv.URL).Clients()
	ctx := context.Background()

	tags, err := cl.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "eu"}, tags)

	c, err := cl.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.CompanyName)

	_, err = cl.Get(ctx, "zz")
	require.ErrorIs(t, err, ErrNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Client not found", apiErr.Message)
}

func TestPayments(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/payments/stripe/create-intent", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["invoice_id"] != "i1" || body["amount"] != 10.5 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"client_secret": "sec", "payment_intent_id": "pi_1"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/payments/paypal/create-order", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"order_id": "o1", "approval_url": "https://pay/approve"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/payments/invoice/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"payments": []map[string]any{
			{"id": "p1", "invoice_id": mux.Vars(r)["id"], "amount": 10.5, "status": "completed"},
		}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"payment": map[string]any{"id": mux.Vars(r)["id"], "payment_method": "stripe"}})
	}).Methods(http.MethodGet)
	srv := newTestServer(t, r)

	pay := New(srv.URL).Payments()
	ctx := context.Background()

	intent, err := pay.CreateStripeIntent(ctx, "i1", 10.5)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.PaymentIntentID)

	order, err := pay.CreatePayPalOrder(ctx, "i1", 10.5)
	require.NoError(t, err)
	assert.Equal(t, "https://pay/approve", order.ApprovalURL)

	list, err := pay.ForInvoice(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "i1", list[0].InvoiceID)

	p, err := pay.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "stripe", p.PaymentMethod)
}

func TestReports(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/reports/revenue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"period": r.URL.Query().Get("period")})
	}).Methods(http.MethodGet)
	r.HandleFunc("/reports/clients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"clients": []any{}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/reports/export", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"report_type": body["report_type"]})
	}).Methods(http.MethodPost)
	srv := newTestServer(t, r)

	rep := New(srv.URL).Reports()
	ctx := context.Background()

	rev, err := rep.Revenue(ctx, Params{"period": "monthly"})
	require.NoError(t, err)
	assert.Equal(t, "monthly", rev["period"])

	cl, err := rep.ClientsReport(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, cl, "clients")

	exp, err := rep.Export(ctx, map[string]any{"report_type": "revenue"})
	require.NoError(t, err)
	assert.Equal(t, "revenue", exp["report_type"])
}
