// Package models defines the records exchanged with the invoice API and
// held in client state. Field names follow the server's JSON.
package models
