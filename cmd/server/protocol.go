// Package main provides the TabulaDB TCP server.
package main

import (
	"encoding/json"
	"errors"

	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/db"
	"github.com/nickyhof/TabulaDB/ps"
)

// Error codes carried in Response.Code, one per sentinel in core.
const (
	CodeNotFound        = "not_found"
	CodeValidation      = "validation"
	CodeQuery           = "query"
	CodeMaterialization = "materialization"
	CodeInternal        = "internal"
	CodeAuth            = "auth"
)

// Response is the single reply shape for every command: one JSON object
// per line. Status is "ok" or "error"; on error Code carries the error
// class and Message the wrapped error text. The remaining fields are
// populated per command and omitted otherwise.
type Response struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// SQL path results.
	Columns []string      `json:"columns,omitempty"`
	Rows    []db.QueryRow `json:"rows,omitempty"`

	// Structured path results.
	Data        []core.Row               `json:"data,omitempty"`
	Total       int                      `json:"total,omitempty"`
	Page        int                      `json:"page,omitempty"`
	PageSize    int                      `json:"page_size,omitempty"`
	ColumnTypes map[string]core.DataType `json:"column_types,omitempty"`

	// Catalog listings and mutation receipts.
	Databases   []string         `json:"databases,omitempty"`
	Tables      []string         `json:"tables,omitempty"`
	Ids         []int64          `json:"ids,omitempty"`
	Count       int              `json:"count,omitempty"`
	Transaction string           `json:"transaction,omitempty"`
	History     []ps.Transaction `json:"history,omitempty"`
	Remotes     []ps.Remote      `json:"remotes,omitempty"`

	// Authentication results.
	Identity  string `json:"identity,omitempty"`
	ExpiresIn int    `json:"expires_in,omitempty"`

	TimeMs float64 `json:"time_ms,omitempty"`
}

// ErrorResponse builds an error response from an engine error, classifying
// it against the core sentinels.
func ErrorResponse(err error) Response {
	return Response{
		Status:  "error",
		Code:    errorCode(err),
		Message: err.Error(),
	}
}

// errorCode maps an error chain to its protocol code. Unclassified errors
// report as internal.
func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, core.ErrValidation):
		return CodeValidation
	case errors.Is(err, core.ErrQuery):
		return CodeQuery
	case errors.Is(err, core.ErrMaterialization):
		return CodeMaterialization
	default:
		return CodeInternal
	}
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
