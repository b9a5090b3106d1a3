package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/mosaic-money/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "test",
			paramName: "param",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "string with spaces",
			str:       "  test  ",
			paramName: "param",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	valid := func() *model.Transaction {
		return &model.Transaction{
			ID:          "txn-1",
			HouseholdID: "house-1",
			Amount:      decimal.RequireFromString("-1.25"),
			Date:        time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		}
	}

	tests := []struct {
		wantErr error
		mutate  func(*model.Transaction)
		name    string
	}{
		{name: "valid", mutate: func(*model.Transaction) {}},
		{name: "missing id", mutate: func(txn *model.Transaction) { txn.ID = "" }, wantErr: ErrInvalidTransaction},
		{name: "missing household", mutate: func(txn *model.Transaction) { txn.HouseholdID = "" }, wantErr: ErrInvalidTransaction},
		{name: "missing date", mutate: func(txn *model.Transaction) { txn.Date = time.Time{} }, wantErr: ErrInvalidTransaction},
		{name: "explicit status", mutate: func(txn *model.Transaction) { txn.ReviewStatus = model.ReviewStatusReviewed }},
		{name: "unknown status", mutate: func(txn *model.Transaction) { txn.ReviewStatus = "Open" }, wantErr: ErrInvalidReviewStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid()
			tt.mutate(txn)
			err := validateTransaction(txn)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.ErrorIs(t, validateTransaction(nil), ErrNilParameter)
}
