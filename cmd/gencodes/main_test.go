package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"coursepay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCodes() []models.RechargeCode {
	created := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	return []models.RechargeCode{
		{Code: "EDU-one", Amount: decimal.NewFromInt(50), CreatedAt: created},
		{Code: "EDU-two", Amount: decimal.NewFromInt(50), CreatedAt: created},
	}
}

func TestWriteCodes(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"txt", func(t *testing.T, out string) {
			assert.Equal(t, "EDU-one\nEDU-two\n", out)
		}},
		{"csv", func(t *testing.T, out string) {
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 3)
			assert.Equal(t, "Code,Amount,Expires At,Created At", lines[0])
			assert.Equal(t, "EDU-one,50.00,,2026-09-01 08:00:00", lines[1])
		}},
		{"json", func(t *testing.T, out string) {
			var decoded []models.RechargeCode
			require.NoError(t, json.Unmarshal([]byte(out), &decoded))
			require.Len(t, decoded, 2)
			assert.Equal(t, "EDU-two", decoded[1].Code)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeCodes(&buf, tt.format, sampleCodes()))
			tt.check(t, buf.String())
		})
	}
}

func TestRun_RejectsBadOptionsBeforeConnecting(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want string
	}{
		{"missing amount", options{Count: 1, Format: "csv"}, "-amount is required"},
		{"count too large", options{Amount: "10", Count: 1001, Format: "csv"}, "-count must be at most 1000"},
		{"unknown format", options{Amount: "10", Count: 1, Format: "xml"}, "-format must be one of csv, txt, json"},
		{"bad amount", options{Amount: "ten", Count: 1, Format: "csv"}, "invalid -amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
