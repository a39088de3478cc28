package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

func TestRunPrintsTable(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-photos", "20", "-services", "twilightConversion, decluttering"}, &out)
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "Twilight Conversion")
	require.Contains(t, text, "15% Volume Discount")
	require.Contains(t, text, "-25.44")
	require.True(t, strings.HasSuffix(strings.TrimSpace(text), "144.16"), text)
}

func TestRunJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-photos", "9", "-json", "-currency", "eur"}, &out))

	var got struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
		Tier     any    `json:"discountTier"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Equal(t, "13.50", got.Total)
	require.Equal(t, "EUR", got.Currency)
	require.Nil(t, got.Tier)
}

func TestRunRejectsBadInput(t *testing.T) {
	err := run([]string{"-services", "hdr"}, &bytes.Buffer{})
	require.True(t, errors.Is(err, pricing.ErrInvalidInput), "got %v", err)

	err = run([]string{"-photos", "-3"}, &bytes.Buffer{})
	require.True(t, errors.Is(err, pricing.ErrInvalidInput), "got %v", err)
}
