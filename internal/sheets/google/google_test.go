package google

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Settlements")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spreadsheet id")
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-id", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account credentials")
}

func TestYearPrefixedName(t *testing.T) {
	assert.Equal(t, "2026 Settlements", yearPrefixedName("Settlements", 2026))
	assert.Equal(t, "Settlements 2026", yearPrefixedName("Settlements %d", 2026))
}
