package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestKeyValueLogger_DelegatesWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewKeyValueLogger(zap.New(core))

	logger.Info("Expense submitted", "expense_id", "exp-1", "steps_created", 2)
	logger.Error("Audit record failed", "entity_id", "exp-1")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "Expense submitted", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "exp-1", fields["expense_id"])
	assert.EqualValues(t, 2, fields["steps_created"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "Audit record failed", entries[1].Message)
	assert.Equal(t, "exp-1", entries[1].ContextMap()["entity_id"])
}

func TestKeyValueLogger_SkipsMalformedPairs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewKeyValueLogger(zap.New(core))

	// A non-string key and a trailing dangling value are both dropped.
	logger.Info("odd pairs", 42, "value", "kept", "yes", "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "yes", fields["kept"])
	assert.Len(t, fields, 1)
}
