package amqp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseEventMessageRoundTrip(t *testing.T) {
	msg := NewExpenseEventMessage(42, "created", "account:7", "19.99")
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)

	data, err := msg.ToJSON()
	require.NoError(t, err)

	decoded, err := ExpenseEventMessageFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded.ID)
	assert.Equal(t, "created", decoded.Action)
	assert.Equal(t, "account:7", decoded.Owner)
	assert.Equal(t, "19.99", decoded.TotalAmount)
	assert.True(t, decoded.Timestamp.Equal(msg.Timestamp))
}

func TestExpenseEventMessageFromJSONRejectsGarbage(t *testing.T) {
	_, err := ExpenseEventMessageFromJSON([]byte(`{"id": "not a number"`))
	require.Error(t, err)
}

func TestDeletedEventOmitsTotal(t *testing.T) {
	msg := NewExpenseEventMessage(7, "deleted", "guest:3f1c0b9e-8d4a-4a2b-9c6d-1e2f3a4b5c6d", "")

	data, err := msg.ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "total_amount")
}
