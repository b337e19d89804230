package notification

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushAndDrainPerUser(t *testing.T) {
	ns := NewNotificationService()

	ns.Push("user-1", TypeUpload, "invoices.csv ingested")
	ns.Push("user-1", TypeDelete, "invoices.csv deleted")
	ns.Push("user-2", TypeSubmission, "5 invoices submitted")

	feed := ns.Drain("user-1")
	require.Len(t, feed, 2)
	assert.Equal(t, TypeUpload, feed[0].Type)
	assert.Equal(t, "invoices.csv ingested", feed[0].Message)
	assert.False(t, feed[0].CreatedAt.IsZero())
	assert.Equal(t, TypeDelete, feed[1].Type)

	assert.Empty(t, ns.Drain("user-1"), "drain consumes the feed")

	other := ns.Drain("user-2")
	require.Len(t, other, 1)
	assert.Equal(t, TypeSubmission, other[0].Type)
}

func TestPeekDoesNotConsume(t *testing.T) {
	ns := NewNotificationService()
	ns.Push("user-1", TypeUpload, "hello")

	assert.Len(t, ns.Peek("user-1"), 1)
	assert.Len(t, ns.Peek("user-1"), 1)
	assert.Len(t, ns.Drain("user-1"), 1)
	assert.Empty(t, ns.Peek("user-1"))
}

func TestFeedIsBounded(t *testing.T) {
	ns := NewNotificationService()
	for i := 0; i < maxPerUser+25; i++ {
		ns.Push("user-1", TypeUpload, fmt.Sprintf("notice %d", i))
	}

	feed := ns.Peek("user-1")
	require.Len(t, feed, maxPerUser)
	assert.Equal(t, fmt.Sprintf("notice %d", 25), feed[0].Message, "oldest entries fall off first")
}
