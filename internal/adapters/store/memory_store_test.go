package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mikey/email-priority/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStoreContacts(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	err := s.PutContact(ctx, &core.Contact{Key: "Boss@Corp.COM", Name: "The Boss", Level: core.AuthorityVIP})
	require.NoError(t, err)

	contact, err := s.Lookup(ctx, "boss@corp.com")
	require.NoError(t, err)
	assert.Equal(t, "boss@corp.com", contact.Key)
	assert.Equal(t, core.AuthorityVIP, contact.Level)

	_, err = s.Lookup(ctx, "unknown@corp.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStoreLookupReturnsCopy(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.PutContact(ctx, &core.Contact{Key: "a@b.com", Level: core.AuthorityClient}))

	first, err := s.Lookup(ctx, "a@b.com")
	require.NoError(t, err)
	first.Level = core.AuthorityVIP

	second, err := s.Lookup(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, core.AuthorityClient, second.Level)
}

func TestMemoryStoreRecordEmailReceived(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordEmailReceived(ctx, "ana@client.io", at))
	require.NoError(t, s.RecordEmailReceived(ctx, "ana@client.io", at.Add(24*time.Hour)))

	h, err := s.Get(ctx, "ana@client.io")
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.EmailsReceived)
	assert.Equal(t, int64(0), h.EmailsReplied)
	assert.Equal(t, at, h.FirstSeen)
	assert.Equal(t, at.Add(24*time.Hour), h.LastInteraction)
}

func TestMemoryStoreRecordReply(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.RecordEmailReceived(ctx, "ana@client.io", time.Now()))
	require.NoError(t, s.RecordReply(ctx, "ana@client.io", 2*time.Hour))

	h, err := s.Get(ctx, "ana@client.io")
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.EmailsReplied)
	assert.Equal(t, 2*time.Hour, h.TotalResponseTime)
}

func TestMemoryStoreReplyNeverExceedsReceived(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	// Reply to a sender with no recorded sightings
	require.NoError(t, s.RecordReply(ctx, "ghost@b.com", time.Minute))

	h, err := s.Get(ctx, "ghost@b.com")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, h.EmailsReceived, h.EmailsReplied)
}

func TestMemoryStoreConcurrentReplies(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.RecordReply(ctx, "busy@corp.com", time.Minute))
		}()
	}
	wg.Wait()

	h, err := s.Get(ctx, "busy@corp.com")
	require.NoError(t, err)
	assert.Equal(t, int64(n), h.EmailsReplied, "no reply event may be lost")
	assert.GreaterOrEqual(t, h.EmailsReceived, h.EmailsReplied)
	assert.Equal(t, time.Duration(n)*time.Minute, h.TotalResponseTime)
}

func TestMemoryStoreEpochAdvances(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	before := s.Epoch()
	require.NoError(t, s.PutContact(ctx, &core.Contact{Key: "a@b.com", Level: core.AuthorityNormal}))
	afterContact := s.Epoch()
	require.NoError(t, s.RecordReply(ctx, "a@b.com", time.Second))
	afterReply := s.Epoch()

	assert.Greater(t, afterContact, before)
	assert.Greater(t, afterReply, afterContact)
}

func TestMemoryStoreDefaultHistory(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	_, err := s.Get(ctx, "anyone@b.com")
	assert.ErrorIs(t, err, core.ErrNotFound)

	s.SetDefaultHistory(&core.SenderHistory{EmailsReceived: 20, EmailsReplied: 15})

	h, err := s.Get(ctx, "anyone@b.com")
	require.NoError(t, err)
	assert.Equal(t, int64(20), h.EmailsReceived)
	assert.Equal(t, "anyone@b.com", h.SenderEmail)
}
