package store_test

import (
	"context"
	"testing"
	"time"

	"e2estore/internal/domain"
	"e2estore/internal/store"
	"e2estore/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestOperatorUpsertKeepsSingleRow(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	_, err := st.Operator().Get(ctx)
	require.ErrorIs(t, err, store.ErrRecordNotFound)

	require.NoError(t, st.Operator().Upsert(ctx, "key-1"))
	require.NoError(t, st.Operator().Upsert(ctx, "key-2"))

	row, err := st.Operator().Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "key-2", row.PublicKey)

	n, err := st.Operator().Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestCustomerLifecycle(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	c := &domain.Customer{PublicKey: "pub-1"}
	require.NoError(t, st.Customers().Create(ctx, c))
	require.NotEqual(t, uuid.Nil, c.ID)

	require.NoError(t, st.Customers().UpdatePublicKey(ctx, c.ID, "pub-2"))
	require.NoError(t, st.Customers().LinkAuthAccount(ctx, c.ID, "auth-42"))

	got, err := st.Customers().GetByAuthAccount(ctx, "auth-42")
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
	require.Equal(t, "pub-2", got.PublicKey)

	err = st.Customers().UpdatePublicKey(ctx, uuid.New(), "pub-x")
	require.ErrorIs(t, err, store.ErrRecordNotFound)

	_, err = st.Customers().GetByAuthAccount(ctx, "missing")
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func TestRecordsListedInCreationOrder(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	c := &domain.Customer{PublicKey: "pub"}
	require.NoError(t, st.Customers().Create(ctx, c))
	conv := &domain.Conversation{CustomerID: c.ID, Kind: domain.ConversationSupport}
	require.NoError(t, st.Conversations().Create(ctx, conv))

	base := time.Now().UTC()
	// Insert out of order; listing must sort by creation time.
	for _, offset := range []int{2, 0, 1} {
		rec := &domain.Record{
			ConversationID: conv.ID,
			Sender:         domain.SenderCustomer,
			Kind:           domain.RecordMessage,
			Envelope:       "env",
			CreatedAt:      base.Add(time.Duration(offset) * time.Second),
		}
		require.NoError(t, st.Records().Append(ctx, rec))
	}

	recs, err := st.Records().ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i := 1; i < len(recs); i++ {
		require.True(t, recs[i-1].CreatedAt.Before(recs[i].CreatedAt))
	}

	convs, err := st.Conversations().ListByCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
}

func TestWithTxRollsBack(t *testing.T) {
	st := testutil.OpenStore(t)
	ctx := context.Background()

	id := uuid.New()
	err := st.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Customers().Create(ctx, &domain.Customer{ID: id, PublicKey: "pub"}); err != nil {
			return err
		}
		return store.ErrRecordNotFound
	})
	require.ErrorIs(t, err, store.ErrRecordNotFound)

	_, err = st.Customers().Get(ctx, id)
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}
