package storeclient_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"e2estore/internal/conversation"
	"e2estore/internal/domain"
	"e2estore/internal/identity"
	"e2estore/internal/keyring"
	"e2estore/internal/notify"
	"e2estore/internal/service"
	"e2estore/internal/testutil"
	transport "e2estore/internal/transport/http"
	"e2estore/pkg/storeclient"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	_ identity.Directory         = (*storeclient.Client)(nil)
	_ conversation.EnvelopeStore = (*storeclient.Client)(nil)
)

func newClient(t *testing.T) *storeclient.Client {
	t.Helper()
	svc := service.New(testutil.OpenStore(t), notify.NewHub(0))
	srv := httptest.NewServer(transport.NewRouter(svc, transport.Options{PingInterval: 50 * time.Millisecond}))
	t.Cleanup(srv.Close)
	return storeclient.New(srv.URL, storeclient.WithReconnectDelay(50*time.Millisecond))
}

func TestErrorsMatchSentinels(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	_, err := c.CustomerPublicKey(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.RegisterCustomer(ctx, "junk", "")
	require.ErrorIs(t, err, service.ErrInvalidRequest)

	var apiErr *storeclient.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, 400, apiErr.Status)
}

func TestConversationOverHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newClient(t)

	opIDs := identity.NewStore(keyring.NewMemory(), c)
	require.NoError(t, opIDs.EnsureOperator(ctx))

	custIDs := identity.NewStore(keyring.NewMemory(), c)
	customer, err := custIDs.EnsureCustomer(ctx, "acct-http")
	require.NoError(t, err)
	customerID, _ := customer.CustomerID()

	custConvs := conversation.New(c, custIDs, conversation.Options{})
	opConvs := conversation.New(c, opIDs, conversation.Options{})

	conv, err := custConvs.Open(ctx, customerID, domain.ConversationOrder)
	require.NoError(t, err)

	listed, err := custConvs.List(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, conv.ID, listed[0].ID)

	updates := make(chan []conversation.Message, 8)
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- opConvs.Watch(ctx, domain.OperatorRole(), conv.ID, func(msgs []conversation.Message) {
			updates <- msgs
		})
	}()
	next := func() []conversation.Message {
		select {
		case msgs := <-updates:
			return msgs
		case <-time.After(5 * time.Second):
			t.Fatal("no update from watch")
			return nil
		}
	}
	require.Empty(t, next())

	details := conversation.OrderDetails{Address: "2 Side St", Notes: "ring twice"}
	_, err = custConvs.SendOrderDetails(ctx, customer, conv.ID, details)
	require.NoError(t, err)

	msgs := next()
	require.Len(t, msgs, 1)
	got, err := msgs[0].OrderDetails()
	require.NoError(t, err)
	require.Equal(t, details, got)

	_, err = opConvs.Send(ctx, domain.OperatorRole(), conv.ID, "on its way")
	require.NoError(t, err)

	own, err := custConvs.Read(ctx, customer, conv.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	require.Equal(t, "on its way", own[1].Text)
	require.Equal(t, conversation.Decrypted, own[0].Outcome)

	cancel()
	select {
	case err := <-watchDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestSubscribeUnknownConversation(t *testing.T) {
	c := newClient(t)
	_, err := c.Subscribe(context.Background(), uuid.New(), func(uuid.UUID) {})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
