package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRoleRoundTrip(t *testing.T) {
	id := uuid.New()
	for _, r := range []Role{OperatorRole(), CustomerRole(id)} {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		require.Equal(t, r, parsed)
	}

	_, err := ParseRole("customer:nope")
	require.Error(t, err)
	_, err = ParseRole("admin")
	require.Error(t, err)
}

func TestRoleCounterpart(t *testing.T) {
	id := uuid.New()
	require.Equal(t, OperatorRole(), CustomerRole(id).Counterpart(id))
	require.Equal(t, CustomerRole(id), OperatorRole().Counterpart(id))
	require.Equal(t, SenderOperator, OperatorRole().Sender())
	require.Equal(t, SenderCustomer, CustomerRole(id).Sender())

	got, ok := CustomerRole(id).CustomerID()
	require.True(t, ok)
	require.Equal(t, id, got)
	_, ok = OperatorRole().CustomerID()
	require.False(t, ok)
}
