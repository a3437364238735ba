package tutoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRollbackDiscardsOnlyTxWrites(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	errAbort := errors.New("abort")

	inserted := make(chan error, 1)
	err := st.WithTx(ctx, func(tx Store) error {
		require.NoError(t, tx.InsertPayment(ctx, Payment{ID: "in-tx", StudentID: "s1", ClassID: "c1", Month: "2024-06"}))

		go func() {
			inserted <- st.InsertPayment(ctx, Payment{ID: "outside", StudentID: "s2", ClassID: "c1", Month: "2024-06"})
		}()
		select {
		case err := <-inserted:
			t.Errorf("write outside the transaction finished early: %v", err)
		case <-time.After(20 * time.Millisecond):
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	select {
	case err := <-inserted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("write outside the transaction never completed")
	}

	got, err := st.ListPayments(ctx, PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "outside", got[0].ID)
}

func TestMemoryStoreTxCommitAndNesting(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	err := st.WithTx(ctx, func(tx Store) error {
		if err := tx.InsertTeacher(ctx, Teacher{ID: "t1", Name: "T"}); err != nil {
			return err
		}
		return tx.WithTx(ctx, func(inner Store) error {
			_, err := inner.GetTeacher(ctx, "t1")
			return err
		})
	})
	require.NoError(t, err)

	_, err = st.GetTeacher(ctx, "t1")
	assert.NoError(t, err)
}

func TestMemoryStoreUniqueness(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.InsertPayment(ctx, Payment{ID: "p1", StudentID: "s", ClassID: "c", Month: "2024-06"}))
	assert.ErrorIs(t, st.InsertPayment(ctx, Payment{ID: "p2", StudentID: "s", ClassID: "c", Month: "2024-06"}), ErrDuplicate)

	require.NoError(t, st.InsertAttendance(ctx, Attendance{ID: "a1", StudentID: "s", ClassID: "c", Day: day}))
	assert.ErrorIs(t, st.InsertAttendance(ctx, Attendance{ID: "a2", StudentID: "s", ClassID: "c", Day: day}), ErrDuplicate)
}
