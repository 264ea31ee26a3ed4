package payment

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/farellandr/payrecon/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaymentByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	payer := f.store.addUser(models.RoleMember, models.UserStatusActive)
	p := f.store.seedPayment(payer.ID, models.PurposeMonthlyDonation, 100, models.PaymentStatusPaid)

	t.Run("Owner", func(t *testing.T) {
		got, err := f.engine.GetPaymentByID(ctx, p.ID, payer.ID, models.RoleMember)
		require.NoError(t, err)
		assert.Equal(t, p.TransactionID, got.TransactionID)
		require.NotNil(t, got.User)
		assert.Equal(t, payer.Email, got.User.Email)
	})

	t.Run("Other user is forbidden", func(t *testing.T) {
		_, err := f.engine.GetPaymentByID(ctx, p.ID, uuid.New(), models.RoleMember)
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.engine.GetPaymentByID(ctx, p.ID, uuid.New(), models.RoleUser)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("Admins see any invoice", func(t *testing.T) {
		for _, role := range []models.Role{models.RoleAdmin, models.RoleSuperAdmin} {
			got, err := f.engine.GetPaymentByID(ctx, p.ID, uuid.New(), role)
			require.NoError(t, err, role)
			assert.Equal(t, p.ID, got.ID)
		}
	})

	t.Run("Missing payment", func(t *testing.T) {
		_, err := f.engine.GetPaymentByID(ctx, uuid.New(), payer.ID, models.RoleAdmin)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestGetReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	payer := f.store.addUser(models.RoleUser, models.UserStatusActive)
	paid := f.store.seedPayment(payer.ID, models.PurposeMonthlyDonation, 100, models.PaymentStatusPaid)
	pending := f.store.seedPayment(payer.ID, models.PurposeMonthlyDonation, 100, models.PaymentStatusInitiated)

	_, err := f.engine.GetReceipt(ctx, paid.ID, payer.ID, models.RoleUser)
	assert.NoError(t, err)

	_, err = f.engine.GetReceipt(ctx, pending.ID, payer.ID, models.RoleUser)
	assert.ErrorIs(t, err, ErrPaymentNotPaid)

	_, err = f.engine.GetReceipt(ctx, paid.ID, uuid.New(), models.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	payer := f.store.addUser(models.RoleUser, models.UserStatusActive)
	other := f.store.addUser(models.RoleUser, models.UserStatusActive)

	for i := 0; i < 12; i++ {
		status := models.PaymentStatusPaid
		if i%3 == 0 {
			status = models.PaymentStatusFailed
		}
		f.store.seedPayment(payer.ID, models.PurposeMonthlyDonation, int64(100+i), status)
		time.Sleep(time.Millisecond)
	}
	f.store.seedPayment(other.ID, models.PurposeMonthlyDonation, 999, models.PaymentStatusPaid)

	page, err := f.engine.ListForUser(ctx, payer.ID, ListQuery{Status: "ALL", Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)
	assert.Equal(t, PageMeta{Total: 12, Page: 2, Limit: 5, TotalPages: 3}, page.Meta)
	for _, p := range page.Data {
		assert.Equal(t, payer.ID, p.UserID)
	}

	page, err = f.engine.ListForUser(ctx, payer.ID, ListQuery{Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Meta.Total)
	assert.Equal(t, 10, page.Meta.Limit)
	assert.Equal(t, 1, page.Meta.Page)

	page, err = f.engine.ListForUser(ctx, payer.ID, ListQuery{Page: 9})
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)

	page, err = f.engine.ListForUser(ctx, payer.ID, ListQuery{Page: math.MaxInt, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, maxPage, page.Meta.Page)

	_, err = f.engine.ListForUser(ctx, payer.ID, ListQuery{Status: "REFUNDED"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestListAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := f.store.addUser(models.RoleUser, models.UserStatusActive)
	b := f.store.addUser(models.RoleMember, models.UserStatusActive)
	target := f.store.seedPayment(a.ID, models.PurposeProjectDonation, 100, models.PaymentStatusPaid)
	f.store.seedPayment(b.ID, models.PurposeMonthlyDonation, 200, models.PaymentStatusInitiated)

	_, err := f.engine.ListAll(ctx, models.RoleMember, ListQuery{})
	assert.ErrorIs(t, err, ErrForbidden)

	page, err := f.engine.ListAll(ctx, models.RoleAdmin, ListQuery{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Meta.Total)
	assert.Equal(t, 100, page.Meta.Limit)

	page, err = f.engine.ListAll(ctx, models.RoleSuperAdmin, ListQuery{Search: target.TransactionID[5:11]})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, target.ID, page.Data[0].ID)
}

func TestBuildFilter_ClampsPage(t *testing.T) {
	filter, page, limit, err := buildFilter(ListQuery{Page: math.MaxInt, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPageLimit, limit)
	assert.Equal(t, maxPage, page)
	assert.GreaterOrEqual(t, filter.Offset, 0)
	assert.LessOrEqual(t, filter.Offset, math.MaxInt32)
}

func TestFindByTransactionID(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	payer := f.store.addUser(models.RoleUser, models.UserStatusActive)
	p := f.store.seedPayment(payer.ID, models.PurposeMembershipFee, 500, models.PaymentStatusPaid)

	got, err := f.engine.FindByTransactionID(ctx, p.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PurposeMembershipFee, got.Purpose)

	_, err = f.engine.FindByTransactionID(ctx, "TXN0000000000")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
