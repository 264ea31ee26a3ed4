package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func paymentColumns() []string {
	return []string{"id", "transaction_id", "user_id", "amount", "method", "purpose", "status", "paid_at", "created_at", "updated_at"}
}

func TestFindByTransactionID_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)

	id, userID := uuid.New(), uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows(paymentColumns()).
		AddRow(id, "TXN2612345618", userID, "500.00", models.PaymentMethodSSLCommerz, models.PurposeMembershipFee, models.PaymentStatusInitiated, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments" WHERE transaction_id = $1`)).
		WillReturnRows(rows)

	p, err := repo.FindByTransactionID(context.Background(), "TXN2612345618")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, models.PaymentStatusInitiated, p.Status)
	assert.Equal(t, "500", p.Amount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTransactionID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments"`)).
		WillReturnRows(sqlmock.NewRows(paymentColumns()))

	p, err := repo.FindByTransactionID(context.Background(), "missing")
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestCompareAndSetStatus(t *testing.T) {
	t.Run("Performs transition", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewGormPaymentRepo(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		paidAt := time.Now()
		ok, err := repo.CompareAndSetStatus(context.Background(), uuid.New(), models.PaymentStatusInitiated, models.PaymentStatusPaid, &paidAt)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost race reports false", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewGormPaymentRepo(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		ok, err := repo.CompareAndSetStatus(context.Background(), uuid.New(), models.PaymentStatusInitiated, models.PaymentStatusFailed, nil)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestWithinTransaction_LocksRowAndCommits(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)
	transactor := repository.NewTransactor(gormDB)

	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "payments" WHERE transaction_id = \$1 .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(paymentColumns()).
			AddRow(id, "TXN2600000101", uuid.New(), "1000.00", models.PaymentMethodSSLCommerz, models.PurposeProjectDonation, models.PaymentStatusInitiated, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := transactor.WithinTransaction(context.Background(), func(ctx context.Context) error {
		p, err := repo.FindByTransactionIDForUpdate(ctx, "TXN2600000101")
		if err != nil {
			return err
		}
		paidAt := time.Now()
		_, err = repo.CompareAndSetStatus(ctx, p.ID, p.Status, models.PaymentStatusPaid, &paidAt)
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)
	transactor := repository.NewTransactor(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payments" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("credit failed")
	err := transactor.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := repo.CompareAndSetStatus(ctx, uuid.New(), models.PaymentStatusInitiated, models.PaymentStatusPaid, nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPayments(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormPaymentRepo(gormDB)

	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "payments" WHERE user_id = $1 AND status = $2 AND transaction_id ILIKE $3`)).
		WithArgs(userID, models.PaymentStatusPaid, "%TXN26%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments" WHERE user_id = $1 AND status = $2 AND transaction_id ILIKE $3 ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows(paymentColumns()).
			AddRow(uuid.New(), "TXN2611111101", userID, "250.00", models.PaymentMethodSSLCommerz, models.PurposeMonthlyDonation, models.PaymentStatusPaid, now, now, now))

	payments, total, err := repo.List(context.Background(), repository.PaymentFilter{
		UserID: &userID,
		Status: models.PaymentStatusPaid,
		Search: "TXN26",
		Offset: 10,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, payments, 1)
	assert.Equal(t, "TXN2611111101", payments[0].TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestElevateToMember(t *testing.T) {
	t.Run("Plain user is elevated", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewGormUserRepo(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		elevated, err := repo.ElevateToMember(context.Background(), uuid.New())
		assert.NoError(t, err)
		assert.True(t, elevated)
	})

	t.Run("Existing member is left alone", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewGormUserRepo(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		elevated, err := repo.ElevateToMember(context.Background(), uuid.New())
		assert.NoError(t, err)
		assert.False(t, elevated)
	})

	t.Run("Missing user", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		repo := repository.NewGormUserRepo(gormDB)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, err := repo.ElevateToMember(context.Background(), uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
