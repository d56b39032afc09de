package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (DiscountRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	return NewDiscountRepository(db), mock
}

func couponRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "discount_type", "discount_value", "used_count", "active"}).
		AddRow("c1", "save10", "percentage", 10.0, 2, true)
}

func TestRedeemCoupon(t *testing.T) {
	t.Run("First redemption inserts the audit row and bumps the counter", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "coupons"`).WillReturnRows(couponRows())
		mock.ExpectQuery(`INSERT INTO "coupon_redemptions" .* ON CONFLICT \("session_id"\) DO NOTHING`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
		// The cap, expiry and active checks live in the WHERE clause of the
		// increment itself.
		mock.ExpectExec(`UPDATE "coupons" SET "used_count"=used_count \+ 1 WHERE code = .* AND active = true AND \(expires_at IS NULL OR expires_at > .*\) AND \(max_uses IS NULL OR used_count < max_uses\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		outcome, err := repo.RedeemCoupon("SAVE10", "sid")

		assert.NoError(t, err)
		assert.Equal(t, Redeemed, outcome)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Repeat redemption by the same session is detected by the audit insert", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "coupons"`).WillReturnRows(couponRows())
		mock.ExpectQuery(`INSERT INTO "coupon_redemptions"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectCommit()

		outcome, err := repo.RedeemCoupon("save10", "sid")

		assert.NoError(t, err)
		assert.Equal(t, AlreadyRedeemed, outcome)
		// The counter is untouched: no UPDATE was ever issued.
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Guarded increment matching no rows rolls the audit row back", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "coupons"`).WillReturnRows(couponRows())
		mock.ExpectQuery(`INSERT INTO "coupon_redemptions"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
		mock.ExpectExec(`UPDATE "coupons" SET "used_count"=used_count \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		outcome, err := repo.RedeemCoupon("save10", "sid")

		assert.NoError(t, err)
		assert.Equal(t, NotRedeemable, outcome)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCompleteUsage(t *testing.T) {
	t.Run("Pending row is flipped exactly once", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectExec(`UPDATE "referral_usages" SET .* WHERE referral_code = .* AND referred_phone = .* AND status = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		completed, err := repo.CompleteUsage("REFABC234", "972509999999", time.Now())

		assert.NoError(t, err)
		assert.True(t, completed)
	})

	t.Run("Already-completed row matches nothing", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectExec(`UPDATE "referral_usages"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		completed, err := repo.CompleteUsage("REFABC234", "972509999999", time.Now())

		assert.NoError(t, err)
		assert.False(t, completed)
	})
}

func TestCreditReferrer(t *testing.T) {
	repo, mock := newMockDB(t)

	// Both counters move in a single atomic statement.
	mock.ExpectExec(`UPDATE "referral_codes" SET .*referral_count.*\+ 1.*total_earnings.*\+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreditReferrer("REFABC234", 20)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsOptedOut(t *testing.T) {
	t.Run("Opted-out phone", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "opt_outs"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		opted, err := repo.IsOptedOut("972501234567")

		assert.NoError(t, err)
		assert.True(t, opted)
	})

	t.Run("Unknown phone", func(t *testing.T) {
		repo, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "opt_outs"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		opted, err := repo.IsOptedOut("972501234567")

		assert.NoError(t, err)
		assert.False(t, opted)
	})
}
