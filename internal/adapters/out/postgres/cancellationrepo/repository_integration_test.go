package cancellationrepo_test

import (
	"context"
	"testing"
	"time"

	"fulfillment/internal/adapters/out/postgres/cancellationrepo"
	"fulfillment/internal/adapters/out/postgres/pgtest"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/ledger"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

var recordedAt = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

type CancellationRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *cancellationrepo.GormCancellationRepository
}

func (suite *CancellationRepositoryIntegrationTestSuite) SetupSuite() {
	container, db, err := pgtest.Start(context.Background())
	suite.container = container
	suite.Require().NoError(err)
	suite.db = db
}

func (suite *CancellationRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE " + pgtest.Tables).Error)
	suite.repository = cancellationrepo.NewGormCancellationRepository(suite.db)
}

func (suite *CancellationRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *CancellationRepositoryIntegrationTestSuite) TestAdd_ThenGet_RoundTrips() {
	ctx := context.Background()
	entry, err := ledger.NewEntry(
		kernel.NewUUID(),
		order.KindCancelled,
		order.Processing,
		order.PartyCustomer,
		"",
		"customer changed plans",
		true,
		kernel.MustMoney("320"),
		recordedAt,
	)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.repository.Add(ctx, entry))

	stored, err := suite.repository.Get(ctx, entry.OrderID())
	suite.Require().NoError(err)
	suite.True(entry.OrderID().IsEqual(stored.OrderID()))
	suite.Equal(order.KindCancelled, stored.Kind())
	suite.Equal(order.Processing, stored.From())
	suite.Equal(order.PartyCustomer, stored.CancelledBy())
	suite.Equal("customer changed plans", stored.Reason())
	suite.True(stored.RefundEligible())
	suite.True(kernel.MustMoney("320").IsEqual(stored.RefundAmount()))
	suite.True(recordedAt.Equal(stored.RecordedAt()))
}

func (suite *CancellationRepositoryIntegrationTestSuite) TestAdd_Rejection_KeepsReasonCode() {
	ctx := context.Background()
	entry, err := ledger.NewEntry(
		kernel.NewUUID(), order.KindRejected, order.New, order.PartyShop,
		order.ReasonOutOfStock, "", false, kernel.Zero, recordedAt,
	)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Add(ctx, entry))

	stored, err := suite.repository.Get(ctx, entry.OrderID())
	suite.Require().NoError(err)
	suite.Equal(order.ReasonOutOfStock, stored.RejectionReason())
	suite.False(stored.RefundEligible())
	suite.True(stored.RefundAmount().IsZero())
}

func (suite *CancellationRepositoryIntegrationTestSuite) TestAdd_SecondEntryForOrder_ReturnsAlreadyExists() {
	ctx := context.Background()
	entry, err := ledger.NewEntry(
		kernel.NewUUID(), order.KindCancelled, order.Accepted, order.PartyShop,
		"", "closing", true, kernel.MustMoney("10"), recordedAt,
	)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.repository.Add(ctx, entry))
	err = suite.repository.Add(ctx, entry)

	suite.Require().ErrorIs(err, errs.ErrObjectAlreadyExists)
}

func (suite *CancellationRepositoryIntegrationTestSuite) TestAdd_NotConstructed_Fails() {
	err := suite.repository.Add(context.Background(), ledger.Entry{})

	suite.Require().ErrorIs(err, ledger.ErrEntryIsNotConstructed)
}

func (suite *CancellationRepositoryIntegrationTestSuite) TestGet_Missing_ReturnsNotFound() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func TestCancellationRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(CancellationRepositoryIntegrationTestSuite))
}
