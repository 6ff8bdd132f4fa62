package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"fulfillment/internal/adapters/out/postgres/orderrepo"
	"fulfillment/internal/adapters/out/postgres/pgtest"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"
	"fulfillment/internal/core/domain/services"
	"fulfillment/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

var (
	createdAt = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	shop      = mustActor("shop-17", order.PartyShop)
	pro       = mustActor("pro-4", order.PartyProfessional)
)

func mustActor(id string, p order.Party) order.Actor {
	a, err := order.NewActor(id, p)
	if err != nil {
		panic(err)
	}
	return a
}

type MockWriteTracker struct {
	mock.Mock
}

func (m *MockWriteTracker) TrackOrder(o *order.Order) {
	m.Called(o)
}

type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
	readModel  *orderrepo.GormOrderReadModel
	tracker    *MockWriteTracker
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	container, db, err := pgtest.Start(context.Background())
	suite.container = container
	suite.Require().NoError(err)
	suite.db = db
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE " + pgtest.Tables).Error)

	suite.tracker = new(MockWriteTracker)
	suite.tracker.On("TrackOrder", mock.Anything).Maybe()
	suite.repository = orderrepo.NewGormOrderRepository(suite.db, suite.tracker)
	suite.readModel = orderrepo.NewGormOrderReadModel(suite.db)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_ThenGet_RoundTrips() {
	ctx := context.Background()
	o := suite.newOrder(true)

	suite.Require().NoError(suite.repository.Add(ctx, o))
	suite.tracker.AssertCalled(suite.T(), "TrackOrder", o)

	loaded, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	suite.True(o.ID().IsEqual(loaded.ID()))
	suite.Equal("pro-4", loaded.CounterpartyRef())
	suite.Equal(order.New, loaded.State())
	suite.True(loaded.RequiresOTPHandover())
	suite.Equal("320.00", loaded.TotalAmount().String())
	suite.Equal(int64(1), loaded.Version())
	suite.True(createdAt.Equal(loaded.CreatedAt()))
	suite.Require().Len(loaded.Items(), 2)
	suite.Equal("wire", loaded.Items()[0].ProductRef())
	suite.Equal(2, loaded.Items()[0].Quantity())
	suite.Equal("tape", loaded.Items()[1].ProductRef())
	suite.Empty(loaded.History())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_Duplicate_ReturnsAlreadyExists() {
	ctx := context.Background()
	o := suite.newOrder(false)

	suite.Require().NoError(suite.repository.Add(ctx, o))
	err := suite.repository.Add(ctx, o)

	suite.Require().ErrorIs(err, errs.ErrObjectAlreadyExists)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_NotConstructed_Fails() {
	err := suite.repository.Add(context.Background(), &order.Order{})

	suite.Require().ErrorIs(err, order.ErrOrderIsNotConstructed)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_Missing_ReturnsNotFound() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_FullLifecycle_PersistsAuditAndCode() {
	ctx := context.Background()
	o := suite.newOrder(true)
	suite.Require().NoError(suite.repository.Add(ctx, o))

	step := func(apply func(*order.Order) error) *order.Order {
		loaded, err := suite.repository.Get(ctx, o.ID())
		suite.Require().NoError(err)
		suite.Require().NoError(apply(loaded))
		suite.Require().NoError(suite.repository.Update(ctx, loaded))
		return loaded
	}

	step(func(x *order.Order) error { return x.Accept(shop, createdAt.Add(time.Minute)) })
	step(func(x *order.Order) error { return x.Pack(shop, createdAt.Add(2*time.Minute)) })
	step(func(x *order.Order) error {
		return x.MarkReady(shop, order.Evidence{}, services.FixedCodeGenerator("483920"), createdAt.Add(3*time.Minute))
	})

	ready, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.ReadyForPickup, ready.State())
	suite.Equal("483920", ready.HandoverOTP())
	suite.Equal(order.CodeActive, ready.HandoverCode().Status())
	suite.Equal(int64(4), ready.Version())

	step(func(x *order.Order) error {
		return x.ConfirmHandover(pro, order.Evidence{OTP: "483920"}, services.NewHandoverVerifier(), createdAt.Add(4*time.Minute))
	})

	done, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Completed, done.State())
	suite.Equal(order.CodeConsumed, done.HandoverCode().Status())
	suite.Empty(done.HandoverOTP())
	suite.Equal(int64(5), done.Version())

	history := done.History()
	suite.Require().Len(history, 4)
	for i, entry := range history {
		suite.Equal(i+1, entry.Seq())
	}
	suite.Equal(order.ActionConfirmHandover, history[3].Action())
	suite.Equal("otp=verified", history[3].EvidenceRef())
	suite.Equal(order.PartyProfessional, history[3].Actor().Party())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_StaleVersion_ReturnsConcurrentModification() {
	ctx := context.Background()
	o := suite.newOrder(false)
	suite.Require().NoError(suite.repository.Add(ctx, o))

	first, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	second, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	suite.Require().NoError(first.Accept(shop, createdAt.Add(time.Minute)))
	suite.Require().NoError(suite.repository.Update(ctx, first))

	suite.Require().NoError(second.Cancel(shop, order.Evidence{
		CancelledBy:        order.PartyShop,
		CancellationReason: "closing early",
	}, createdAt.Add(time.Minute)))
	err = suite.repository.Update(ctx, second)

	suite.Require().ErrorIs(err, errs.ErrConcurrentModification)

	stored, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Accepted, stored.State())
	suite.Len(stored.History(), 1)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_Missing_ReturnsNotFound() {
	o := suite.newOrder(false)
	suite.Require().NoError(o.Accept(shop, createdAt))

	err := suite.repository.Update(context.Background(), o)

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_Cancelled_PersistsCancellation() {
	ctx := context.Background()
	o := suite.newOrder(false)
	suite.Require().NoError(suite.repository.Add(ctx, o))

	loaded, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Require().NoError(loaded.Reject(shop, order.Evidence{
		RejectionReason: order.ReasonOther,
		RejectionNote:   "supplier closed",
	}, createdAt.Add(time.Minute)))
	suite.Require().NoError(suite.repository.Update(ctx, loaded))

	stored, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Cancelled, stored.State())
	suite.Require().NotNil(stored.Cancellation())
	suite.Equal(order.KindRejected, stored.Cancellation().Kind)
	suite.Equal(order.New, stored.Cancellation().From)
	suite.Equal(order.ReasonOther, stored.Cancellation().RejectionReason)
	suite.Equal("supplier closed", stored.Cancellation().Reason)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetAllWithActiveCodeIssuedBefore_ReturnsOnlyStaleActiveCodes() {
	ctx := context.Background()

	stale := suite.readyOrder("111111", createdAt)
	fresh := suite.readyOrder("222222", createdAt.Add(time.Hour))
	direct := suite.newOrder(false)
	suite.Require().NoError(suite.repository.Add(ctx, direct))

	found, err := suite.repository.GetAllWithActiveCodeIssuedBefore(ctx, createdAt.Add(30*time.Minute))
	suite.Require().NoError(err)

	suite.Require().Len(found, 1)
	suite.True(stale.ID().IsEqual(found[0].ID()))
	suite.False(fresh.ID().IsEqual(found[0].ID()))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestReadModel_ListSummaries() {
	ctx := context.Background()
	a := suite.newOrder(true)
	b := suite.newOrder(false)
	suite.Require().NoError(suite.repository.Add(ctx, a))
	suite.Require().NoError(suite.repository.Add(ctx, b))

	loaded, err := suite.repository.Get(ctx, b.ID())
	suite.Require().NoError(err)
	suite.Require().NoError(loaded.Accept(shop, createdAt.Add(time.Minute)))
	suite.Require().NoError(suite.repository.Update(ctx, loaded))

	summaries, err := suite.readModel.ListSummaries(ctx)
	suite.Require().NoError(err)

	suite.Require().Len(summaries, 2)
	suite.True(b.ID().IsEqual(summaries[0].ID), "most recently updated first")
	suite.Equal(order.Accepted, summaries[0].State)
	suite.Equal("320.00", summaries[0].TotalAmount.String())
	suite.Equal(order.New, summaries[1].State)
	suite.True(summaries[1].RequiresOTP)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestReadModel_GetOrder() {
	ctx := context.Background()
	o := suite.readyOrder("483920", createdAt)

	loaded, err := suite.readModel.GetOrder(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.ReadyForPickup, loaded.State())
	suite.Len(loaded.History(), 3)

	_, err = suite.readModel.GetOrder(ctx, kernel.NewUUID())
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) newOrder(requiresOTP bool) *order.Order {
	wire, err := order.NewItem("wire", 2, kernel.MustMoney("120"))
	suite.Require().NoError(err)
	tape, err := order.NewItem("tape", 1, kernel.MustMoney("80"))
	suite.Require().NoError(err)

	o, err := order.NewOrder(kernel.NewUUID(), "pro-4", []order.Item{wire, tape}, requiresOTP, createdAt)
	suite.Require().NoError(err)
	return o
}

// readyOrder stores an OTP order that reached ReadyForPickup at issuedAt.
func (suite *OrderRepositoryIntegrationTestSuite) readyOrder(code string, issuedAt time.Time) *order.Order {
	ctx := context.Background()
	o := suite.newOrder(true)
	suite.Require().NoError(suite.repository.Add(ctx, o))

	loaded, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Require().NoError(loaded.Accept(shop, issuedAt))
	suite.Require().NoError(loaded.Pack(shop, issuedAt))
	suite.Require().NoError(loaded.MarkReady(shop, order.Evidence{}, services.FixedCodeGenerator(code), issuedAt))
	suite.Require().NoError(suite.repository.Update(ctx, loaded))
	return loaded
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
