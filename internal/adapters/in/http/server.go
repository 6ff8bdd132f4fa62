package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"fulfillment/internal/core/application/usecases/commands"
	"fulfillment/internal/core/application/usecases/queries"
	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/core/domain/model/order"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

const (
	headerIfMatch = "If-Match"
	headerETag    = "ETag"
)

// Server exposes the fulfillment use cases over HTTP. Handlers translate
// request bodies into commands and queries and domain errors into the
// {code, kind, reason, message} error body.
type Server struct {
	// Command handlers
	createOrderHandler       commands.CreateOrderCommandHandler
	requestTransitionHandler commands.RequestTransitionCommandHandler
	reissueCodeHandler       commands.ReissueHandoverCodeCommandHandler

	// Query handlers
	getOrderBoardHandler    queries.GetOrderBoardQueryHandler
	getOrderHandler         queries.GetOrderQueryHandler
	getRefundIntentsHandler queries.GetRefundIntentsQueryHandler

	logger *slog.Logger
}

func NewServer(
	createOrderHandler commands.CreateOrderCommandHandler,
	requestTransitionHandler commands.RequestTransitionCommandHandler,
	reissueCodeHandler commands.ReissueHandoverCodeCommandHandler,
	getOrderBoardHandler queries.GetOrderBoardQueryHandler,
	getOrderHandler queries.GetOrderQueryHandler,
	getRefundIntentsHandler queries.GetRefundIntentsQueryHandler,
	logger *slog.Logger,
) *Server {
	return &Server{
		createOrderHandler:       createOrderHandler,
		requestTransitionHandler: requestTransitionHandler,
		reissueCodeHandler:       reissueCodeHandler,
		getOrderBoardHandler:     getOrderBoardHandler,
		getOrderHandler:          getOrderHandler,
		getRefundIntentsHandler:  getRefundIntentsHandler,
		logger:                   logger.With("component", "http"),
	}
}

// Register mounts the API routes on e. Extra middleware, such as
// idempotency, applies to the state-changing routes only.
func (s *Server) Register(e *echo.Echo, writeMiddleware ...echo.MiddlewareFunc) {
	api := e.Group("/api/v1")

	api.GET("/orders/board", s.GetOrderBoard)
	api.GET("/orders/:id", s.GetOrder)
	api.GET("/refund-intents", s.GetRefundIntents)

	api.POST("/orders", s.CreateOrder, writeMiddleware...)
	api.POST("/orders/:id/transitions", s.RequestTransition, writeMiddleware...)
	api.POST("/orders/:id/handover-code", s.ReissueHandoverCode, writeMiddleware...)
}

// CreateOrder handles POST /api/v1/orders.
func (s *Server) CreateOrder(ctx echo.Context) error {
	var body NewOrder
	if err := ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	orderID := kernel.NewUUID()
	if body.ID != "" {
		parsed, err := kernel.UUIDFromString(body.ID)
		if err != nil {
			return badRequest(ctx, "Invalid order id: "+err.Error())
		}
		orderID = parsed
	}

	items := make([]order.Item, 0, len(body.Items))
	for _, raw := range body.Items {
		price, err := kernel.NewMoney(raw.UnitPrice)
		if err != nil {
			return s.fail(ctx, err)
		}
		item, err := order.NewItem(raw.ProductRef, raw.Quantity, price)
		if err != nil {
			return s.fail(ctx, err)
		}
		items = append(items, item)
	}

	cmd, err := commands.NewCreateOrderCommand(orderID, body.CounterpartyRef, items, body.RequiresOtpHandover)
	if err != nil {
		return s.fail(ctx, err)
	}

	if err = s.createOrderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.fail(ctx, err)
	}

	return s.respondWithOrder(ctx, http.StatusCreated, orderID)
}

// GetOrderBoard handles GET /api/v1/orders/board.
func (s *Server) GetOrderBoard(ctx echo.Context) error {
	board, err := s.getOrderBoardHandler.Handle(ctx.Request().Context(), queries.NewGetOrderBoardQuery())
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toBoard(board))
}

// GetOrder handles GET /api/v1/orders/:id.
func (s *Server) GetOrder(ctx echo.Context) error {
	orderID, err := pathUUID(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}
	return s.respondWithOrder(ctx, http.StatusOK, orderID)
}

// RequestTransition handles POST /api/v1/orders/:id/transitions.
func (s *Server) RequestTransition(ctx echo.Context) error {
	orderID, err := pathUUID(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	var body TransitionRequest
	if err = ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	action, err := order.ParseAction(body.Action)
	if err != nil {
		return s.fail(ctx, err)
	}
	actor, err := body.Actor.toDomain()
	if err != nil {
		return s.fail(ctx, err)
	}

	cmd, err := commands.NewRequestTransitionCommand(orderID, action, actor, body.Evidence.toDomain())
	if err != nil {
		return s.fail(ctx, err)
	}

	expected, err := expectedVersion(ctx.Request().Header.Get(headerIfMatch), body.ExpectedVersion)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	if expected != 0 {
		if cmd, err = cmd.WithExpectedVersion(expected); err != nil {
			return s.fail(ctx, err)
		}
	}

	o, err := s.requestTransitionHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}

	setETag(ctx, o.Version())
	return ctx.JSON(http.StatusOK, toOrder(o))
}

// ReissueHandoverCode handles POST /api/v1/orders/:id/handover-code.
func (s *Server) ReissueHandoverCode(ctx echo.Context) error {
	orderID, err := pathUUID(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid order id: "+err.Error())
	}

	var body ReissueRequest
	if err = ctx.Bind(&body); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	actor, err := body.Actor.toDomain()
	if err != nil {
		return s.fail(ctx, err)
	}

	cmd, err := commands.NewReissueHandoverCodeCommand(orderID, actor)
	if err != nil {
		return s.fail(ctx, err)
	}

	o, err := s.reissueCodeHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.fail(ctx, err)
	}

	setETag(ctx, o.Version())
	return ctx.JSON(http.StatusOK, toOrder(o))
}

// GetRefundIntents handles GET /api/v1/refund-intents.
func (s *Server) GetRefundIntents(ctx echo.Context) error {
	intents, err := s.getRefundIntentsHandler.Handle(ctx.Request().Context(), queries.NewGetRefundIntentsQuery())
	if err != nil {
		return s.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, toRefundIntents(intents))
}

func (s *Server) respondWithOrder(ctx echo.Context, status int, orderID kernel.UUID) error {
	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return s.fail(ctx, err)
	}

	o, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.fail(ctx, err)
	}

	setETag(ctx, o.Version())
	return ctx.JSON(status, toOrder(o))
}

// pathUUID binds a required simple-style path parameter and parses it as an
// order id.
func pathUUID(ctx echo.Context, name string) (kernel.UUID, error) {
	var raw string
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), &raw, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		return kernel.UUID{}, err
	}
	return kernel.UUIDFromString(raw)
}

func setETag(ctx echo.Context, version int64) {
	ctx.Response().Header().Set(headerETag, strconv.Quote(strconv.FormatInt(version, 10)))
}

// expectedVersion reads the If-Match header, falling back to the body field.
// Zero means the transition is unconditional.
func expectedVersion(ifMatch string, fromBody *int64) (int64, error) {
	if ifMatch = strings.TrimSpace(ifMatch); ifMatch != "" && ifMatch != "*" {
		tag := strings.Trim(strings.TrimPrefix(ifMatch, "W/"), `"`)
		v, err := strconv.ParseInt(tag, 10, 64)
		if err != nil || v <= 0 {
			return 0, errInvalidIfMatch
		}
		return v, nil
	}
	if fromBody != nil {
		return *fromBody, nil
	}
	return 0, nil
}
