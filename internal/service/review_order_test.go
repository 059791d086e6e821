package service_test

import (
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/internal/service"
)

func (s *IntegrationTestSuite) placeTestOrder(admin, salesman domain.Actor) int64 {
	s.T().Helper()

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 50,
	})

	result, err := s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 2}},
	})
	s.Require().NoError(err)
	s.Require().NotNil(result.Order)

	return result.Order.ID
}

func (s *IntegrationTestSuite) TestReviewOrder_SalesmanForbidden() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)
	orderID := s.placeTestOrder(admin, salesman)

	_, err := s.OrderService.ReviewOrder(s.Ctx, salesman, &service.ReviewOrderInput{
		OrderID: orderID,
		Status:  "Confirmed",
		Message: "looks good",
	})

	s.Require().Error(err)
	s.Require().ErrorIs(err, service.ErrForbidden)

	order, err := s.OrderRepo.GetOrder(s.Ctx, orderID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Empty(order.Remarks)
}

func (s *IntegrationTestSuite) TestReviewOrder_StatusMirrorsLastRemark() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)
	manager := s.createUser("meg", domain.RoleManager)
	orderID := s.placeTestOrder(admin, salesman)

	order, err := s.OrderService.ReviewOrder(s.Ctx, manager, &service.ReviewOrderInput{
		OrderID: orderID,
		Status:  "Confirmed",
		Message: "approved",
	})
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusConfirmed, order.Status)
	s.Require().Len(order.Remarks, 1)
	s.Equal(manager.ID, order.Remarks[0].AuthorID)
	s.Equal("approved", order.Remarks[0].Message)
	s.Equal(domain.OrderStatusConfirmed, order.Remarks[0].Status)

	// Confirmed back to Pending is allowed; the trail keeps both entries.
	order, err = s.OrderService.ReviewOrder(s.Ctx, admin, &service.ReviewOrderInput{
		OrderID: orderID,
		Status:  "Pending",
		Message: "needs another look",
	})
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Require().Len(order.Remarks, 2)
	s.Equal(domain.OrderStatusPending, order.Remarks[1].Status)
	s.Equal(admin.ID, order.Remarks[1].AuthorID)
}

func (s *IntegrationTestSuite) TestReviewOrder_TrailFollowsAppendOrderNotTimestamps() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)
	manager := s.createUser("meg", domain.RoleManager)
	orderID := s.placeTestOrder(admin, salesman)

	_, err := s.OrderService.ReviewOrder(s.Ctx, manager, &service.ReviewOrderInput{
		OrderID: orderID,
		Status:  "Confirmed",
		Message: "approved",
	})
	s.Require().NoError(err)

	latest, err := s.OrderService.ReviewOrder(s.Ctx, manager, &service.ReviewOrderInput{
		OrderID: orderID,
		Status:  "Pending",
		Message: "hold shipment",
	})
	s.Require().NoError(err)
	s.Require().Len(latest.Remarks, 2)

	// Transaction timestamps can land out of order under concurrency; the
	// trail must still read in append order.
	_, err = s.DbPool.Exec(s.Ctx,
		"UPDATE order_remarks SET created_at = NOW() - INTERVAL '1 hour' WHERE id = $1",
		latest.Remarks[1].ID,
	)
	s.Require().NoError(err)

	order, err := s.OrderRepo.GetOrder(s.Ctx, orderID)
	s.Require().NoError(err)
	s.Require().Len(order.Remarks, 2)
	s.Equal("approved", order.Remarks[0].Message)
	s.Equal("hold shipment", order.Remarks[1].Message)
	s.Equal(order.Status, order.Remarks[1].Status)

	listed, err := s.OrderService.ListOrders(s.Ctx, manager)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Require().Len(listed[0].RemarkDetails, 2)
	s.Equal("hold shipment", listed[0].RemarkDetails[1].Message)
}

func (s *IntegrationTestSuite) TestReviewOrder_UnknownOrder() {
	s.createUser("Root", domain.RoleAdmin)
	manager := s.createUser("meg", domain.RoleManager)

	_, err := s.OrderService.ReviewOrder(s.Ctx, manager, &service.ReviewOrderInput{
		OrderID: 424242,
		Status:  "Confirmed",
		Message: "approved",
	})

	s.Require().Error(err)
	s.Require().ErrorIs(err, repository.ErrOrderNotFound)
}

func (s *IntegrationTestSuite) TestReviewOrder_InvalidInput() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)
	manager := s.createUser("meg", domain.RoleManager)
	orderID := s.placeTestOrder(admin, salesman)

	_, err := s.OrderService.ReviewOrder(s.Ctx, manager, &service.ReviewOrderInput{
		OrderID: orderID,
		Status:  "Shipped",
		Message: "done",
	})
	s.Require().ErrorIs(err, service.ErrInvalidInput)

	_, err = s.OrderService.ReviewOrder(s.Ctx, manager, &service.ReviewOrderInput{
		OrderID: orderID,
		Status:  "Confirmed",
		Message: "   ",
	})
	s.Require().ErrorIs(err, service.ErrInvalidInput)
}
