package service_test

import (
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/service"
)

func (s *IntegrationTestSuite) TestListOrders_ScopedByRole() {
	admin := s.createUser("Root", domain.RoleAdmin)
	sam := s.createUser("sam", domain.RoleSalesman)
	kim := s.createUser("kim", domain.RoleSalesman)
	manager := s.createUser("meg", domain.RoleManager)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 50,
	})

	first, err := s.OrderService.PlaceOrder(s.Ctx, sam, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 1}},
	})
	s.Require().NoError(err)

	second, err := s.OrderService.PlaceOrder(s.Ctx, kim, &service.PlaceOrderInput{
		Store: s.storeInput("uptown@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 2}},
	})
	s.Require().NoError(err)

	samOrders, err := s.OrderService.ListOrders(s.Ctx, sam)
	s.Require().NoError(err)
	s.Require().Len(samOrders, 1)
	s.Equal(first.Order.ID, samOrders[0].ID)

	managerOrders, err := s.OrderService.ListOrders(s.Ctx, manager)
	s.Require().NoError(err)
	s.Require().Len(managerOrders, 2)

	// Newest first.
	s.Equal(second.Order.ID, managerOrders[0].ID)
	s.Equal(first.Order.ID, managerOrders[1].ID)

	adminOrders, err := s.OrderService.ListOrders(s.Ctx, admin)
	s.Require().NoError(err)
	s.Len(adminOrders, 2)
}

func (s *IntegrationTestSuite) TestListOrders_ExpandsJoinedDetails() {
	admin := s.createUser("Root", domain.RoleAdmin)
	sam := s.createUser("sam", domain.RoleSalesman)
	manager := s.createUser("meg", domain.RoleManager)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 50,
	})

	placed, err := s.OrderService.PlaceOrder(s.Ctx, sam, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 3}},
	})
	s.Require().NoError(err)

	_, err = s.OrderService.ReviewOrder(s.Ctx, manager, &service.ReviewOrderInput{
		OrderID: placed.Order.ID,
		Status:  "Confirmed",
		Message: "approved",
	})
	s.Require().NoError(err)

	orders, err := s.OrderService.ListOrders(s.Ctx, manager)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)

	details := orders[0]
	s.Equal("Corner Shop", details.Customer.Name)
	s.Equal("corner@shop.local", details.Customer.Email)
	s.Equal("sam", details.CreatedByName)
	s.Equal(domain.OrderStatusConfirmed, details.Status)

	s.Require().Len(details.ItemDetails, 1)
	s.Equal("Polo Shirt", details.ItemDetails[0].ProductName)
	s.Equal("P-100", details.ItemDetails[0].ProductNo)
	s.Equal(int64(10), details.ItemDetails[0].Price)
	s.Equal(int64(3), details.ItemDetails[0].Quantity)

	s.Require().Len(details.RemarkDetails, 1)
	s.Equal("meg", details.RemarkDetails[0].AuthorName)
	s.Equal("approved", details.RemarkDetails[0].Message)
}
