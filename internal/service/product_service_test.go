package service_test

import (
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/internal/service"
)

func (s *IntegrationTestSuite) TestCreateProduct_RequiresAdmin() {
	s.createUser("Root", domain.RoleAdmin)
	manager := s.createUser("meg", domain.RoleManager)

	_, err := s.ProductService.Create(s.Ctx, manager, &service.CreateProductInput{
		Name:      "Polo Shirt",
		ProductNo: "P-100",
		Price:     10,
	})

	s.Require().ErrorIs(err, service.ErrForbidden)
}

func (s *IntegrationTestSuite) TestCreateProduct_DuplicateNumberRejected() {
	admin := s.createUser("Root", domain.RoleAdmin)

	s.createProduct(admin, "Polo Shirt", "P-100", 10, nil)

	_, err := s.ProductService.Create(s.Ctx, admin, &service.CreateProductInput{
		Name:      "Other Shirt",
		ProductNo: "P-100",
		Price:     20,
	})

	s.Require().ErrorIs(err, repository.ErrDuplicateProductNo)
}

func (s *IntegrationTestSuite) TestGetProduct_CacheInvalidatedAfterPlacement() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 5,
	})

	// Prime the cache.
	product, err := s.ProductService.GetByID(s.Ctx, productID)
	s.Require().NoError(err)
	s.Equal(int64(5), product.Quantities["S"])

	_, err = s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 2}},
	})
	s.Require().NoError(err)

	product, err = s.ProductService.GetByID(s.Ctx, productID)
	s.Require().NoError(err)
	s.Equal(int64(3), product.Quantities["S"], "cached stock must not survive the decrement")
}

func (s *IntegrationTestSuite) TestUpdateProduct_ReplacesVariants() {
	admin := s.createUser("Root", domain.RoleAdmin)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 5,
	})

	newPrice := int64(15)
	product, err := s.ProductService.Update(s.Ctx, admin, productID, &domain.UpdateProductInput{
		Price: &newPrice,
		Quantities: map[string]int64{
			"S": 7,
			"L": 2,
		},
	})
	s.Require().NoError(err)

	s.Equal(int64(15), product.Price)
	s.Equal(int64(7), product.Quantities["S"])
	s.Equal(int64(2), product.Quantities["L"])
}
