package service_test

import (
	"errors"
	"sync"
	"time"

	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/internal/service"
)

func (s *IntegrationTestSuite) TestPlaceOrder_ClampsToAvailableStock() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 5,
		"M": 0,
	})

	result, err := s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart: []service.CartLine{
			{ProductID: productID, VariantKey: "S", Quantity: 8},
			{ProductID: productID, VariantKey: "M", Quantity: 3},
		},
	})

	s.Require().NoError(err)
	s.Require().NotNil(result.Order)
	s.Equal(1, result.FulfilledCount)

	s.Require().Len(result.Order.Items, 1)
	s.Equal("S", result.Order.Items[0].VariantKey)
	s.Equal(int64(5), result.Order.Items[0].Quantity)
	s.Equal(int64(50), result.Order.Total)
	s.Equal(domain.OrderStatusPending, result.Order.Status)
	s.Equal(salesman.ID, result.Order.CreatedBy)

	product, err := s.ProductRepo.GetByID(s.Ctx, productID)
	s.Require().NoError(err)
	s.Equal(int64(0), product.Quantities["S"])
	s.Equal(int64(0), product.Quantities["M"])
}

func (s *IntegrationTestSuite) TestPlaceOrder_NothingInStock_NoOrderCreated() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"M": 0,
	})

	result, err := s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart: []service.CartLine{
			{ProductID: productID, VariantKey: "M", Quantity: 3},
			{ProductID: productID, VariantKey: "XL", Quantity: 1},
		},
	})

	s.Require().NoError(err)
	s.Nil(result.Order)
	s.Equal(0, result.FulfilledCount)

	var orderCount int
	err = s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM orders").Scan(&orderCount)
	s.Require().NoError(err)
	s.Equal(0, orderCount)

	var outboxCount int
	err = s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM outbox").Scan(&outboxCount)
	s.Require().NoError(err)
	s.Equal(0, outboxCount)

	// The customer upsert still commits with the rest of the transaction.
	var customerCount int
	err = s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM customers WHERE email = 'corner@shop.local'").Scan(&customerCount)
	s.Require().NoError(err)
	s.Equal(1, customerCount)
}

func (s *IntegrationTestSuite) TestPlaceOrder_UnknownProduct_RollsBackEverything() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 5,
	})

	_, err := s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart: []service.CartLine{
			{ProductID: productID, VariantKey: "S", Quantity: 2},
			{ProductID: productID + 1000, VariantKey: "S", Quantity: 1},
		},
	})

	s.Require().Error(err)
	s.Require().ErrorIs(err, repository.ErrProductNotFound)

	product, err := s.ProductRepo.GetByID(s.Ctx, productID)
	s.Require().NoError(err)
	s.Equal(int64(5), product.Quantities["S"], "stock taken by the first line must be returned")

	var customerCount int
	err = s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM customers").Scan(&customerCount)
	s.Require().NoError(err)
	s.Equal(0, customerCount)

	var orderCount int
	err = s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM orders").Scan(&orderCount)
	s.Require().NoError(err)
	s.Equal(0, orderCount)
}

func (s *IntegrationTestSuite) TestPlaceOrder_InvalidQuantity_Rejected() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 5,
	})

	for _, quantity := range []int64{0, -1} {
		_, err := s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
			Store: s.storeInput("corner@shop.local"),
			Cart: []service.CartLine{
				{ProductID: productID, VariantKey: "S", Quantity: quantity},
			},
		})

		s.Require().Error(err)
		s.Require().True(errors.Is(err, service.ErrInvalidInput))
	}

	product, err := s.ProductRepo.GetByID(s.Ctx, productID)
	s.Require().NoError(err)
	s.Equal(int64(5), product.Quantities["S"])
}

func (s *IntegrationTestSuite) TestPlaceOrder_UpsertsCustomerByEmail() {
	admin := s.createUser("Root", domain.RoleAdmin)
	first := s.createUser("sam", domain.RoleSalesman)
	second := s.createUser("kim", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 50,
	})

	_, err := s.OrderService.PlaceOrder(s.Ctx, first, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 1}},
	})
	s.Require().NoError(err)

	store := s.storeInput("corner@shop.local")
	store.Name = "Corner Shop Renamed"

	_, err = s.OrderService.PlaceOrder(s.Ctx, second, &service.PlaceOrderInput{
		Store: store,
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 1}},
	})
	s.Require().NoError(err)

	var count int
	var name string
	var salesmanID int64
	err = s.DbPool.QueryRow(s.Ctx,
		"SELECT COUNT(*) OVER (), name, salesman_id FROM customers WHERE email = 'corner@shop.local'").
		Scan(&count, &name, &salesmanID)
	s.Require().NoError(err)

	s.Equal(1, count)
	s.Equal("Corner Shop Renamed", name)
	s.Equal(second.ID, salesmanID, "the most recent writer owns the customer")
}

func (s *IntegrationTestSuite) TestPlaceOrder_PublishesOutboxEvent() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 5,
	})

	result, err := s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 2}},
	})
	s.Require().NoError(err)
	s.Require().NotNil(result.Order)

	query := `
		SELECT published_at
		FROM outbox
		WHERE event_type = 'OrderPlaced' AND aggregate_id = $1
	`

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time
		err := s.DbPool.QueryRow(s.Ctx, query, orderAggregateID(result.Order.ID)).Scan(&publishedAt)

		return err == nil && publishedAt != nil
	}, 5*time.Second, 100*time.Millisecond, "event must be relayed to the broker")
}

func (s *IntegrationTestSuite) TestPlaceOrder_ConcurrentPlacements_NeverOversell() {
	admin := s.createUser("Root", domain.RoleAdmin)
	salesman := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 10,
	})

	const workers = 4

	var wg sync.WaitGroup
	fulfilled := make([]int64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			result, err := s.OrderService.PlaceOrder(s.Ctx, salesman, &service.PlaceOrderInput{
				Store: s.storeInput("corner@shop.local"),
				Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 6}},
			})
			if err != nil {
				return
			}
			if result.Order != nil {
				fulfilled[i] = result.Order.Items[0].Quantity
			}
		}(i)
	}
	wg.Wait()

	var total int64
	for _, n := range fulfilled {
		total += n
	}
	s.Equal(int64(10), total, "fulfilled units must equal the starting stock")

	product, err := s.ProductRepo.GetByID(s.Ctx, productID)
	s.Require().NoError(err)
	s.Equal(int64(0), product.Quantities["S"])
}
