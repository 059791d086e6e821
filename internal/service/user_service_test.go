package service_test

import (
	"github.com/vc8bp/salesflow/internal/domain"
	"github.com/vc8bp/salesflow/internal/repository"
	"github.com/vc8bp/salesflow/internal/service"
)

func (s *IntegrationTestSuite) TestLogin_Success() {
	s.createUser("Root", domain.RoleAdmin)
	s.createUser("sam", domain.RoleSalesman)

	result, err := s.UserService.Login(s.Ctx, "sam@test.local", "password123")
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.Equal(domain.RoleSalesman, result.User.Role)
}

func (s *IntegrationTestSuite) TestLogin_WrongPassword() {
	s.createUser("Root", domain.RoleAdmin)
	s.createUser("sam", domain.RoleSalesman)

	_, err := s.UserService.Login(s.Ctx, "sam@test.local", "not-the-password")
	s.Require().ErrorIs(err, service.ErrInvalidCredentials)

	_, err = s.UserService.Login(s.Ctx, "ghost@test.local", "password123")
	s.Require().ErrorIs(err, service.ErrInvalidCredentials)
}

func (s *IntegrationTestSuite) TestCreateUser_RequiresAdmin() {
	s.createUser("Root", domain.RoleAdmin)
	manager := s.createUser("meg", domain.RoleManager)

	_, err := s.UserService.CreateUser(s.Ctx, manager, &service.CreateUserInput{
		Name:          "new guy",
		Email:         "new@test.local",
		Password:      "password123",
		ContactNumber: "555-0102",
		Role:          "salesman",
	})

	s.Require().ErrorIs(err, service.ErrForbidden)
}

func (s *IntegrationTestSuite) TestCreateUser_RejectsUnknownRole() {
	admin := s.createUser("Root", domain.RoleAdmin)

	_, err := s.UserService.CreateUser(s.Ctx, admin, &service.CreateUserInput{
		Name:          "new guy",
		Email:         "new@test.local",
		Password:      "password123",
		ContactNumber: "555-0102",
		Role:          "superuser",
	})

	s.Require().ErrorIs(err, service.ErrInvalidInput)
}

func (s *IntegrationTestSuite) TestCreateUser_DuplicateEmail() {
	admin := s.createUser("Root", domain.RoleAdmin)
	s.createUser("sam", domain.RoleSalesman)

	_, err := s.UserService.CreateUser(s.Ctx, admin, &service.CreateUserInput{
		Name:          "sam again",
		Email:         "sam@test.local",
		Password:      "password123",
		ContactNumber: "555-0102",
		Role:          "salesman",
	})

	s.Require().ErrorIs(err, repository.ErrUserAlreadyExists)
}

func (s *IntegrationTestSuite) TestEnsureAdmin_Idempotent() {
	s.Require().NoError(s.UserService.EnsureAdmin(s.Ctx, "Root", "root@test.local", "rootpassword", "000"))
	s.Require().NoError(s.UserService.EnsureAdmin(s.Ctx, "Root", "root@test.local", "otherpassword", "000"))

	var count int
	err := s.DbPool.QueryRow(s.Ctx, "SELECT COUNT(*) FROM users WHERE email = 'root@test.local'").Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)

	// The original credentials keep working.
	_, err = s.UserService.Login(s.Ctx, "root@test.local", "rootpassword")
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestSearchCustomers() {
	admin := s.createUser("Root", domain.RoleAdmin)
	sam := s.createUser("sam", domain.RoleSalesman)

	productID := s.createProduct(admin, "Polo Shirt", "P-100", 10, map[string]int64{
		"S": 50,
	})

	_, err := s.OrderService.PlaceOrder(s.Ctx, sam, &service.PlaceOrderInput{
		Store: s.storeInput("corner@shop.local"),
		Cart:  []service.CartLine{{ProductID: productID, VariantKey: "S", Quantity: 1}},
	})
	s.Require().NoError(err)

	customers, err := s.CustomerService.SearchByName(s.Ctx, "corner")
	s.Require().NoError(err)
	s.Require().Len(customers, 1)
	s.Equal("corner@shop.local", customers[0].Email)

	customers, err = s.CustomerService.SearchByName(s.Ctx, "nowhere")
	s.Require().NoError(err)
	s.Empty(customers)

	customers, err = s.CustomerService.SearchByName(s.Ctx, "   ")
	s.Require().NoError(err)
	s.Empty(customers)
}
