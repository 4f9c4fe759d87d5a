package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/recados-api/internal/cache"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/dto"
	"github.com/yukikurage/recados-api/internal/logging"
	"github.com/yukikurage/recados-api/internal/models"
	"github.com/yukikurage/recados-api/internal/repository"
	"github.com/yukikurage/recados-api/internal/security"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// countingUserRepo records how often the full user list is read from the store.
type countingUserRepo struct {
	*repository.GormUserRepository
	lists atomic.Int32
}

func (r *countingUserRepo) List(ctx context.Context) ([]models.User, error) {
	r.lists.Add(1)
	return r.GormUserRepository.List(ctx)
}

type ServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	store    *cache.MemoryStore
	userRepo *countingUserRepo
	taskRepo *repository.GormTaskRepository
	tokens   *security.TokenManager
	users    *UserService
	tasks    *TaskService
	auth     *AuthService
	ctx      context.Context
}

func (suite *ServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	// Background refreshes must see the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	suite.Require().NoError(suite.db.AutoMigrate(&models.User{}, &models.Task{}))

	suite.store, err = cache.NewMemoryStore(128)
	suite.Require().NoError(err)

	logger := logging.Discard()
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	suite.tokens = security.NewTokenManager(testJWTSecret, time.Hour)
	suite.userRepo = &countingUserRepo{GormUserRepository: repository.NewUserRepository(suite.db)}
	suite.taskRepo = repository.NewTaskRepository(suite.db)

	suite.users = NewUserService(suite.userRepo, suite.taskRepo, suite.store, hasher, logger)
	suite.tasks = NewTaskService(suite.taskRepo, suite.users, suite.store, logger)
	suite.auth = NewAuthService(suite.userRepo, suite.taskRepo, hasher, suite.tokens)
	suite.ctx = context.Background()
}

func (suite *ServiceTestSuite) TearDownTest() {
	suite.users.Wait()
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ServiceTestSuite) createUser(name, email string) dto.UserDTO {
	res, err := suite.users.Create(suite.ctx, CreateUserInput{Name: name, Email: email, Password: "secret"})
	suite.Require().NoError(err)
	suite.Require().True(res.OK(), res.Msg())
	user, _ := res.Data()
	return user
}

func (suite *ServiceTestSuite) createTask(ownerID, description, detail string) dto.TaskDTO {
	res, err := suite.tasks.Create(suite.ctx, ownerID, ownerID, CreateTaskInput{Description: description, Detail: detail})
	suite.Require().NoError(err)
	suite.Require().True(res.OK(), res.Msg())
	task, _ := res.Data()
	return task
}

// User service

func (suite *ServiceTestSuite) TestCreateUser() {
	res, err := suite.users.Create(suite.ctx, CreateUserInput{Name: "Ana", Email: "ana@example.com", Password: "secret"})
	suite.Require().NoError(err)

	suite.True(res.OK())
	suite.Equal(http.StatusCreated, res.Code())
	suite.Equal("User created", res.Msg())

	created, _ := res.Data()
	stored, err := suite.userRepo.FindByEmail(suite.ctx, "ana@example.com")
	suite.Require().NoError(err)
	suite.Equal(created.ID, stored.ID)
	suite.NotEqual("secret", stored.Password)
}

func (suite *ServiceTestSuite) TestCreateUser_DuplicateEmail() {
	suite.createUser("Ana", "ana@example.com")

	res, err := suite.users.Create(suite.ctx, CreateUserInput{Name: "Other", Email: "ana@example.com", Password: "secret"})
	suite.Require().NoError(err)
	suite.False(res.OK())
	suite.Equal(http.StatusBadRequest, res.Code())
	suite.Equal("Email already exists", res.Msg())

	var count int64
	suite.db.Model(&models.User{}).Count(&count)
	suite.Equal(int64(1), count)
}

func (suite *ServiceTestSuite) TestCreateUser_InvalidatesCollection() {
	_, err := suite.users.ListAll(suite.ctx)
	suite.Require().NoError(err)

	suite.createUser("Ana", "ana@example.com")

	_, found, err := suite.store.Get(suite.ctx, constants.CacheKeyUsers)
	suite.Require().NoError(err)
	suite.False(found)
}

func (suite *ServiceTestSuite) TestGetByID_StoreThenCache() {
	ana := suite.createUser("Ana", "ana@example.com")

	res, err := suite.users.GetByID(suite.ctx, ana.ID)
	suite.Require().NoError(err)
	suite.Equal("User obtained", res.Msg())

	suite.users.Wait()

	res, err = suite.users.GetByID(suite.ctx, ana.ID)
	suite.Require().NoError(err)
	suite.Equal("User obtained (cache)", res.Msg())
	got, _ := res.Data()
	suite.Equal("Ana", got.Name)
}

func (suite *ServiceTestSuite) TestGetByID_MissInCachedCollectionFallsBackToStore() {
	_, err := suite.users.ListAll(suite.ctx)
	suite.Require().NoError(err)

	// Written behind the service's back so the cached collection goes stale.
	late := &models.User{Name: "Late", Email: "late@example.com", Password: "hash"}
	suite.Require().NoError(suite.userRepo.Create(suite.ctx, late))

	res, err := suite.users.GetByID(suite.ctx, late.ID)
	suite.Require().NoError(err)
	suite.True(res.OK())
	suite.Equal("User obtained", res.Msg())

	suite.users.Wait()
	cached, found, err := cache.GetJSON[[]dto.UserDTO](suite.ctx, suite.store, constants.CacheKeyUsers)
	suite.Require().NoError(err)
	suite.True(found)
	_, ok := dto.FindUser(cached, late.ID)
	suite.True(ok)
}

func (suite *ServiceTestSuite) TestGetByID_NotFound() {
	res, err := suite.users.GetByID(suite.ctx, "missing")
	suite.Require().NoError(err)
	suite.False(res.OK())
	suite.Equal(http.StatusNotFound, res.Code())
	suite.Equal("User not found", res.Msg())
}

func (suite *ServiceTestSuite) TestListAll_SecondCallHitsCache() {
	suite.createUser("Ana", "ana@example.com")
	suite.createUser("Bruno", "bruno@example.com")

	first, err := suite.users.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal("Users listed", first.Msg())

	second, err := suite.users.ListAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal("Users listed (cache)", second.Msg())

	suite.Equal(int32(1), suite.userRepo.lists.Load())

	a, _ := first.Data()
	b, _ := second.Data()
	suite.Require().Len(b, len(a))
	for i := range a {
		suite.Equal(a[i].ID, b[i].ID)
		suite.Equal(a[i].Name, b[i].Name)
		suite.Equal(a[i].Email, b[i].Email)
	}
}

func (suite *ServiceTestSuite) TestUpdateUser_Partial() {
	ana := suite.createUser("Ana", "ana@example.com")

	name := "Ana Maria"
	res, err := suite.users.Update(suite.ctx, ana.ID, UpdateUserInput{Name: &name})
	suite.Require().NoError(err)
	suite.Equal("User updated", res.Msg())

	got, _ := res.Data()
	suite.Equal("Ana Maria", got.Name)
	suite.Equal("ana@example.com", got.Email)
}

func (suite *ServiceTestSuite) TestUpdateUser_EmailTaken() {
	suite.createUser("Ana", "ana@example.com")
	bruno := suite.createUser("Bruno", "bruno@example.com")

	email := "ana@example.com"
	res, err := suite.users.Update(suite.ctx, bruno.ID, UpdateUserInput{Email: &email})
	suite.Require().NoError(err)
	suite.Equal(http.StatusBadRequest, res.Code())
	suite.Equal("Email already exists", res.Msg())
}

func (suite *ServiceTestSuite) TestUpdateUser_SameEmailIsAllowed() {
	ana := suite.createUser("Ana", "ana@example.com")

	email := "ana@example.com"
	res, err := suite.users.Update(suite.ctx, ana.ID, UpdateUserInput{Email: &email})
	suite.Require().NoError(err)
	suite.True(res.OK())
}

func (suite *ServiceTestSuite) TestUpdateUser_PasswordIsRehashed() {
	ana := suite.createUser("Ana", "ana@example.com")

	password := "another"
	_, err := suite.users.Update(suite.ctx, ana.ID, UpdateUserInput{Password: &password})
	suite.Require().NoError(err)

	res, err := suite.auth.Login(suite.ctx, LoginInput{Email: "ana@example.com", Password: "another"})
	suite.Require().NoError(err)
	suite.True(res.OK())
}

func (suite *ServiceTestSuite) TestUpdateUser_NotFound() {
	name := "x"
	res, err := suite.users.Update(suite.ctx, "missing", UpdateUserInput{Name: &name})
	suite.Require().NoError(err)
	suite.Equal("User not found", res.Msg())
}

func (suite *ServiceTestSuite) TestDeleteUser_CascadesTasks() {
	ana := suite.createUser("Ana", "ana@example.com")
	task := suite.createTask(ana.ID, "one", "first")
	suite.createTask(ana.ID, "two", "second")

	_, err := suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)
	suite.users.Wait()

	res, err := suite.users.Delete(suite.ctx, ana.ID)
	suite.Require().NoError(err)
	suite.Equal("User deleted", res.Msg())
	data, ok := res.Data()
	suite.True(ok)
	suite.Equal("", data)

	get, err := suite.users.GetByID(suite.ctx, ana.ID)
	suite.Require().NoError(err)
	suite.Equal(http.StatusNotFound, get.Code())

	remaining, err := suite.taskRepo.ListByUser(suite.ctx, ana.ID)
	suite.Require().NoError(err)
	suite.Empty(remaining)

	_, found, err := suite.store.Get(suite.ctx, constants.TaskCacheKey(task.ID))
	suite.Require().NoError(err)
	suite.False(found)

	again, err := suite.users.Delete(suite.ctx, ana.ID)
	suite.Require().NoError(err)
	suite.Equal("User not found", again.Msg())
}

// Task service

func (suite *ServiceTestSuite) TestCreateTask_RequiresActor() {
	ana := suite.createUser("Ana", "ana@example.com")

	res, err := suite.tasks.Create(suite.ctx, "", ana.ID, CreateTaskInput{Description: "d", Detail: "x"})
	suite.Require().NoError(err)
	suite.Equal(http.StatusUnauthorized, res.Code())
	suite.Equal("Authentication failed", res.Msg())
}

func (suite *ServiceTestSuite) TestCreateTask_UnknownOwner() {
	ana := suite.createUser("Ana", "ana@example.com")

	res, err := suite.tasks.Create(suite.ctx, ana.ID, "missing", CreateTaskInput{Description: "d", Detail: "x"})
	suite.Require().NoError(err)
	suite.Equal("User not found", res.Msg())
}

func (suite *ServiceTestSuite) TestCreateTask() {
	ana := suite.createUser("Ana", "ana@example.com")

	res, err := suite.tasks.Create(suite.ctx, ana.ID, ana.ID, CreateTaskInput{Description: "buy milk", Detail: "2 liters"})
	suite.Require().NoError(err)
	suite.Equal(http.StatusCreated, res.Code())
	suite.Equal("Task created", res.Msg())

	task, _ := res.Data()
	suite.NotEmpty(task.ID)
	suite.Equal(ana.ID, task.UserID)
}

func (suite *ServiceTestSuite) TestGetTask_StoreThenCache() {
	ana := suite.createUser("Ana", "ana@example.com")
	task := suite.createTask(ana.ID, "one", "first")

	res, err := suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal("Task obtained", res.Msg())

	res, err = suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal("Task obtained(cache)", res.Msg())
}

func (suite *ServiceTestSuite) TestGetTask_OtherOwnerCannotSeeCachedSnapshot() {
	ana := suite.createUser("Ana", "ana@example.com")
	bruno := suite.createUser("Bruno", "bruno@example.com")
	task := suite.createTask(ana.ID, "one", "first")

	_, err := suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)

	res, err := suite.tasks.GetByID(suite.ctx, bruno.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal(http.StatusNotFound, res.Code())
	suite.Equal("Task not found", res.Msg())
}

func (suite *ServiceTestSuite) TestGetTask_RequiresActor() {
	res, err := suite.tasks.GetByID(suite.ctx, "", "any")
	suite.Require().NoError(err)
	suite.Equal(http.StatusUnauthorized, res.Code())
}

func (suite *ServiceTestSuite) TestUpdateTask_PartialFields() {
	ana := suite.createUser("Ana", "ana@example.com")
	task := suite.createTask(ana.ID, "one", "first")

	detail := "changed detail"
	res, err := suite.tasks.Update(suite.ctx, ana.ID, ana.ID, task.ID, UpdateTaskInput{Detail: &detail})
	suite.Require().NoError(err)
	suite.Equal("Task updated", res.Msg())
	got, _ := res.Data()
	suite.Equal("one", got.Description)
	suite.Equal("changed detail", got.Detail)

	description := "changed description"
	res, err = suite.tasks.Update(suite.ctx, ana.ID, ana.ID, task.ID, UpdateTaskInput{Description: &description})
	suite.Require().NoError(err)
	got, _ = res.Data()
	suite.Equal("changed description", got.Description)
	suite.Equal("changed detail", got.Detail)
}

func (suite *ServiceTestSuite) TestUpdateTask_InvalidatesSnapshot() {
	ana := suite.createUser("Ana", "ana@example.com")
	task := suite.createTask(ana.ID, "one", "first")

	_, err := suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)

	detail := "fresh"
	_, err = suite.tasks.Update(suite.ctx, ana.ID, ana.ID, task.ID, UpdateTaskInput{Detail: &detail})
	suite.Require().NoError(err)

	res, err := suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal("Task obtained", res.Msg())
	got, _ := res.Data()
	suite.Equal("fresh", got.Detail)
}

func (suite *ServiceTestSuite) TestUpdateTask_NotFound() {
	ana := suite.createUser("Ana", "ana@example.com")

	detail := "x"
	res, err := suite.tasks.Update(suite.ctx, ana.ID, ana.ID, "missing", UpdateTaskInput{Detail: &detail})
	suite.Require().NoError(err)
	suite.Equal("Task not found", res.Msg())
}

func (suite *ServiceTestSuite) TestDeleteTask() {
	ana := suite.createUser("Ana", "ana@example.com")
	task := suite.createTask(ana.ID, "one", "first")
	_, err := suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)

	res, err := suite.tasks.Delete(suite.ctx, ana.ID, ana.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal("Task deleted", res.Msg())
	data, _ := res.Data()
	suite.Equal("", data)

	get, err := suite.tasks.GetByID(suite.ctx, ana.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal("Task not found", get.Msg())

	again, err := suite.tasks.Delete(suite.ctx, ana.ID, ana.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal(http.StatusNotFound, again.Code())
}

func (suite *ServiceTestSuite) TestListUserTasks() {
	ana := suite.createUser("Ana", "ana@example.com")
	suite.createTask(ana.ID, "one", "first")
	suite.createTask(ana.ID, "two", "second")

	res, err := suite.tasks.ListUserTasks(suite.ctx, ana.ID)
	suite.Require().NoError(err)
	suite.Equal("Tasks listed", res.Msg())
	tasks, _ := res.Data()
	suite.Len(tasks, 2)

	missing, err := suite.tasks.ListUserTasks(suite.ctx, "missing")
	suite.Require().NoError(err)
	suite.Equal("User not found", missing.Msg())
}

// Auth service

func (suite *ServiceTestSuite) TestLogin() {
	ana := suite.createUser("Ana", "ana@example.com")
	suite.createTask(ana.ID, "one", "first")

	res, err := suite.auth.Login(suite.ctx, LoginInput{Email: "ana@example.com", Password: "secret"})
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, res.Code())
	suite.Equal("Authentication successfully done", res.Msg())

	login, _ := res.Data()
	suite.Equal(ana.ID, login.ID)
	suite.Len(login.Tasks, 1)

	sub, err := suite.auth.Verify(login.Token)
	suite.Require().NoError(err)
	suite.Equal(ana.ID, sub)
}

func (suite *ServiceTestSuite) TestLogin_WrongPassword() {
	suite.createUser("Ana", "ana@example.com")

	res, err := suite.auth.Login(suite.ctx, LoginInput{Email: "ana@example.com", Password: "wrong_password"})
	suite.Require().NoError(err)
	suite.Equal(http.StatusUnauthorized, res.Code())
	suite.Equal("Authentication failed", res.Msg())
}

func (suite *ServiceTestSuite) TestLogin_UnknownEmail() {
	res, err := suite.auth.Login(suite.ctx, LoginInput{Email: "nobody@example.com", Password: "secret"})
	suite.Require().NoError(err)
	suite.Equal(http.StatusNotFound, res.Code())
	suite.Equal("User not found", res.Msg())
}

func (suite *ServiceTestSuite) TestVerify_RejectsGarbage() {
	_, err := suite.auth.Verify("garbage")
	suite.ErrorIs(err, security.ErrInvalidToken)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

// brokenStore fails every operation, standing in for an unreachable cache.
type brokenStore struct{}

var errCacheDown = errors.New("cache down")

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errCacheDown }
func (brokenStore) Set(context.Context, string, []byte) error         { return errCacheDown }
func (brokenStore) Delete(context.Context, ...string) error            { return errCacheDown }
func (brokenStore) Ping(context.Context) error                         { return errCacheDown }

func TestUserService_CacheFailureIsAnError(t *testing.T) {
	svc := NewUserService(nil, nil, brokenStore{}, security.NewPasswordHasher(bcrypt.MinCost), logging.Discard())

	_, err := svc.ListAll(context.Background())
	if !errors.Is(err, errCacheDown) {
		t.Fatalf("expected cache error, got %v", err)
	}

	_, err = svc.GetByID(context.Background(), "any")
	if !errors.Is(err, errCacheDown) {
		t.Fatalf("expected cache error, got %v", err)
	}
}

// gatedUserRepo pauses List after reading from the store until released, so a
// mutation can land between the read and the cache write of a refresh.
type gatedUserRepo struct {
	*repository.GormUserRepository
	listed  chan struct{}
	release chan struct{}
}

func (r *gatedUserRepo) List(ctx context.Context) ([]models.User, error) {
	users, err := r.GormUserRepository.List(ctx)
	r.listed <- struct{}{}
	<-r.release
	return users, err
}

func TestUserService_RefreshDoesNotOverwriteLaterInvalidation(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	store, err := cache.NewMemoryStore(16)
	require.NoError(t, err)
	userRepo := &gatedUserRepo{
		GormUserRepository: repository.NewUserRepository(db),
		listed:             make(chan struct{}),
		release:            make(chan struct{}),
	}
	svc := NewUserService(userRepo, repository.NewTaskRepository(db), store, security.NewPasswordHasher(bcrypt.MinCost), logging.Discard())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Name: "Ana", Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	ana, _ := created.Data()

	// Store hit schedules a refresh, which reads the old name and then waits.
	res, err := svc.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	require.Equal(t, "User obtained", res.Msg())
	<-userRepo.listed

	name := "Ana Maria"
	updated, err := svc.Update(ctx, ana.ID, UpdateUserInput{Name: &name})
	require.NoError(t, err)
	require.True(t, updated.OK())

	close(userRepo.release)
	svc.Wait()

	_, found, err := store.Get(ctx, constants.CacheKeyUsers)
	require.NoError(t, err)
	assert.False(t, found)

	// The next store hit refreshes again; let it through.
	go func() { <-userRepo.listed }()
	res, err = svc.GetByID(ctx, ana.ID)
	require.NoError(t, err)
	got, _ := res.Data()
	assert.Equal(t, "User obtained", res.Msg())
	assert.Equal(t, "Ana Maria", got.Name)
	svc.Wait()
}
