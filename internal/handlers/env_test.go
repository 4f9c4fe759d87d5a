package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/recados-api/internal/cache"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/logging"
	"github.com/yukikurage/recados-api/internal/models"
	"github.com/yukikurage/recados-api/internal/repository"
	"github.com/yukikurage/recados-api/internal/security"
	"github.com/yukikurage/recados-api/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	db          *gorm.DB
	users       *services.UserService
	tasks       *services.TaskService
	auth        *services.AuthService
	suggestions *services.SuggestionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	store, err := cache.NewMemoryStore(128)
	require.NoError(t, err)

	logger := logging.Discard()
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	env := &testEnv{db: db}
	env.users = services.NewUserService(userRepo, taskRepo, store, hasher, logger)
	env.tasks = services.NewTaskService(taskRepo, env.users, store, logger)
	env.auth = services.NewAuthService(userRepo, taskRepo, hasher, security.NewTokenManager(testJWTSecret, time.Hour))
	env.suggestions = services.NewSuggestionService("", env.users)

	t.Cleanup(func() {
		env.users.Wait()
		sqlDB.Close()
	})
	return env
}

func (e *testEnv) createUser(t *testing.T, name, email string) string {
	t.Helper()
	r, err := e.users.Create(t.Context(), services.CreateUserInput{Name: name, Email: email, Password: "any_password"})
	require.NoError(t, err)
	user, ok := r.Data()
	require.True(t, ok, r.Msg())
	return user.ID
}

func (e *testEnv) createTask(t *testing.T, userID, description, detail string) string {
	t.Helper()
	r, err := e.tasks.Create(t.Context(), userID, userID, services.CreateTaskInput{Description: description, Detail: detail})
	require.NoError(t, err)
	task, ok := r.Data()
	require.True(t, ok, r.Msg())
	return task.ID
}

// newContext builds a handler context as the router would after
// authentication; an empty userID leaves the request anonymous.
func newContext(method, url string, body any, userID string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params
	if userID != "" {
		c.Set(constants.ContextKeyUserID, userID)
	}
	return c, w
}

type envelope struct {
	OK   bool            `json:"ok"`
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
