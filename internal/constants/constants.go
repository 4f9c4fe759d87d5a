package constants

const (
	// Validation
	MinPasswordLength    = 5
	MaxNameLength        = 100
	MaxDescriptionLength = 255
	MaxDetailLength      = 1000

	// Session
	SessionCookieName = "recados_session"
	SessionKeyToken   = "token"
	SessionMaxAge     = 86400 * 7

	// Context keys set by middleware
	ContextKeyUserID = "user_id"

	// Cache keys
	CacheKeyUsers      = "users"
	CacheKeyTaskPrefix = "task:"

	// AI suggestions
	MaxSuggestedTasks = 10
)

// TaskCacheKey returns the cache key holding a single task snapshot.
func TaskCacheKey(taskID string) string {
	return CacheKeyTaskPrefix + taskID
}
