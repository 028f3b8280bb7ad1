package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/frontdesk/internal/config"
	"github.com/mansoorceksport/frontdesk/internal/domain"
	"github.com/mansoorceksport/frontdesk/internal/repository"
	"github.com/mansoorceksport/frontdesk/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontDeskGoldenPath(t *testing.T) {
	mongoClient, db := setupTestDB(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	mockAuth := newMockAuthClient()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret-key-123"
	cfg.JWT.AccessTokenExpiry = 15 * time.Minute
	cfg.JWT.RefreshTokenExpiry = time.Hour
	cfg.Redis.CheckInLockTTL = 5 * time.Second
	cfg.Redis.DashboardCacheTTL = time.Minute

	app := NewApp(AppDependencies{
		Config:      cfg,
		MongoClient: mongoClient,
		MongoDB:     db,
		RedisClient: redisClient,
		AuthClient:  mockAuth,
		Logger:      logger.Discard(),
	})

	request := func(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
		var bodyReader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			bodyReader = bytes.NewReader(raw)
		}
		req, err := http.NewRequest(method, path, bodyReader)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		var data map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&data)
		return resp, data
	}

	// Staff accounts are provisioned ahead of their first login
	staff := repository.NewMongoStaffRepository(db)
	require.NoError(t, staff.Create(context.Background(), &domain.Staff{
		Email: "owner@gym.test", Name: "Owner", Roles: []string{domain.RoleOwner},
	}))
	mockAuth.addUser("token_owner", "uid_owner", "owner@gym.test")
	mockAuth.addUser("token_walkin", "uid_walkin", "walkin@gym.test")

	resp, _ := request("POST", "/v1/auth/login", "token_walkin", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, login := request("POST", "/v1/auth/login", "token_owner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	resp, _ = request("GET", "/v1/desk/members", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Register a member and sell a session pack
	resp, member := request("POST", "/v1/desk/members", token, map[string]string{
		"full_name": "Sami Haddad",
		"phone":     "0790000001",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	memberID, _ := member["id"].(string)
	require.NotEmpty(t, memberID)

	resp, _ = request("POST", "/v1/desk/check-ins", token, map[string]string{"member_id": memberID})
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no membership yet")

	resp, membership := request("POST", "/v1/desk/members/"+memberID+"/memberships", token, map[string]interface{}{
		"plan":  "12 Sessions",
		"price": 2500,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(12), membership["remaining_sessions"])

	// First check-in of the day consumes a session
	resp, result := request("POST", "/v1/desk/check-ins", token, map[string]string{"member_id": memberID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(domain.CheckInCommitted), result["outcome"])
	assert.Equal(t, float64(11), result["remaining_sessions"])
	assert.Equal(t, "Sami Haddad", result["trainee_name"])

	// The second one is refused and costs nothing
	resp, result = request("POST", "/v1/desk/check-ins", token, map[string]string{"member_id": memberID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(domain.CheckInAlreadyCheckedInToday), result["outcome"])
	assert.Equal(t, float64(11), result["remaining_sessions"])

	resp, eligibility := request("GET", "/v1/desk/members/"+memberID+"/eligibility", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, eligibility["eligible"])

	resp, _ = request("POST", "/v1/owner/expenses", token, map[string]interface{}{
		"type":   "rent",
		"amount": 1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, dashboard := request("GET", "/v1/owner/dashboard", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), dashboard["total_members"])
	assert.Equal(t, float64(1), dashboard["active_members"])
	assert.Equal(t, float64(1), dashboard["visits_today"])
	assert.Equal(t, float64(2500), dashboard["revenue_this_month"])
	assert.Equal(t, float64(1000), dashboard["expenses_this_month"])
	assert.Equal(t, float64(1500), dashboard["net_profit_this_month"])

	// Archiving needs object storage, which this deployment lacks
	now := time.Now()
	resp, _ = request("POST", "/v1/owner/finance/"+strconv.Itoa(now.Year())+"/"+strconv.Itoa(int(now.Month()))+"/archive", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
