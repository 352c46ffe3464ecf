package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fintrackapp/auth-service/internal/dto"
)

const defaultPassword = "Password123"

func (s *Suite) postJSON(path string, payload interface{}, cookies []*http.Cookie) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	req, err := http.NewRequest("POST", s.BaseURL+path, bytes.NewBuffer(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) register(email string) (dto.AuthResponse, []*http.Cookie) {
	resp := s.postJSON("/api/v1/auth/register",
		dto.RegisterRequest{Email: email, Password: defaultPassword}, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var authResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&authResp))
	return authResp, resp.Cookies()
}

func (s *Suite) login(email, password string) *http.Response {
	return s.postJSON("/api/v1/auth/login",
		dto.LoginRequest{Email: email, Password: password}, nil)
}

func (s *Suite) authedRequest(method, path, accessToken string) *http.Response {
	req, err := http.NewRequest(method, s.BaseURL+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestRegister_Success() {
	authResp, cookies := s.register("test@example.com")

	s.NotEmpty(authResp.AccessToken)
	s.Equal("Bearer", authResp.TokenType)
	s.NotZero(authResp.ExpiresIn)
	s.Equal("test@example.com", authResp.User.Email)
	s.NotEmpty(authResp.User.ID)
	s.NotEmpty(cookies, "Should have refresh token cookie")
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("duplicate@example.com")

	resp := s.postJSON("/api/v1/auth/register",
		dto.RegisterRequest{Email: "duplicate@example.com", Password: defaultPassword}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusConflict, resp.StatusCode)

	var errResp dto.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	s.Equal("Conflict", errResp.Error)
}

func (s *Suite) TestRegister_InvalidEmail() {
	resp := s.postJSON("/api/v1/auth/register",
		dto.RegisterRequest{Email: "invalid-email", Password: defaultPassword}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRegister_ShortPassword() {
	resp := s.postJSON("/api/v1/auth/register",
		dto.RegisterRequest{Email: "test@example.com", Password: "short"}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestLogin_Success() {
	s.register("login@example.com")

	resp := s.login("login@example.com", defaultPassword)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var authResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&authResp))

	s.NotEmpty(authResp.AccessToken)
	s.Equal("Bearer", authResp.TokenType)
	s.Equal("login@example.com", authResp.User.Email)
	s.NotEmpty(resp.Cookies(), "Should have refresh token cookie")
}

func (s *Suite) TestLogin_InvalidCredentials() {
	resp := s.login("nonexistent@example.com", "WrongPassword123")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	json.NewDecoder(resp.Body).Decode(&errResp)
	s.Equal("Unauthorized", errResp.Error)
}

func (s *Suite) TestLogin_WrongPassword() {
	s.register("wrongpass@example.com")

	resp := s.login("wrongpass@example.com", "WrongPassword123")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestLogin_LockoutAfterRepeatedFailures() {
	s.register("lockout@example.com")

	for i := 0; i < 5; i++ {
		resp := s.login("lockout@example.com", "WrongPassword123")
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}

	// The lock rejects even the correct password and discloses retry timing.
	resp := s.login("lockout@example.com", defaultPassword)
	defer resp.Body.Close()

	s.Equal(http.StatusLocked, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("Retry-After"))

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.NotZero(errResp.RetryAfter)
}

func (s *Suite) TestGetMe_Success() {
	authResp, _ := s.register("getme@example.com")

	resp := s.authedRequest("GET", "/api/v1/auth/me", authResp.AccessToken)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var userResp dto.UserResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&userResp))

	s.NotEmpty(userResp.ID)
	s.Equal("getme@example.com", userResp.Email)
	s.NotEmpty(userResp.CreatedAt)
	s.NotEmpty(userResp.UpdatedAt)
	s.False(userResp.IsEmailVerified)
}

func (s *Suite) TestGetMe_NoToken() {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/auth/me", nil)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_InvalidToken() {
	resp := s.authedRequest("GET", "/api/v1/auth/me", "invalid-token")
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestRefresh_Success() {
	_, cookies := s.register("refresh@example.com")
	s.Require().NotEmpty(cookies)

	resp := s.postJSON("/api/v1/auth/refresh", nil, cookies)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var authResp dto.AuthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&authResp))

	s.NotEmpty(authResp.AccessToken)
	s.Equal("Bearer", authResp.TokenType)
	s.NotEmpty(resp.Cookies(), "Rotation should set a new refresh cookie")
}

func (s *Suite) TestRefresh_NoCookie() {
	resp := s.postJSON("/api/v1/auth/refresh", nil, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRefresh_ReplayRevokesFamily() {
	_, first := s.register("replay@example.com")

	rotation := s.postJSON("/api/v1/auth/refresh", nil, first)
	second := rotation.Cookies()
	rotation.Body.Close()
	s.Require().Equal(http.StatusOK, rotation.StatusCode)

	// Replaying the consumed cookie is reuse: rejected, and the whole family
	// dies with it.
	replay := s.postJSON("/api/v1/auth/refresh", nil, first)
	replay.Body.Close()
	s.Equal(http.StatusUnauthorized, replay.StatusCode)

	successor := s.postJSON("/api/v1/auth/refresh", nil, second)
	defer successor.Body.Close()
	s.Equal(http.StatusUnauthorized, successor.StatusCode)
}

func (s *Suite) TestLogout_Idempotent() {
	_, cookies := s.register("logout@example.com")

	first := s.postJSON("/api/v1/auth/logout", nil, cookies)
	defer first.Body.Close()
	s.Equal(http.StatusOK, first.StatusCode)

	var successResp dto.SuccessResponse
	json.NewDecoder(first.Body).Decode(&successResp)
	s.Equal("Logged out successfully", successResp.Message)

	// Repeating with the same dead cookie, or with none at all, still succeeds.
	second := s.postJSON("/api/v1/auth/logout", nil, cookies)
	second.Body.Close()
	s.Equal(http.StatusOK, second.StatusCode)

	bare := s.postJSON("/api/v1/auth/logout", nil, nil)
	bare.Body.Close()
	s.Equal(http.StatusOK, bare.StatusCode)
}

func (s *Suite) TestLogoutAll_InvalidatesAccessTokens() {
	authResp, cookies := s.register("logoutall@example.com")

	resp := s.authedRequest("POST", "/api/v1/auth/logout-all", authResp.AccessToken)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	// The access token dies immediately, not at its natural expiry.
	me := s.authedRequest("GET", "/api/v1/auth/me", authResp.AccessToken)
	me.Body.Close()
	s.Equal(http.StatusUnauthorized, me.StatusCode)

	refresh := s.postJSON("/api/v1/auth/refresh", nil, cookies)
	refresh.Body.Close()
	s.Equal(http.StatusUnauthorized, refresh.StatusCode)
}

func (s *Suite) TestVerifyEmail_RequestAlwaysSucceeds() {
	resp := s.postJSON("/api/v1/auth/verify-email/request",
		dto.EmailRequest{Email: "whoever@example.com"}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestVerifyEmail_ConfirmUnknownToken() {
	resp := s.postJSON("/api/v1/auth/verify-email/confirm",
		dto.ConfirmTokenRequest{Token: "never-issued"}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestPasswordReset_RequestAlwaysSucceeds() {
	resp := s.postJSON("/api/v1/auth/password-reset/request",
		dto.EmailRequest{Email: "whoever@example.com"}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *Suite) TestPasswordReset_ConfirmUnknownToken() {
	resp := s.postJSON("/api/v1/auth/password-reset/confirm",
		dto.ResetPasswordRequest{Token: "never-issued", NewPassword: "NewPassword123"}, nil)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestCompleteFlow() {
	authResp, cookies := s.register("complete@example.com")

	me := s.authedRequest("GET", "/api/v1/auth/me", authResp.AccessToken)
	me.Body.Close()
	s.Equal(http.StatusOK, me.StatusCode)

	rotation := s.postJSON("/api/v1/auth/refresh", nil, cookies)
	s.Equal(http.StatusOK, rotation.StatusCode)

	var rotated dto.AuthResponse
	s.Require().NoError(json.NewDecoder(rotation.Body).Decode(&rotated))
	newCookies := rotation.Cookies()
	rotation.Body.Close()

	logout := s.postJSON("/api/v1/auth/logout", nil, newCookies)
	logout.Body.Close()
	s.Equal(http.StatusOK, logout.StatusCode)

	// Logout kills the refresh line only; the short-lived access token rides
	// out its expiry.
	me2 := s.authedRequest("GET", "/api/v1/auth/me", rotated.AccessToken)
	me2.Body.Close()
	s.Equal(http.StatusOK, me2.StatusCode)

	refresh := s.postJSON("/api/v1/auth/refresh", nil, newCookies)
	refresh.Body.Close()
	s.Equal(http.StatusUnauthorized, refresh.StatusCode)
}
