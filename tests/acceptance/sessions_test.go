package acceptance

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fintrackapp/auth-service/internal/domain"
)

func (s *Suite) listSessions(accessToken string) []domain.SessionView {
	resp := s.authedRequest("GET", "/api/v1/auth/sessions", accessToken)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var views []domain.SessionView
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&views))
	return views
}

func (s *Suite) TestSessions_ListMarksCurrent() {
	s.register("sessions@example.com")

	login := s.login("sessions@example.com", defaultPassword)
	defer login.Body.Close()
	s.Require().Equal(http.StatusOK, login.StatusCode)

	var second struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.NewDecoder(login.Body).Decode(&second))

	views := s.listSessions(second.AccessToken)
	s.Require().Len(views, 2)

	var current int
	for _, view := range views {
		if view.Current {
			current++
		}
		s.NotEmpty(view.ID)
		s.NotZero(view.CreatedAt)
		s.NotZero(view.ExpiresAt)
	}
	s.Equal(1, current, "Exactly one session should be marked current")
}

func (s *Suite) TestSessions_RevokeOther() {
	authResp, _ := s.register("revoke@example.com")

	login := s.login("revoke@example.com", defaultPassword)
	login.Body.Close()
	s.Require().Equal(http.StatusOK, login.StatusCode)

	views := s.listSessions(authResp.AccessToken)
	s.Require().Len(views, 2)

	var otherID string
	for _, view := range views {
		if !view.Current {
			otherID = view.ID
		}
	}
	s.Require().NotEmpty(otherID)

	resp := s.authedRequest("DELETE", fmt.Sprintf("/api/v1/auth/sessions/%s", otherID), authResp.AccessToken)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	s.Require().Len(s.listSessions(authResp.AccessToken), 1)
}

func (s *Suite) TestSessions_CannotRevokeCurrent() {
	authResp, _ := s.register("revokecurrent@example.com")

	views := s.listSessions(authResp.AccessToken)
	s.Require().Len(views, 1)
	s.Require().True(views[0].Current)

	resp := s.authedRequest("DELETE", fmt.Sprintf("/api/v1/auth/sessions/%s", views[0].ID), authResp.AccessToken)
	resp.Body.Close()
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) TestSessions_RevokeUnknown() {
	authResp, _ := s.register("revokeunknown@example.com")

	resp := s.authedRequest("DELETE",
		"/api/v1/auth/sessions/2ad2b6cd-64a6-488c-9aa7-f0d93f171e12", authResp.AccessToken)
	resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestSessions_RequiresAuth() {
	resp, err := http.Get(s.BaseURL + "/api/v1/auth/sessions")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
