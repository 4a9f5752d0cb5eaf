package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	server "campus_coffee/internal/adapters/http_server"
	"campus_coffee/internal/app"
	"campus_coffee/internal/storage/sqlite"
)

type HandlersSuite struct {
	suite.Suite
	store *sqlite.Store
	srv   *httptest.Server
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	store, err := sqlite.Open(sqlite.Config{Path: sqlite.MemoryPath})
	s.Require().NoError(err)
	s.store = store

	srv := server.New(server.Options{})
	srv.MountHandlers(&server.Handlers{
		Reviews: app.NewReviewService(store, nil, app.ReviewOptions{MinApprovalCount: 2}),
		Users:   app.NewUserService(store),
		Pos:     app.NewPosService(store),
	})
	s.srv = httptest.NewServer(srv.Mux())
}

func (s *HandlersSuite) TearDownTest() {
	s.srv.Close()
	s.Require().NoError(s.store.Close())
}

func (s *HandlersSuite) do(method, path string, body any) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			s.Require().NoError(json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *HandlersSuite) createUser(login string) int64 {
	resp, body := s.do(http.MethodPost, "/api/users", map[string]any{
		"loginName": login, "emailAddress": login + "@stud.uni-heidelberg.de", "firstName": "F", "lastName": "L",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, body)
	return int64(body["id"].(float64))
}

func (s *HandlersSuite) createPos(name string) int64 {
	resp, body := s.do(http.MethodPost, "/api/pos", map[string]any{
		"name": name, "description": "Espresso bar", "type": "CAFE", "campus": "INF",
		"street": "Im Neuenheimer Feld", "houseNumber": "304", "postalCode": 69120, "city": "Heidelberg",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, body)
	return int64(body["id"].(float64))
}

func (s *HandlersSuite) createReview(posID, authorID int64) int64 {
	resp, body := s.do(http.MethodPost, "/api/reviews", map[string]any{"posId": posID, "authorId": authorID, "review": "Great beans"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, body)
	return int64(body["id"].(float64))
}

func (s *HandlersSuite) TestHealthz() {
	resp, err := http.Get(s.srv.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *HandlersSuite) TestReviewLifecycle() {
	author, a1, a2 := s.createUser("author"), s.createUser("first"), s.createUser("second")
	pos := s.createPos("Coffee Nerd")

	resp, body := s.do(http.MethodPost, "/api/reviews", map[string]any{
		"posId": pos, "authorId": author, "review": "Great beans", "approved": true,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, body)
	s.Equal(false, body["approved"], "approval state is never taken from the request")
	s.NotContains(body, "approvalCount")
	id := int64(body["id"].(float64))

	resp, body = s.do(http.MethodPost, "/api/reviews", map[string]any{"posId": pos, "authorId": author, "review": "Twice"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
	s.Contains(body["detail"], "only review a POS once")

	resp, body = s.do(http.MethodPut, fmt.Sprintf("/api/reviews/%d/approve?user_id=%d", id, author), nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(body["detail"], "own review")

	resp, body = s.do(http.MethodPut, fmt.Sprintf("/api/reviews/%d/approve?user_id=%d", id, a1), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)
	s.Equal(false, body["approved"])

	resp, body = s.do(http.MethodPut, fmt.Sprintf("/api/reviews/%d/approve?user_id=%d", id, a2), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)
	s.Equal(true, body["approved"])

	resp, err := http.Get(fmt.Sprintf("%s/api/reviews/filter?pos_id=%d&approved=true", s.srv.URL, pos))
	s.Require().NoError(err)
	var list []map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	s.Require().Len(list, 1)
	s.Equal("Great beans", list[0]["review"])

	resp, body = s.do(http.MethodPut, fmt.Sprintf("/api/reviews/%d", id), map[string]any{"posId": pos, "authorId": author, "review": "Even better"})
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)
	s.Equal("Even better", body["review"])
	s.Equal(true, body["approved"], "update keeps the approval state")

	resp, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/reviews/%d", id), nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, fmt.Sprintf("/api/reviews/%d", id), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *HandlersSuite) TestApproveErrors() {
	author, other := s.createUser("author"), s.createUser("other")
	id := s.createReview(s.createPos("Bakery"), author)

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{"missing approver", fmt.Sprintf("/api/reviews/%d/approve?user_id=999", id), http.StatusNotFound},
		{"missing review", fmt.Sprintf("/api/reviews/999/approve?user_id=%d", other), http.StatusNotFound},
		{"no user_id", fmt.Sprintf("/api/reviews/%d/approve", id), http.StatusBadRequest},
		{"bad review id", fmt.Sprintf("/api/reviews/abc/approve?user_id=%d", other), http.StatusBadRequest},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			resp, _ := s.do(http.MethodPut, tc.path, nil)
			s.Equal(tc.status, resp.StatusCode)
		})
	}
}

func (s *HandlersSuite) TestReviewValidation() {
	author := s.createUser("author")
	pos := s.createPos("Cafeteria")

	cases := []struct {
		name string
		body any
	}{
		{"blank text", map[string]any{"posId": pos, "authorId": author, "review": "   "}},
		{"missing pos", map[string]any{"authorId": author, "review": "x"}},
		{"approval count is not accepted", map[string]any{"posId": pos, "authorId": author, "review": "x", "approvalCount": 9}},
		{"malformed json", `{"posId": `},
		{"id on create", map[string]any{"id": 5, "posId": pos, "authorId": author, "review": "x"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			resp, body := s.do(http.MethodPost, "/api/reviews", tc.body)
			s.Equal(http.StatusBadRequest, resp.StatusCode, body)
		})
	}

	resp, _ := s.do(http.MethodPost, "/api/reviews", map[string]any{"posId": pos, "authorId": 999, "review": "x"})
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/api/reviews/filter?pos_id=999&approved=false", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, fmt.Sprintf("/api/reviews/filter?pos_id=%d&approved=maybe", pos), nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlersSuite) TestUserAndPosCrud() {
	id := s.createUser("jane")

	resp, body := s.do(http.MethodPost, "/api/users", map[string]any{
		"loginName": "jane", "emailAddress": "other@uni.de", "firstName": "J", "lastName": "D",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode, body)

	resp, body = s.do(http.MethodPost, "/api/users", map[string]any{
		"loginName": "bad", "emailAddress": "not-an-email", "firstName": "J", "lastName": "D",
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode, body)

	resp, body = s.do(http.MethodPut, fmt.Sprintf("/api/users/%d", id), map[string]any{
		"loginName": "jane", "emailAddress": "jane@uni.de", "firstName": "Jane", "lastName": "Doe",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, body)
	s.Equal("Doe", body["lastName"])

	resp, _ = s.do(http.MethodPut, "/api/users/999", map[string]any{
		"loginName": "ghost", "emailAddress": "ghost@uni.de", "firstName": "G", "lastName": "H",
	})
	s.Equal(http.StatusNotFound, resp.StatusCode)

	pos := s.createPos("Mensa")
	resp, body = s.do(http.MethodPost, "/api/pos", map[string]any{"name": "Kiosk", "type": "SHOP", "campus": "INF"})
	s.Equal(http.StatusBadRequest, resp.StatusCode, body)

	s.createReview(pos, id)
	resp, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/pos/%d", pos), nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode, "a reviewed POS cannot be deleted")

	res, err := http.Get(s.srv.URL + "/api/users")
	s.Require().NoError(err)
	var users []map[string]any
	s.Require().NoError(json.NewDecoder(res.Body).Decode(&users))
	res.Body.Close()
	s.Len(users, 1)
}

func (s *HandlersSuite) TestETag() {
	s.createUser("etag")

	res, err := http.Get(s.srv.URL + "/api/users")
	s.Require().NoError(err)
	res.Body.Close()
	etag := res.Header.Get("ETag")
	s.Require().NotEmpty(etag)

	req, _ := http.NewRequest(http.MethodGet, s.srv.URL+"/api/users", nil)
	req.Header.Set("If-None-Match", etag)
	res, err = http.DefaultClient.Do(req)
	s.Require().NoError(err)
	res.Body.Close()
	s.Equal(http.StatusNotModified, res.StatusCode)
}

func TestRateLimit(t *testing.T) {
	h := server.RateLimit(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	h := server.RateLimit(0, 0)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for range 10 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
