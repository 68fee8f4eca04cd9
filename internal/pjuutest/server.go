// Package pjuutest runs an in-process Pjuu backend for tests. It renders a
// feed page with the markup the client parses, serves the vote, hide,
// delete, unfollow, post and alert-check endpoints, validates CSRF tokens
// with echo's middleware and records every request it receives.
package pjuutest

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	SessionCookie = "session"
	SessionValue  = "signed-in"
	MaxPostLength = 500
)

// Post is a feed item as the server sees it. Score is rendered verbatim so
// tests can serve non-numeric scores.
type Post struct {
	ID     string
	Author string
	Body   string
	Score  string
	Up     bool
	Down   bool
	Hidden bool
}

// Request is a recorded inbound request.
type Request struct {
	Method    string
	Path      string
	CSRFToken string
	RequestID string
	Form      url.Values
}

// Server is the fake backend. Its state is only changed through the
// setters, which are safe to call while requests are in flight.
type Server struct {
	*httptest.Server
	Echo *echo.Echo

	mu          sync.Mutex
	posts       []*Post
	alertItems  []string
	following   []string
	alertCounts []int
	alertCalls  int
	voteStatus  int
	voteMessage string
	voteGate    chan struct{}
	requests    []Request
}

// New starts a server seeded with one post by alice (score 11) and one
// pending alert, and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		posts: []*Post{
			{ID: "p1", Author: "alice", Body: "hello pjuu", Score: "11"},
		},
		alertItems: []string{"a1"},
		following:  []string{"carol"},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record)
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup: "header:X-CSRFToken,form:csrf_token",
		CookieName:  "csrf_token",
		CookiePath:  "/",
	}))

	e.GET("/", s.feed)
	e.GET("/feed", s.feed)
	e.GET("/alerts", s.feed)
	e.GET("/:username", s.feed)
	e.GET("/alerts/new", s.newAlerts, s.requireSession)
	e.POST("/post", s.createPost, s.requireSession)
	e.POST("/alerts/:id/hide", s.hideAlert, s.requireSession)
	e.POST("/:username/unfollow", s.unfollow, s.requireSession)
	e.POST("/:username/:id/upvote", s.vote(true), s.requireSession)
	e.POST("/:username/:id/downvote", s.vote(false), s.requireSession)
	e.POST("/:username/:id/hide", s.hidePost, s.requireSession)
	e.POST("/:username/:id/delete", s.deletePost, s.requireSession)

	s.Echo = e
	s.Server = httptest.NewServer(e)
	t.Cleanup(s.Close)
	return s
}

// SetPosts replaces the feed.
func (s *Server) SetPosts(posts ...*Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = posts
}

// Post returns a copy of the post with id, or nil.
func (s *Server) Post(id string) *Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.find(id); p != nil {
		cp := *p
		return &cp
	}
	return nil
}

// SetAlertCounts sets the replies of successive alert checks. The last
// value repeats once the sequence is exhausted.
func (s *Server) SetAlertCounts(counts ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertCounts = counts
	s.alertCalls = 0
}

// FailVotes makes vote endpoints answer with status and a JSON message.
// A zero status restores normal behaviour.
func (s *Server) FailVotes(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voteStatus = status
	s.voteMessage = message
}

// GateVotes makes every vote handler block until a value is received from
// the returned channel.
func (s *Server) GateVotes() chan<- struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voteGate = make(chan struct{})
	return s.voteGate
}

// Requests returns the recorded requests, optionally filtered by method.
func (s *Server) Requests(method string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if method == "" || r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rec := Request{
			Method:    req.Method,
			Path:      req.URL.Path,
			CSRFToken: req.Header.Get("X-CSRFToken"),
			RequestID: req.Header.Get("X-Request-ID"),
		}
		if req.Method != http.MethodGet {
			if form, err := c.FormParams(); err == nil {
				rec.Form = form
			}
		}
		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookie)
		if err != nil || cookie.Value != SessionValue {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Forbidden"})
		}
		return next(c)
	}
}

type feedData struct {
	Token      string
	Alerts     bool
	MaxLength  int
	Posts      []*Post
	AlertItems []string
	Following  []string
}

func (s *Server) feed(c echo.Context) error {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)

	s.mu.Lock()
	data := feedData{
		Token:      token,
		Alerts:     len(s.alertItems) > 0,
		MaxLength:  MaxPostLength,
		AlertItems: append([]string(nil), s.alertItems...),
		Following:  append([]string(nil), s.following...),
	}
	for _, p := range s.posts {
		if !p.Hidden {
			cp := *p
			data.Posts = append(data.Posts, &cp)
		}
	}
	s.mu.Unlock()

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return feedTemplate.Execute(c.Response(), data)
}

func (s *Server) vote(up bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		gate := s.voteGate
		s.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.voteStatus != 0 {
			return c.JSON(s.voteStatus, map[string]string{"message": s.voteMessage})
		}

		p := s.find(c.Param("id"))
		if p == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"message": "Post not found"})
		}

		score, _ := strconv.Atoi(p.Score)
		var message string
		switch {
		case up && p.Up:
			p.Up, score, message = false, score-1, "Your upvote has been removed"
		case up:
			if p.Down {
				score++
			}
			p.Up, p.Down, score, message = true, false, score+1, "You upvoted the post"
		case p.Down:
			p.Down, score, message = false, score+1, "Your downvote has been removed"
		default:
			if p.Up {
				score--
			}
			p.Down, p.Up, score, message = true, false, score-1, "You downvoted the post"
		}
		if _, err := strconv.Atoi(p.Score); err == nil {
			p.Score = strconv.Itoa(score)
		}
		return c.JSON(http.StatusOK, map[string]string{"message": message})
	}
}

func (s *Server) hidePost(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(c.Param("id"))
	if p == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Post not found"})
	}
	p.Hidden = true
	return c.JSON(http.StatusOK, map[string]string{"message": "Post has been hidden"})
}

func (s *Server) deletePost(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	for i, p := range s.posts {
		if p.ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return c.JSON(http.StatusOK, map[string]string{"message": "Post has been deleted"})
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"message": "Post not found"})
}

func (s *Server) hideAlert(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	for i, a := range s.alertItems {
		if a == id {
			s.alertItems = append(s.alertItems[:i], s.alertItems[i+1:]...)
			return c.JSON(http.StatusOK, map[string]string{"message": "Alert has been hidden"})
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"message": "Alert not found"})
}

func (s *Server) unfollow(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := c.Param("username")
	for i, f := range s.following {
		if f == user {
			s.following = append(s.following[:i], s.following[i+1:]...)
			return c.JSON(http.StatusOK, map[string]string{"message": "You are no longer following " + user})
		}
	}
	return c.JSON(http.StatusBadRequest, map[string]string{"message": "You are not following " + user})
}

func (s *Server) createPost(c echo.Context) error {
	body := c.FormValue("body")
	if strings.TrimSpace(body) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "This field is required."})
	}
	if len([]rune(body)) > MaxPostLength {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"message": "Posts can not be larger than " + strconv.Itoa(MaxPostLength) + " characters",
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := "p" + strconv.Itoa(len(s.posts)+100)
	s.posts = append([]*Post{{ID: id, Author: "me", Body: body, Score: "0"}}, s.posts...)
	return c.JSON(http.StatusOK, map[string]string{"message": "Your post has been added"})
}

func (s *Server) newAlerts(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	if n := len(s.alertCounts); n > 0 {
		idx := s.alertCalls
		if idx >= n {
			idx = n - 1
		}
		count = s.alertCounts[idx]
	}
	s.alertCalls++
	return c.JSON(http.StatusOK, map[string]int{"new_alerts": count})
}

func (s *Server) find(id string) *Post {
	for _, p := range s.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

var feedTemplate = template.Must(template.New("feed").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta name="csrf-token" content="{{.Token}}">
</head>
<body>
  <a id="alert"{{if .Alerts}} class="alert"{{end}} href="/alerts">Alerts</a>
  <form id="author" action="/post" method="post">
    <textarea id="body" name="body" maxlength="{{.MaxLength}}"></textarea>
  </form>
  <ul>
  {{- range .Posts}}
    <li class="post" data-id="{{.ID}}">
      <div class="body">{{.Body}}</div>
      <form class="vote upvote" action="/{{.Author}}/{{.ID}}/upvote" method="post">
        <button class="upvote{{if .Up}} active{{end}}">up</button>
      </form>
      <span class="score">{{.Score}}</span>
      <form class="vote downvote" action="/{{.Author}}/{{.ID}}/downvote" method="post">
        <button class="downvote{{if .Down}} active{{end}}">down</button>
      </form>
      <form action="/{{.Author}}/{{.ID}}/hide" method="post"><button class="hide">hide</button></form>
      <form action="/{{.Author}}/{{.ID}}/delete" method="post"><button class="delete">delete</button></form>
    </li>
  {{- end}}
  {{- range .AlertItems}}
    <li class="alert" data-id="{{.}}">
      <form action="/alerts/{{.}}/hide" method="post"><button class="hide">hide</button></form>
    </li>
  {{- end}}
  </ul>
  {{- range .Following}}
  <form action="/{{.}}/unfollow" method="post">
    <button class="action unfollow" data-username="{{.}}">Following</button>
  </form>
  {{- end}}
</body>
</html>`))
