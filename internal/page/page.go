package page

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ErrNotFound is returned when a lookup does not match anything on the page.
var ErrNotFound = errors.New("not found on page")

// ActionKind identifies a destructive action rendered on a page
type ActionKind string

const (
	ActionDelete    ActionKind = "delete"
	ActionHidePost  ActionKind = "hide-post"
	ActionHideAlert ActionKind = "hide-alert"
	ActionUnfollow  ActionKind = "unfollow"
)

// Form is the declared action URL and method of an HTML form.
// Action is always absolute, Method is upper-case.
type Form struct {
	Action string
	Method string
}

// VoteControl is one vote button together with the form it submits.
type VoteControl struct {
	Form   Form
	Active bool
}

// Votable is a post or reply that carries an upvote/downvote pair.
type Votable struct {
	ID    string
	Up    *VoteControl
	Down  *VoteControl
	Score string
}

// Action is a destructive action (delete, hide, unfollow) and its form.
type Action struct {
	Kind   ActionKind
	Target string
	Form   Form
}

// AuthorForm is the form used to create posts and replies.
type AuthorForm struct {
	Form      Form
	MaxLength int
}

// Document is the parsed state of one server-rendered page
type Document struct {
	URL       *url.URL
	CSRFToken string
	Votables  []*Votable
	Actions   []*Action
	Author    *AuthorForm
	HasAlerts bool
}

// Votable returns the votable item with the given id.
func (d *Document) Votable(id string) (*Votable, error) {
	for _, v := range d.Votables {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, fmt.Errorf("votable %q: %w", id, ErrNotFound)
}

// Action returns the action of the given kind targeting target.
func (d *Document) Action(kind ActionKind, target string) (*Action, error) {
	for _, a := range d.Actions {
		if a.Kind == kind && a.Target == target {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%s action for %q: %w", kind, target, ErrNotFound)
}

// Parse reads an HTML page and extracts the elements the client acts on.
// Relative form actions are resolved against base. With a nil base they
// are kept as written.
func Parse(r io.Reader, base *url.URL) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	w := &walker{doc: &Document{URL: base}, base: base}
	w.walk(root, scope{})

	// Items without any vote control (e.g. the viewer's own posts) are not votable.
	votables := w.doc.Votables[:0]
	for _, v := range w.doc.Votables {
		if v.Up != nil || v.Down != nil {
			votables = append(votables, v)
		}
	}
	w.doc.Votables = votables

	return w.doc, nil
}

type scope struct {
	itemKind string
	itemID   string
	votable  *Votable
	form     *Form
	author   *AuthorForm
}

type walker struct {
	doc  *Document
	base *url.URL
}

func (w *walker) walk(n *html.Node, s scope) {
	if n.Type == html.ElementNode {
		s = w.visit(n, s)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, s)
	}
}

func (w *walker) visit(n *html.Node, s scope) scope {
	switch n.Data {
	case "meta":
		if attr(n, "name") == "csrf-token" {
			w.doc.CSRFToken = attr(n, "content")
		}
	case "li":
		id := attr(n, "data-id")
		switch {
		case hasClass(n, "post") && id != "":
			s.itemKind, s.itemID = "post", id
			s.votable = &Votable{ID: id}
			w.doc.Votables = append(w.doc.Votables, s.votable)
		case hasClass(n, "alert") && id != "":
			s.itemKind, s.itemID = "alert", id
			s.votable = nil
		}
	case "form":
		f := w.form(attr(n, "action"), attr(n, "method"))
		s.form = &f
		if attr(n, "id") == "author" {
			w.doc.Author = &AuthorForm{Form: f}
			s.author = w.doc.Author
		}
	case "textarea":
		if s.author != nil && attr(n, "id") == "body" {
			if limit, err := strconv.Atoi(attr(n, "maxlength")); err == nil {
				s.author.MaxLength = limit
			}
		}
	case "span":
		if s.votable != nil && hasClass(n, "score") {
			s.votable.Score = strings.TrimSpace(text(n))
		}
	}

	if attr(n, "id") == "alert" {
		w.doc.HasAlerts = hasClass(n, "alert")
	}

	if n.Data == "button" || n.Data == "a" || n.Data == "input" {
		w.control(n, s)
	}
	return s
}

// control records vote buttons and destructive actions. Links outside a
// form submit through their href with GET.
func (w *walker) control(n *html.Node, s scope) {
	var form Form
	switch {
	case s.form != nil:
		form = *s.form
	case n.Data == "a" && attr(n, "href") != "":
		form = w.form(attr(n, "href"), "GET")
	default:
		return
	}

	switch {
	case hasClass(n, "upvote") && s.votable != nil:
		s.votable.Up = &VoteControl{Form: form, Active: hasClass(n, "active")}
	case hasClass(n, "downvote") && s.votable != nil:
		s.votable.Down = &VoteControl{Form: form, Active: hasClass(n, "active")}
	case hasClass(n, "delete") && s.itemKind == "post":
		w.action(ActionDelete, s.itemID, form)
	case hasClass(n, "hide") && s.itemKind == "post":
		w.action(ActionHidePost, s.itemID, form)
	case hasClass(n, "hide") && s.itemKind == "alert":
		w.action(ActionHideAlert, s.itemID, form)
	case hasClass(n, "action") && hasClass(n, "unfollow"):
		target := attr(n, "data-username")
		if target == "" {
			target = s.itemID
		}
		w.action(ActionUnfollow, target, form)
	}
}

func (w *walker) action(kind ActionKind, target string, form Form) {
	w.doc.Actions = append(w.doc.Actions, &Action{Kind: kind, Target: target, Form: form})
}

func (w *walker) form(action, method string) Form {
	resolved := action
	if w.base != nil {
		resolved = w.base.String()
		if action != "" {
			if ref, err := url.Parse(action); err == nil {
				resolved = w.base.ResolveReference(ref).String()
			}
		}
	}
	if method == "" {
		method = "GET"
	}
	return Form{Action: resolved, Method: strings.ToUpper(method)}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
