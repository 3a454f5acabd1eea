package api

import (
	"strings"
	"sync"
)

const (
	PageLogin     = "login.html"
	PageRegister  = "register.html"
	PageLanding   = "index.html"
	PageDashboard = "dashboard.html"
	PagePricing   = "pricing.html"

	// PageLimitReached is where a subscription-limit response sends the user.
	PageLimitReached = PagePricing + "?error=limit_reached"
)

// Navigator knows the page the caller is on and can move it elsewhere.
type Navigator interface {
	CurrentPage() string
	Redirect(target string)
}

// IsPublicPage reports whether page is reachable without a session:
// login, register, landing or the site root.
func IsPublicPage(page string) bool {
	return strings.Contains(page, PageLogin) ||
		strings.Contains(page, PageRegister) ||
		strings.Contains(page, PageLanding) ||
		page == "/"
}

// Location is an in-process Navigator. It records every redirect and calls
// OnRedirect, if set, after the page has changed.
type Location struct {
	OnRedirect func(target string)

	mu        sync.Mutex
	page      string
	redirects []string
}

func NewLocation(page string) *Location {
	return &Location{page: page}
}

func (l *Location) CurrentPage() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// Visit sets the current page without recording a redirect.
func (l *Location) Visit(page string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.page = page
}

func (l *Location) Redirect(target string) {
	l.mu.Lock()
	l.page = target
	l.redirects = append(l.redirects, target)
	hook := l.OnRedirect
	l.mu.Unlock()

	if hook != nil {
		hook(target)
	}
}

// Redirects returns the redirect targets in the order they happened.
func (l *Location) Redirects() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.redirects...)
}
