package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	usernameInputSelector = `input[type="text"], input[type="email"], input[name*="user"], input[name*="login"]`
	passwordInputSelector = `input[type="password"]`
	submitSelector        = `input[type="submit"], button[type="submit"]`

	// Pages shorter than this are not trusted as a logged-in landing page.
	minLandingPageText = 500
)

var (
	successIndicators = []string{
		"dashboard", "aftaler", "appointments", "kalender",
		"schedule", "logout", "logud", "profil", "velkommen",
	}
	loginIndicators = []string{"login", "password", "brugernavn", "log på", "sign in"}
)

// login walks the portal's entry page to an authenticated session
func (s *Scraper) login(ctx context.Context) error {
	entry, err := s.fetchPage(ctx, http.MethodGet, s.loginURL, nil)
	if err != nil {
		return err
	}

	for _, link := range parentLoginLinks(entry) {
		s.logger.Debug("following parent login link", zap.String("url", link))

		parent, err := s.fetchPage(ctx, http.MethodGet, link, nil)
		if err != nil {
			return err
		}

		err = s.submitLogin(ctx, parent)
		if errors.Is(err, ErrLoginFormNotFound) {
			continue
		}
		return err
	}

	return s.submitLogin(ctx, entry)
}

// parentLoginLinks returns the absolute URLs of links that lead to the parent login
func parentLoginLinks(p *page) []string {
	links := make([]string, 0)
	seen := make(map[string]bool)

	p.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := strings.ToLower(strings.TrimSpace(a.Text()))

		if !strings.Contains(href, "ParentTabulexLogin") &&
			!strings.Contains(text, "forældre") &&
			!strings.Contains(text, "parent") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := p.url.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})

	return links
}

// findLoginForm returns the first form with both a username-like and a password input
func findLoginForm(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection

	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if form.Find(usernameInputSelector).Length() > 0 && form.Find(passwordInputSelector).Length() > 0 {
			found = form
			return false
		}
		return true
	})

	return found
}

// buildLoginForm collects hidden inputs, credentials and the submit button value
func buildLoginForm(form *goquery.Selection, username, password string) url.Values {
	values := url.Values{}

	form.Find(`input[type="hidden"]`).Each(func(_ int, in *goquery.Selection) {
		if name, ok := in.Attr("name"); ok && name != "" {
			values.Set(name, in.AttrOr("value", ""))
		}
	})

	userField := form.Find(usernameInputSelector).First()
	values.Set(nonEmpty(userField.AttrOr("name", ""), "username"), username)

	passField := form.Find(passwordInputSelector).First()
	values.Set(nonEmpty(passField.AttrOr("name", ""), "password"), password)

	submit := form.Find(submitSelector).First()
	if name := submit.AttrOr("name", ""); name != "" {
		values.Set(name, submit.AttrOr("value", "Submit"))
	}

	return values
}

// formAction resolves the form's action against the page it was found on
func formAction(form *goquery.Selection, base *url.URL) (string, error) {
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return base.String(), nil
	}

	ref, err := url.Parse(action)
	if err != nil {
		return "", fmt.Errorf("parsing form action %q: %w", action, err)
	}

	return base.ResolveReference(ref).String(), nil
}

// submitLogin fills and posts the login form on p and verifies the landing page
func (s *Scraper) submitLogin(ctx context.Context, p *page) error {
	form := findLoginForm(p.doc)
	if form == nil {
		return ErrLoginFormNotFound
	}

	action, err := formAction(form, p.url)
	if err != nil {
		return err
	}

	values := buildLoginForm(form, s.username, s.password)
	s.logger.Info("submitting login form", zap.String("action", action))

	landing, err := s.fetchPage(ctx, http.MethodPost, action, values)
	if err != nil {
		return err
	}

	if !verifyLogin(landing.doc) {
		return ErrLoginRejected
	}

	return nil
}

// verifyLogin decides from page text whether the session is authenticated
func verifyLogin(doc *goquery.Document) bool {
	text := strings.ToLower(doc.Text())

	for _, indicator := range successIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}

	for _, indicator := range loginIndicators {
		if strings.Contains(text, indicator) {
			return false
		}
	}

	return len(text) > minLandingPageText
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
