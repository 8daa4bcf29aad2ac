package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/pfrederiksen/sfoweb/internal/appointment"
)

const (
	LoginURL        = "https://sfo-web.aula.dk"
	AppointmentsURL = "https://sfo-web.aula.dk/aftaler"
	UserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	Timeout         = 30 * time.Second

	minCredentialLength = 3
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrLoginFormNotFound  = errors.New("login form not found")
	ErrLoginRejected      = errors.New("login rejected")
)

// Scraper handles one authenticated session against the SFOWeb portal
type Scraper struct {
	client          *http.Client
	username        string
	password        string
	loginURL        string
	appointmentsURL string
	whatFilter      string
	logger          *zap.Logger
}

// Option configures a Scraper
type Option func(*Scraper)

// WithLoginURL overrides the portal entry page
func WithLoginURL(u string) Option {
	return func(s *Scraper) { s.loginURL = u }
}

// WithAppointmentsURL overrides the appointment page
func WithAppointmentsURL(u string) Option {
	return func(s *Scraper) { s.appointmentsURL = u }
}

// WithTimeout sets the per-request timeout of the HTTP client
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithWhatFilter keeps only appointments whose "what" column contains the keyword
// (case-insensitive), e.g. "Selvbestemmer".
func WithWhatFilter(keyword string) Option {
	return func(s *Scraper) { s.whatFilter = strings.TrimSpace(keyword) }
}

// WithLogger sets the logger used for diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(s *Scraper) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new Scraper for the given account
func New(username, password string, opts ...Option) *Scraper {
	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	s := &Scraper{
		client: &http.Client{
			Timeout: Timeout,
			Jar:     jar,
		},
		username:        username,
		password:        password,
		loginURL:        LoginURL,
		appointmentsURL: AppointmentsURL,
		logger:          zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchAppointments logs in and returns the account's appointments
func (s *Scraper) FetchAppointments(ctx context.Context) ([]*appointment.Appointment, error) {
	if s.username == "" || s.password == "" {
		return nil, ErrMissingCredentials
	}

	start := time.Now()
	s.logger.Info("fetching appointments", zap.String("username", s.username))

	if err := s.login(ctx); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	appointments, err := s.fetchAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching appointments: %w", err)
	}

	s.logger.Info("retrieved appointments",
		zap.Int("count", len(appointments)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return appointments, nil
}

// TestCredentials performs the light-weight probe: both values must be at
// least three characters and the login page must answer 200.
func (s *Scraper) TestCredentials(ctx context.Context) (bool, error) {
	if len(s.username) < minCredentialLength || len(s.password) < minCredentialLength {
		return false, nil
	}

	s.logger.Info("testing credentials", zap.String("username", s.username))

	resp, err := s.do(ctx, http.MethodGet, s.loginURL, nil)
	if err != nil {
		return false, fmt.Errorf("reaching login page: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

// do sends a request with browser-like headers
func (s *Scraper) do(ctx context.Context, method, target string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "da-DK,da;q=0.9,en-US;q=0.8,en;q=0.7")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return s.client.Do(req)
}

// page is a fetched and parsed HTML document together with its final URL
type page struct {
	doc *goquery.Document
	url *url.URL
}

func (s *Scraper) fetchPage(ctx context.Context, method, target string, form url.Values) (*page, error) {
	resp, err := s.do(ctx, method, target, form)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	return &page{doc: doc, url: resp.Request.URL}, nil
}

// fetchAppointments loads the appointment page of an authenticated session
func (s *Scraper) fetchAppointments(ctx context.Context) ([]*appointment.Appointment, error) {
	resp, err := s.do(ctx, http.MethodGet, s.appointmentsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return parseAPIAppointments(resp.Body, s.appointmentsURL, s.whatFilter)
	}

	return parseAppointments(resp.Body, s.appointmentsURL, s.whatFilter)
}
