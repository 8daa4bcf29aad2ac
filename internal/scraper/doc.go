// Package scraper logs in to the SFOWeb parent portal and extracts appointments.
//
// The scraper keeps a cookie-backed session, follows the parent ("Forældre") login
// link, fills in whichever login form it finds, and then parses the appointment
// table on the /aftaler page. When the page carries no table it falls back to
// appointment-like blocks, and when the endpoint answers with JSON it maps the
// common field names onto appointments.
package scraper
