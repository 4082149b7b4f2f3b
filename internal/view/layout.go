// Package view renders the server-side HTML pages. Pages are plain
// templ.Component values built with templ.ComponentFunc; every dynamic value
// goes through templ.EscapeString.
package view

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

// Page carries what every page shows in its chrome.
type Page struct {
	Title string
	Me    *model.User // nil when anonymous
	CSRF  string      // form token for the logout button and page forms
	Error string
}

// html accumulates output and remembers the first write error, so page
// bodies read top to bottom without an error check per line.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) { h.raw(templ.EscapeString(s)) }

func (h *html) rawf(format string, args ...any) { h.raw(fmt.Sprintf(format, args...)) }

func (h *html) csrfField(token string) {
	h.rawf(`<input type="hidden" name="csrf_token" value="%s">`, templ.EscapeString(token))
}

func (h *html) field(label, typ, name, value string, required bool) {
	req := ""
	if required {
		req = " required"
	}
	h.rawf(`<label>%s <input type="%s" name="%s" value="%s"%s></label>`,
		templ.EscapeString(label), typ, name, templ.EscapeString(value), req)
}

// layout wraps body in the shared document chrome.
func layout(p Page, body func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.text(p.Title)
		h.raw(` · oob marketplace</title></head><body><nav><a href="/products">Products</a>`)
		if p.Me != nil {
			h.raw(` <a href="/dashboard">Dashboard</a> <span class="me">`)
			h.text(p.Me.Email)
			h.raw(`</span> <form method="post" action="/logout" class="inline">`)
			h.csrfField(p.CSRF)
			h.raw(`<button type="submit">Log out</button></form>`)
		} else {
			h.raw(` <a href="/login">Log in</a> <a href="/register">Register</a>`)
		}
		h.raw(`</nav><main><h1>`)
		h.text(p.Title)
		h.raw(`</h1>`)
		if p.Error != "" {
			h.raw(`<p class="error" role="alert">`)
			h.text(p.Error)
			h.raw(`</p>`)
		}
		body(h)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// Index is the landing page served at "/" when root redirects are disabled.
func Index(p Page) templ.Component {
	return layout(p, func(h *html) {
		h.raw(`<p>Buy and sell things. <a href="/products">Browse the catalogue</a>.</p>`)
	})
}
