package view

import "github.com/a-h/templ"

// LoginForm is redisplayed after a failed attempt.
type LoginForm struct {
	Email string
}

// Login renders the password login form plus the OAuth entry points.
func Login(p Page, form LoginForm, google, twitter bool) templ.Component {
	return layout(p, func(h *html) {
		h.raw(`<form method="post" action="/login">`)
		h.csrfField(p.CSRF)
		h.field("Email", "email", "email", form.Email, true)
		h.field("Password", "password", "password", "", true)
		h.raw(`<button type="submit">Log in</button></form>`)
		if google || twitter {
			h.raw(`<p class="oauth">`)
			if google {
				h.raw(`<a href="/oauth/google/start">Continue with Google</a> `)
			}
			if twitter {
				h.raw(`<a href="/oauth/twitter/start">Continue with X</a>`)
			}
			h.raw(`</p>`)
		}
		h.raw(`<p>No account? <a href="/register">Register</a></p>`)
	})
}

// RegisterForm is redisplayed after a failed attempt.
type RegisterForm struct {
	Email string
	Name  string
}

// Register renders the registration form.
func Register(p Page, form RegisterForm) templ.Component {
	return layout(p, func(h *html) {
		h.raw(`<form method="post" action="/register">`)
		h.csrfField(p.CSRF)
		h.field("Name", "text", "name", form.Name, false)
		h.field("Email", "email", "email", form.Email, true)
		h.field("Password", "password", "password", "", true)
		h.raw(`<button type="submit">Create account</button></form>`)
		h.raw(`<p>Already registered? <a href="/login">Log in</a></p>`)
	})
}
