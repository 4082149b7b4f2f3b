package view

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/iliyamo/oob-marketplace/internal/model"
)

// Dashboard shows the signed-in user and catalogue counts.
func Dashboard(p Page, stats model.ProductStats) templ.Component {
	return layout(p, func(h *html) {
		if p.Me == nil {
			return
		}
		h.raw(`<dl><dt>Email</dt><dd>`)
		h.text(p.Me.Email)
		h.raw(`</dd><dt>Name</dt><dd>`)
		h.text(p.Me.Name)
		h.raw(`</dd><dt>Role</dt><dd>`)
		h.text(string(p.Me.Role))
		h.raw(`</dd></dl>`)
		h.rawf(`<p class="stats">%d products listed, %d of them yours.</p>`, stats.Total, stats.Mine)
		if canSell(p.Me) {
			h.raw(`<p><a href="/products/new">List a product</a></p>`)
		}
	})
}

// Products lists the catalogue. Delete buttons appear on rows the viewer
// may remove.
func Products(p Page, items []model.Product) templ.Component {
	return layout(p, func(h *html) {
		if canSell(p.Me) {
			h.raw(`<p><a href="/products/new">List a product</a></p>`)
		}
		if len(items) == 0 {
			h.raw(`<p>No products yet.</p>`)
			return
		}
		h.raw(`<table><thead><tr><th>Title</th><th>Price</th><th></th></tr></thead><tbody>`)
		for _, it := range items {
			h.raw(`<tr><td>`)
			h.text(it.Title)
			if it.Description != "" {
				h.raw(`<br><small>`)
				h.text(it.Description)
				h.raw(`</small>`)
			}
			h.raw(`</td><td>`)
			h.text(strconv.FormatFloat(it.Price, 'f', 2, 64) + " " + it.Currency)
			h.raw(`</td><td>`)
			if canDelete(p.Me, it) {
				h.rawf(`<form method="post" action="/products/%d/delete">`, it.ID)
				h.csrfField(p.CSRF)
				h.raw(`<button type="submit">Delete</button></form>`)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
	})
}

// ProductForm holds the values of the create form.
type ProductForm struct {
	Title       string
	Description string
	Price       string
	Currency    string
	ImageURL    string
}

// ProductNew renders the create form.
func ProductNew(p Page, form ProductForm) templ.Component {
	if form.Currency == "" {
		form.Currency = "USD"
	}
	return layout(p, func(h *html) {
		h.raw(`<form method="post" action="/products/new">`)
		h.csrfField(p.CSRF)
		h.field("Title", "text", "title", form.Title, true)
		h.raw(`<label>Description <textarea name="description">`)
		h.text(form.Description)
		h.raw(`</textarea></label>`)
		h.field("Price", "number", "price", form.Price, false)
		h.field("Currency", "text", "currency", form.Currency, false)
		h.field("Image URL", "url", "image_url", form.ImageURL, false)
		h.raw(`<button type="submit">Create</button></form>`)
	})
}

func canSell(u *model.User) bool {
	return u != nil && (u.Role == model.RoleSeller || u.Role == model.RoleAdmin)
}

func canDelete(u *model.User, p model.Product) bool {
	return u != nil && (u.Role == model.RoleAdmin || u.ID == p.SellerID)
}
