package main

import (
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sternrassler/page-cache/pkg/pagecache"
)

// demoRoutes names the controller and action of each demo page.
var demoRoutes = pagecache.ChiRoutes{
	"/":                {Controller: "home", Action: "index"},
	"/products":        {Controller: "products", Action: "index"},
	"/products/{slug}": {Controller: "products", Action: "detail"},
}

func mountDemoSite(r chi.Router) {
	r.Get("/", homePage)
	r.Get("/products", productsPage)
	r.Get("/products/{slug}", productPage)
	r.Get("/catalog", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/products", http.StatusMovedPermanently)
	})
	r.Get("/{controller}/{action}", genericPage)
}

func writePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n  <head>\n    <title>%s</title>\n  </head>\n  <body>\n    <!-- rendered by pagecache-server -->\n    %s\n  </body>\n</html>\n",
		html.EscapeString(title), body)
}

func homePage(w http.ResponseWriter, r *http.Request) {
	writePage(w, "Home", `<h1>Welcome</h1>
    <a href="/products">Products</a>`)
}

func productsPage(w http.ResponseWriter, r *http.Request) {
	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = "name"
	}
	writePage(w, "Products", fmt.Sprintf(`<h1>Products</h1>
    <p>Sorted by %s</p>
    <ul>
      <li><a href="/products/red-shoes">Red shoes</a></li>
      <li><a href="/products/blue-hat">Blue hat</a></li>
    </ul>`, html.EscapeString(sort)))
}

func productPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	writePage(w, slug, fmt.Sprintf("<h1>%s</h1>", html.EscapeString(slug)))
}

func genericPage(w http.ResponseWriter, r *http.Request) {
	controller := chi.URLParam(r, "controller")
	action := chi.URLParam(r, "action")
	writePage(w, controller, fmt.Sprintf("<h1>%s / %s</h1>", html.EscapeString(controller), html.EscapeString(action)))
}
