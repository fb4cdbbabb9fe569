package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storefront-labs/storefront-gateway/internal/authz"
	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

// RegisterStoreRoutes wires catalog browsing, reviews, and auth endpoints
// into the provided mux. Reads are open; catalog writes require the
// manage_products capability and reviews require place_orders.
func RegisterStoreRoutes(mux *http.ServeMux, client *storefront.Client, ac authz.Client) {
	sess := client.Session()

	productsCap := func(r *http.Request) string {
		if r.Method == http.MethodPost {
			return authz.CapManageProducts
		}
		return ""
	}
	guardProducts := authz.Require(ac, sess, productsCap)

	// /api/products → list + create
	mux.Handle("/api/products", otelhttp.NewHandler(guardProducts(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleProductsList(client, w, r)
		case http.MethodPost:
			handleProductCreate(client, w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})), "products"))

	reviewCap := func(r *http.Request) string {
		if r.Method == http.MethodPost {
			return authz.CapPlaceOrders
		}
		return ""
	}
	guardReviews := authz.Require(ac, sess, reviewCap)

	// /api/products/{id} and /api/products/{id}/reviews
	mux.Handle("/api/products/", otelhttp.NewHandler(guardReviews(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleProduct(client, w, r)
	})), "product"))

	// GET /api/categories
	mux.Handle("/api/categories", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cats, err := client.ListCategories(r.Context())
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
	}), "categories"))

	// POST /api/auth/login and /api/auth/register pass through to the backend
	mux.Handle("/api/auth/login", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		auth, err := client.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, auth)
	}), "login"))

	mux.Handle("/api/auth/register", otelhttp.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		auth, err := client.Register(r.Context(), req.Name, req.Email, req.Password, req.Role)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, auth)
	}), "register"))
}

func handleProductsList(client *storefront.Client, w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	var categoryID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid category id", http.StatusBadRequest)
			return
		}
		categoryID = id
	}
	products, err := client.ListProducts(r.Context(), search, categoryID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func handleProductCreate(client *storefront.Client, w http.ResponseWriter, r *http.Request) {
	var p storefront.Product
	if !decodeBody(w, r, &p) {
		return
	}
	created, err := client.AddProduct(r.Context(), p)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func handleProduct(client *storefront.Client, w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/products/")

	// POST /api/products/{id}/reviews
	if rest, ok := strings.CutSuffix(path, "/reviews"); ok && r.Method == http.MethodPost {
		productID, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || productID <= 0 {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if err := client.AddReview(r.Context(), productID, req.Rating, req.Comment); err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	productID, err := strconv.ParseInt(path, 10, 64)
	if err != nil || productID <= 0 {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	product, reviews, err := client.GetProduct(r.Context(), productID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product, "reviews": reviews})
}
