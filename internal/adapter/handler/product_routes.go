package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

const (
	pageParam     = "page"
	pageSizeParam = "page_size"
)

// ListProducts serves GET /products. Only products in stock are listed,
// whatever other filters the request carries.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseProductQuery(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	filter.InStockOnly = true

	result, err := h.products.List(r.Context(), filter, page)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := ProductListResponse{
		Count:   result.Total,
		Results: mapProducts(result.Items),
	}
	if result.HasNext() {
		resp.Next = pageURL(r, page.Number+1)
	}
	if result.HasPrevious() {
		resp.Previous = pageURL(r, page.Number-1)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapProduct(p))
}

func (h *HTTPHandler) ProductInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.products.Info(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProductInfo(info))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(p))
}

func (h *HTTPHandler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	p, err := h.products.Replace(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(p))
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.products.Update(r.Context(), id, req.patch())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(p))
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// productID parses {id}; anything that is not a positive integer is a 404,
// as no such product can exist.
func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "Not found.")
		return 0, false
	}
	return id, true
}

// parseProductQuery reads filter, ordering and paging parameters. Empty
// values are ignored.
func parseProductQuery(q url.Values) (domain.ProductFilter, domain.PageRequest, error) {
	var (
		filter domain.ProductFilter
		verr   = &domain.ValidationError{}
	)

	if v := q.Get("name__iexact"); v != "" {
		filter.NameExact = &v
	}
	if v := q.Get("name__icontains"); v != "" {
		filter.NameContains = &v
	}

	filter.Price = parseDecimalParam(q, "price", verr)
	filter.PriceLT = parseDecimalParam(q, "price__lt", verr)
	filter.PriceGT = parseDecimalParam(q, "price__gt", verr)

	if v := q.Get("price__range"); v != "" {
		lo, hi, ok := strings.Cut(v, ",")
		from, errLo := decimal.NewFromString(strings.TrimSpace(lo))
		to, errHi := decimal.NewFromString(strings.TrimSpace(hi))
		switch {
		case !ok || strings.Contains(hi, ","):
			verr.Add("price__range", "Range query expects two values.")
		case errLo != nil || errHi != nil:
			verr.Add("price__range", "Enter a number.")
		default:
			filter.PriceMin, filter.PriceMax = &from, &to
		}
	}

	filter.Search = strings.TrimSpace(q.Get("search"))
	filter.Sort = domain.ParseProductSort(q.Get("ordering"))

	if err := verr.OrNil(); err != nil {
		return domain.ProductFilter{}, domain.PageRequest{}, err
	}

	number := 1
	if v := q.Get(pageParam); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return domain.ProductFilter{}, domain.PageRequest{}, domain.ErrInvalidPage
		}
		number = n
	}

	// A malformed page size falls back to the default.
	size, _ := strconv.Atoi(q.Get(pageSizeParam))

	return filter, domain.NewPageRequest(number, size), nil
}

func parseDecimalParam(q url.Values, key string, verr *domain.ValidationError) *decimal.Decimal {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		verr.Add(key, "Enter a number.")
		return nil
	}
	return &d
}

// pageURL rebuilds the request URL pointing at page n. The first page is
// addressed without a page parameter.
func pageURL(r *http.Request, n int) *string {
	u := *r.URL
	q := u.Query()
	if n <= 1 {
		q.Del(pageParam)
	} else {
		q.Set(pageParam, strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	s := u.String()
	return &s
}
