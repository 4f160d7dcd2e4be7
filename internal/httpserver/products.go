package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	catalogsvc "storefront/internal/service/catalog"
)

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *handlers) listProducts(c *gin.Context) {
	q := catalogsvc.ListQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}
	var err error
	if q.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if q.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if q.MinRating, err = queryDecimal(c, "rating"); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(c, h.logger, badRequest("featured must be true or false"))
			return
		}
		q.Featured = &featured
	}

	products, page, err := h.Catalog.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondPage(c, products, page)
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.Catalog.Get(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, p)
}

func (h *handlers) featured(c *gin.Context) {
	products, err := h.Catalog.Featured(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *handlers) categories(c *gin.Context) {
	cats, err := h.Catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cats)
}

func (h *handlers) createProduct(c *gin.Context) {
	var in catalogsvc.ProductInput
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.Catalog.Create(c.Request.Context(), caller(c), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusCreated, "product created successfully", p)
}

func (h *handlers) updateProduct(c *gin.Context) {
	var in catalogsvc.ProductInput
	if !h.bindJSON(c, &in) {
		return
	}
	p, err := h.Catalog.Update(c.Request.Context(), caller(c), c.Param("id"), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "product updated successfully", p)
}

func (h *handlers) deleteProduct(c *gin.Context) {
	if err := h.Catalog.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "product deleted successfully", nil)
}

func (h *handlers) addReview(c *gin.Context) {
	var req reviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	p, err := h.Catalog.AddOrUpdateReview(c.Request.Context(), caller(c), c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusCreated, "review saved", p)
}

// queryInt parses an integer query parameter. Missing or malformed values
// read as zero so the service applies its default.
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
