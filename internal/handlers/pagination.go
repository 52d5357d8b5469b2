package handlers

import (
	"net/http"
	"strconv"
)

// Параметры пагинации по умолчанию.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// paginatedResponse — стандартный конверт списочных ответов.
type paginatedResponse struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// parsePageQuery извлекает page и page_size из query-параметров.
// page_size ограничивается сверху maxPageSize, некорректные значения
// заменяются значениями по умолчанию.
func parsePageQuery(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// newPaginatedResponse собирает конверт count/next/previous/results.
// Ссылки next/previous строятся от URL текущего запроса.
func newPaginatedResponse(r *http.Request, page, pageSize int, total int64, results any) paginatedResponse {
	resp := paginatedResponse{Count: total, Results: results}

	if int64(page*pageSize) < total {
		resp.Next = pageURL(r, page+1)
	}
	if page > 1 {
		resp.Previous = pageURL(r, page-1)
	}
	return resp
}

// pageURL возвращает URL текущего запроса с подставленным номером страницы.
func pageURL(r *http.Request, page int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	link := scheme + "://" + r.Host + u.String()
	return &link
}
