package constants

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform body of every API response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Code    string   `json:"code,omitempty"`
}

// PaginationParams holds page/limit from the query string and the derived offset.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// Pagination is the page block returned with list responses.
type Pagination struct {
	Total     int64 `json:"total"`
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	PageTotal int   `json:"pageTotal"`
}

// ParsePaginationParams parses basic pagination parameters (page, limit only)
func ParsePaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery(QueryParamPage, DefaultPage))
	limit, _ := strconv.Atoi(c.DefaultQuery(QueryParamLimit, DefaultLimit))

	if page < MinPage {
		page = MinPage
	}
	if limit < MinLimit {
		limit = MinLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func BuildPagination(total int64, params PaginationParams) Pagination {
	return Pagination{
		Total:     total,
		Page:      params.Page,
		Limit:     params.Limit,
		PageTotal: int(math.Ceil(float64(total) / float64(params.Limit))),
	}
}

// Response Format Functions
func BuildSuccessResponse(message string, data any) Envelope {
	return Envelope{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func BuildErrorResponse(message string, errors []string) Envelope {
	return Envelope{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

func BuildCodedErrorResponse(message, code string) Envelope {
	return Envelope{
		Success: false,
		Message: message,
		Code:    code,
	}
}
